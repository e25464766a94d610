package httpapi

import (
	"time"

	"studyhall.org/internal/campus"
)

type registerRequest struct {
	NetID    string `json:"net_id" validate:"required,notblank"`
	Name     string `json:"name" validate:"required,notblank"`
	Bio      string `json:"bio"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	NetID    string `json:"net_id" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type courseRequest struct {
	Title string `json:"course_title" validate:"required,notblank"`
	Code  string `json:"course_code" validate:"required,notblank"`
}

type groupRequest struct {
	CourseCode string `json:"course_code" validate:"required,notblank"`
}

type acceptingRequest struct {
	AcceptingMembers *bool `json:"accepting_members" validate:"required"`
}

type resolveRequest struct {
	Response *bool `json:"response" validate:"required"`
}

type eventRequest struct {
	Description *string `json:"description" validate:"required,notblank"`
	Location    *string `json:"location" validate:"required,notblank"`
	Year        *int    `json:"year" validate:"required,min=1,max=9999"`
	Month       *int    `json:"month" validate:"required,min=1,max=12"`
	Day         *int    `json:"day" validate:"required,min=1,max=31"`
	Hour        *int    `json:"hour" validate:"required,min=0,max=23"`
	Minute      *int    `json:"minute" validate:"required,min=0,max=59"`
}

func (e eventRequest) input() campus.EventInput {
	return campus.EventInput{
		Description: e.Description,
		Location:    e.Location,
		Year:        e.Year,
		Month:       e.Month,
		Day:         e.Day,
		Hour:        e.Hour,
		Minute:      e.Minute,
	}
}

type courseRef struct {
	ID    int64  `json:"id"`
	Title string `json:"course_title"`
	Code  string `json:"course_code"`
}

type groupSummary struct {
	ID               int64 `json:"id"`
	CourseID         int64 `json:"course_id"`
	AdminID          int64 `json:"admin_id"`
	AcceptingMembers bool  `json:"accepting_members"`
}

type courseView struct {
	courseRef
	Groups []groupSummary `json:"groups"`
}

type groupView struct {
	ID               int64           `json:"id"`
	Course           courseRef       `json:"course"`
	Admin            campus.Member   `json:"admin"`
	AcceptingMembers bool            `json:"accepting_members"`
	Members          []campus.Member `json:"members"`
}

type requestView struct {
	ID      int64         `json:"id"`
	GroupID int64         `json:"group_id"`
	User    campus.Member `json:"user"`
	Status  campus.Status `json:"status"`
}

type eventView struct {
	ID          int64           `json:"id"`
	GroupID     int64           `json:"group_id"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Time        string          `json:"time"`
	Attendees   []campus.Member `json:"attendees"`
}

func toCourseView(c campus.CourseDetail) courseView {
	groups := make([]groupSummary, 0, len(c.Groups))
	for _, g := range c.Groups {
		groups = append(groups, groupSummary{
			ID:               g.ID,
			CourseID:         g.CourseID,
			AdminID:          g.AdminID,
			AcceptingMembers: g.AcceptingMembers,
		})
	}
	return courseView{
		courseRef: courseRef{ID: c.ID, Title: c.Title, Code: c.Code},
		Groups:    groups,
	}
}

func toGroupView(g campus.GroupDetail) groupView {
	members := g.Members
	if members == nil {
		members = []campus.Member{}
	}
	return groupView{
		ID:               g.ID,
		Course:           courseRef{ID: g.Course.ID, Title: g.Course.Title, Code: g.Course.Code},
		Admin:            g.Admin,
		AcceptingMembers: g.AcceptingMembers,
		Members:          members,
	}
}

func toGroupViews(in []campus.GroupDetail) []groupView {
	out := make([]groupView, 0, len(in))
	for _, g := range in {
		out = append(out, toGroupView(g))
	}
	return out
}

func toRequestView(r campus.RequestDetail) requestView {
	return requestView{ID: r.ID, GroupID: r.GroupID, User: r.User, Status: r.Status}
}

func toEventView(e campus.EventDetail) eventView {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []campus.Member{}
	}
	return eventView{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Location:    e.Location,
		Time:        e.Time.UTC().Format(time.RFC3339),
		Attendees:   attendees,
	}
}

func toEventViews(in []campus.EventDetail) []eventView {
	out := make([]eventView, 0, len(in))
	for _, e := range in {
		out = append(out, toEventView(e))
	}
	return out
}

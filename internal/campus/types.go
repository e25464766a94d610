package campus

import (
	"encoding/json"
	"time"
)

// Course groups study groups under a unique course code.
type Course struct {
	ID        int64
	Title     string
	Code      string
	CreatorID int64 // zero for seeded courses
}

// Group is a study group. AdminID is fixed at creation.
type Group struct {
	ID               int64
	CourseID         int64
	AdminID          int64
	AcceptingMembers bool
}

// Member is the public summary of a user as it appears in member,
// requester and attendee lists.
type Member struct {
	ID    int64  `json:"id"`
	NetID string `json:"net_id"`
	Name  string `json:"name"`
}

// Status is the state of a join request.
type Status int

const (
	StatusPending Status = iota
	StatusAccepted
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusDenied:
		return "denied"
	default:
		return "pending"
	}
}

// Resolved reports whether s is terminal.
func (s Status) Resolved() bool { return s != StatusPending }

// StatusFromBool maps the nullable boolean representation (nil pending,
// true accepted, false denied) onto Status.
func StatusFromBool(b *bool) Status {
	switch {
	case b == nil:
		return StatusPending
	case *b:
		return StatusAccepted
	default:
		return StatusDenied
	}
}

// Bool is the inverse of StatusFromBool.
func (s Status) Bool() *bool {
	switch s {
	case StatusAccepted:
		v := true
		return &v
	case StatusDenied:
		v := false
		return &v
	default:
		return nil
	}
}

// MarshalJSON renders pending as null, accepted as true and denied as false.
func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(s.Bool()) }

// JoinRequest records a user's request to join a group. Once resolved it
// never changes again.
type JoinRequest struct {
	ID      int64
	GroupID int64
	UserID  int64
	Status  Status
}

// Event is a scheduled meeting of a group.
type Event struct {
	ID          int64
	GroupID     int64
	CreatorID   int64
	Description string
	Location    string
	Time        time.Time
}

// GroupDetail is a group with its course, admin and member roll.
type GroupDetail struct {
	Group
	Course  Course
	Admin   Member
	Members []Member
}

// CourseDetail is a course with the groups it owns.
type CourseDetail struct {
	Course
	Groups []Group
}

// RequestDetail is a join request with the requesting user resolved.
type RequestDetail struct {
	JoinRequest
	User Member
}

// EventDetail is an event with its attendee roll.
type EventDetail struct {
	Event
	Attendees []Member
}

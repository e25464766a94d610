package memory

import (
	"context"
	"sort"

	"studyhall.org/internal/campus"
)

type tx struct {
	st *state
}

var _ campus.Tx = (*tx)(nil)

func sortedIDs[T any](m map[int64]T, keep func(T) bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *tx) Member(_ context.Context, userID int64) (campus.Member, error) {
	return t.member(userID)
}

func (t *tx) member(userID int64) (campus.Member, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return campus.Member{}, campus.ErrNotFound
	}
	return campus.Member{ID: u.ID, NetID: u.NetID, Name: u.Name}, nil
}

func (t *tx) memberList(set map[int64]struct{}) ([]campus.Member, error) {
	out := make([]campus.Member, 0, len(set))
	for _, id := range sortedIDs(set, nil) {
		m, err := t.member(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// --- courses ---

func (t *tx) CreateCourse(_ context.Context, c *campus.Course) error {
	for _, existing := range t.st.courses {
		if existing.Code == c.Code {
			return campus.ErrConflict
		}
	}
	c.ID = t.st.next("courses")
	t.st.courses[c.ID] = *c
	return nil
}

func (t *tx) CourseByID(_ context.Context, id int64) (campus.Course, error) {
	c, ok := t.st.courses[id]
	if !ok {
		return campus.Course{}, campus.ErrNotFound
	}
	return c, nil
}

func (t *tx) CourseByCode(_ context.Context, code string) (campus.Course, error) {
	for _, c := range t.st.courses {
		if c.Code == code {
			return c, nil
		}
	}
	return campus.Course{}, campus.ErrNotFound
}

func (t *tx) ListCourses(_ context.Context) ([]campus.Course, error) {
	ids := sortedIDs(t.st.courses, nil)
	out := make([]campus.Course, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.courses[id])
	}
	return out, nil
}

func (t *tx) DeleteCourse(_ context.Context, id int64) error {
	if _, ok := t.st.courses[id]; !ok {
		return campus.ErrNotFound
	}
	for _, gid := range sortedIDs(t.st.groups, func(g campus.Group) bool { return g.CourseID == id }) {
		t.deleteGroup(gid)
	}
	delete(t.st.courses, id)
	return nil
}

func (t *tx) deleteGroup(id int64) {
	for rid, r := range t.st.requests {
		if r.GroupID == id {
			delete(t.st.requests, rid)
		}
	}
	for eid, e := range t.st.events {
		if e.GroupID == id {
			delete(t.st.events, eid)
			delete(t.st.attendees, eid)
		}
	}
	delete(t.st.members, id)
	delete(t.st.groups, id)
}

// --- groups ---

func (t *tx) CreateGroup(_ context.Context, g *campus.Group) error {
	if _, ok := t.st.courses[g.CourseID]; !ok {
		return campus.ErrNotFound
	}
	g.ID = t.st.next("groups")
	t.st.groups[g.ID] = *g
	return nil
}

func (t *tx) GroupByID(_ context.Context, id int64) (campus.Group, error) {
	g, ok := t.st.groups[id]
	if !ok {
		return campus.Group{}, campus.ErrNotFound
	}
	return g, nil
}

func (t *tx) ListGroups(_ context.Context, courseID int64) ([]campus.Group, error) {
	ids := sortedIDs(t.st.groups, func(g campus.Group) bool {
		return courseID == 0 || g.CourseID == courseID
	})
	out := make([]campus.Group, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.groups[id])
	}
	return out, nil
}

func (t *tx) GroupsForUser(_ context.Context, userID int64) ([]campus.Group, error) {
	out := []campus.Group{}
	for _, id := range sortedIDs(t.st.groups, nil) {
		if _, ok := t.st.members[id][userID]; ok {
			out = append(out, t.st.groups[id])
		}
	}
	return out, nil
}

func (t *tx) SetAccepting(_ context.Context, groupID int64, accepting bool) error {
	g, ok := t.st.groups[groupID]
	if !ok {
		return campus.ErrNotFound
	}
	g.AcceptingMembers = accepting
	t.st.groups[groupID] = g
	return nil
}

func (t *tx) AddMember(_ context.Context, groupID, userID int64) error {
	if _, ok := t.st.groups[groupID]; !ok {
		return campus.ErrNotFound
	}
	if _, ok := t.st.users[userID]; !ok {
		return campus.ErrNotFound
	}
	set := t.st.members[groupID]
	if set == nil {
		set = map[int64]struct{}{}
		t.st.members[groupID] = set
	}
	set[userID] = struct{}{}
	return nil
}

func (t *tx) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	_, ok := t.st.members[groupID][userID]
	return ok, nil
}

func (t *tx) Members(_ context.Context, groupID int64) ([]campus.Member, error) {
	return t.memberList(t.st.members[groupID])
}

// --- requests ---

func (t *tx) CreateRequest(_ context.Context, r *campus.JoinRequest) error {
	if _, ok := t.st.groups[r.GroupID]; !ok {
		return campus.ErrNotFound
	}
	for _, existing := range t.st.requests {
		if existing.GroupID == r.GroupID && existing.UserID == r.UserID {
			return campus.ErrConflict
		}
	}
	r.ID = t.st.next("requests")
	t.st.requests[r.ID] = *r
	return nil
}

func (t *tx) RequestByID(_ context.Context, id int64) (campus.JoinRequest, error) {
	r, ok := t.st.requests[id]
	if !ok {
		return campus.JoinRequest{}, campus.ErrNotFound
	}
	return r, nil
}

func (t *tx) HasRequest(_ context.Context, groupID, userID int64) (bool, error) {
	for _, r := range t.st.requests {
		if r.GroupID == groupID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) ListRequests(_ context.Context, groupID int64) ([]campus.JoinRequest, error) {
	ids := sortedIDs(t.st.requests, func(r campus.JoinRequest) bool { return r.GroupID == groupID })
	out := make([]campus.JoinRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.requests[id])
	}
	return out, nil
}

func (t *tx) ResolveRequest(_ context.Context, id int64, status campus.Status) error {
	r, ok := t.st.requests[id]
	if !ok {
		return campus.ErrNotFound
	}
	if r.Status.Resolved() {
		return campus.ErrConflict
	}
	r.Status = status
	t.st.requests[id] = r
	return nil
}

// --- events ---

func (t *tx) CreateEvent(_ context.Context, e *campus.Event) error {
	if _, ok := t.st.groups[e.GroupID]; !ok {
		return campus.ErrNotFound
	}
	e.ID = t.st.next("events")
	t.st.events[e.ID] = *e
	return nil
}

func (t *tx) EventByID(_ context.Context, id int64) (campus.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return campus.Event{}, campus.ErrNotFound
	}
	return e, nil
}

func (t *tx) ListEvents(_ context.Context, groupID int64) ([]campus.Event, error) {
	return t.eventsWhere(func(e campus.Event) bool { return e.GroupID == groupID }), nil
}

func (t *tx) EventsForUser(_ context.Context, userID int64) ([]campus.Event, error) {
	return t.eventsWhere(func(e campus.Event) bool {
		_, ok := t.st.attendees[e.ID][userID]
		return ok
	}), nil
}

func (t *tx) eventsWhere(keep func(campus.Event) bool) []campus.Event {
	ids := sortedIDs(t.st.events, keep)
	out := make([]campus.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.events[id])
	}
	return out
}

func (t *tx) AddAttendee(_ context.Context, eventID, userID int64) error {
	if _, ok := t.st.events[eventID]; !ok {
		return campus.ErrNotFound
	}
	set := t.st.attendees[eventID]
	if set == nil {
		set = map[int64]struct{}{}
		t.st.attendees[eventID] = set
	}
	set[userID] = struct{}{}
	return nil
}

func (t *tx) Attendees(_ context.Context, eventID int64) ([]campus.Member, error) {
	return t.memberList(t.st.attendees[eventID])
}

func (t *tx) DeleteEvent(_ context.Context, id int64) error {
	if _, ok := t.st.events[id]; !ok {
		return campus.ErrNotFound
	}
	delete(t.st.events, id)
	delete(t.st.attendees, id)
	return nil
}

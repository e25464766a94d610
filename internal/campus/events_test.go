package campus_test

import (
	"errors"
	"testing"
	"time"

	"studyhall.org/internal/campus"
)

func eventInput(y, mo, d, h, mi int) campus.EventInput {
	return campus.EventInput{
		Description: ptr("Midterm review"),
		Location:    ptr("Library 2F"),
		Year:        ptr(y),
		Month:       ptr(mo),
		Day:         ptr(d),
		Hour:        ptr(h),
		Minute:      ptr(mi),
	}
}

func TestEventAttendanceRoundTrip(t *testing.T) {
	f := newFixture(t)
	a := f.register("alice")
	b := f.register("bob")
	g := f.group(a, "CS101")
	f.join(a, b, g.ID)

	e, err := f.campus.CreateEvent(f.ctx, a.token, g.ID, eventInput(2024, 10, 14, 18, 30))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if want := time.Date(2024, 10, 14, 18, 30, 0, 0, time.UTC); !e.Time.Equal(want) {
		t.Fatalf("time = %s, want %s", e.Time, want)
	}

	got, err := f.campus.GetEvent(f.ctx, b.token, e.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if len(got.Attendees) != 1 || got.Attendees[0].ID != a.user.ID {
		t.Fatalf("attendees should be exactly the creator: %+v", got.Attendees)
	}

	joined, err := f.campus.JoinEvent(f.ctx, b.token, e.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(joined.Attendees) != 2 {
		t.Fatalf("join should add one attendee: %+v", joined.Attendees)
	}
	again, err := f.campus.JoinEvent(f.ctx, b.token, e.ID)
	if err != nil {
		t.Fatalf("repeat join: %v", err)
	}
	if len(again.Attendees) != 2 {
		t.Fatalf("repeat join grew attendees: %+v", again.Attendees)
	}

	mine, err := f.campus.MyEvents(f.ctx, b.token, b.user.ID)
	if err != nil || len(mine) != 1 || mine[0].ID != e.ID {
		t.Fatalf("my events: %+v %v", mine, err)
	}
}

func TestEventsGatedToMembers(t *testing.T) {
	f := newFixture(t)
	a := f.register("alice")
	c := f.register("carol")
	g := f.group(a, "CS101")

	if _, err := f.campus.CreateEvent(f.ctx, c.token, g.ID, eventInput(2024, 10, 14, 18, 30)); !errors.Is(err, campus.ErrForbidden) {
		t.Fatalf("outsider create: want ErrForbidden, got %v", err)
	}
	e, err := f.campus.CreateEvent(f.ctx, a.token, g.ID, eventInput(2024, 10, 14, 18, 30))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if _, err := f.campus.GetEvent(f.ctx, c.token, e.ID); !errors.Is(err, campus.ErrForbidden) {
		t.Fatalf("outsider get: want ErrForbidden, got %v", err)
	}
	if _, err := f.campus.JoinEvent(f.ctx, c.token, e.ID); !errors.Is(err, campus.ErrForbidden) {
		t.Fatalf("outsider join: want ErrForbidden, got %v", err)
	}
	if _, err := f.campus.ListGroupEvents(f.ctx, c.token, g.ID); !errors.Is(err, campus.ErrForbidden) {
		t.Fatalf("outsider list: want ErrForbidden, got %v", err)
	}
	if err := f.campus.DeleteEvent(f.ctx, c.token, e.ID); !errors.Is(err, campus.ErrForbidden) {
		t.Fatalf("outsider delete: want ErrForbidden, got %v", err)
	}
	if _, err := f.campus.CreateEvent(f.ctx, a.token, 999, eventInput(2024, 10, 14, 18, 30)); !errors.Is(err, campus.ErrNotFound) {
		t.Fatalf("missing group: want ErrNotFound, got %v", err)
	}
}

func TestMemberMayDeleteEvent(t *testing.T) {
	f := newFixture(t)
	a := f.register("alice")
	b := f.register("bob")
	g := f.group(a, "CS101")
	f.join(a, b, g.ID)

	e, err := f.campus.CreateEvent(f.ctx, a.token, g.ID, eventInput(2024, 10, 14, 18, 30))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := f.campus.DeleteEvent(f.ctx, b.token, e.ID); err != nil {
		t.Fatalf("member delete: %v", err)
	}
	if _, err := f.campus.GetEvent(f.ctx, a.token, e.ID); !errors.Is(err, campus.ErrNotFound) {
		t.Fatalf("deleted event still visible: %v", err)
	}
	events, err := f.campus.ListGroupEvents(f.ctx, a.token, g.ID)
	if err != nil || len(events) != 0 {
		t.Fatalf("list after delete: %+v %v", events, err)
	}
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	a := f.register("alice")
	g := f.group(a, "CS101")

	missing := eventInput(2024, 10, 14, 18, 30)
	missing.Minute = nil
	blank := eventInput(2024, 10, 14, 18, 30)
	blank.Location = ptr("  ")

	cases := map[string]campus.EventInput{
		"missing minute": missing,
		"blank location": blank,
		"february 30":    eventInput(2024, 2, 30, 10, 0),
		"hour 24":        eventInput(2024, 3, 1, 24, 0),
		"month 13":       eventInput(2024, 13, 1, 10, 0),
		"minute 60":      eventInput(2024, 3, 1, 10, 60),
		"day 0":          eventInput(2024, 3, 0, 10, 0),
		"2023 leap day":  eventInput(2023, 2, 29, 10, 0),
	}
	for name, in := range cases {
		if _, err := f.campus.CreateEvent(f.ctx, a.token, g.ID, in); !errors.Is(err, campus.ErrValidation) {
			t.Fatalf("%s: want ErrValidation, got %v", name, err)
		}
	}
	if _, err := f.campus.CreateEvent(f.ctx, a.token, g.ID, eventInput(2024, 2, 29, 10, 0)); err != nil {
		t.Fatalf("2024 leap day should be valid: %v", err)
	}
}

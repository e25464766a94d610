package campus

import (
	"context"
	"strings"
	"time"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/obs"
	"studyhall.org/internal/validate"
)

// EventInput is the body of an event creation. Every field is required;
// pointers distinguish an absent field from a zero value.
type EventInput struct {
	Description *string `json:"description" validate:"required,notblank"`
	Location    *string `json:"location" validate:"required,notblank"`
	Year        *int    `json:"year" validate:"required,min=1,max=9999"`
	Month       *int    `json:"month" validate:"required,min=1,max=12"`
	Day         *int    `json:"day" validate:"required,min=1,max=31"`
	Hour        *int    `json:"hour" validate:"required,min=0,max=23"`
	Minute      *int    `json:"minute" validate:"required,min=0,max=59"`
}

// When composes the event instant in UTC. It rejects missing or out of
// range fields and dates that do not exist, such as February 30.
func (in EventInput) When() (time.Time, error) {
	if err := validate.Struct(in); err != nil {
		return time.Time{}, errorf(ErrValidation, "%s", err)
	}
	y, mo, d := *in.Year, *in.Month, *in.Day
	t := time.Date(y, time.Month(mo), d, *in.Hour, *in.Minute, 0, 0, time.UTC)
	// time.Date normalizes overflow, so a changed day means it did not exist.
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, errorf(ErrValidation, "%04d-%02d-%02d is not a calendar date", y, mo, d)
	}
	return t, nil
}

// CreateEvent schedules an event for the group. The creator is the first attendee.
func (s *Service) CreateEvent(ctx context.Context, sessionToken string, groupID int64, in EventInput) (EventDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return EventDetail{}, err
	}
	var out EventDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		when, err := in.When()
		if err != nil {
			return err
		}
		if err := require(ctx, tx, user.ID, g, RoleMember); err != nil {
			return err
		}
		e := Event{
			GroupID:     g.ID,
			CreatorID:   user.ID,
			Description: strings.TrimSpace(*in.Description),
			Location:    strings.TrimSpace(*in.Location),
			Time:        when,
		}
		if err := tx.CreateEvent(ctx, &e); err != nil {
			return err
		}
		if err := tx.AddAttendee(ctx, e.ID, user.ID); err != nil {
			return err
		}
		out, err = eventDetail(ctx, tx, e)
		return err
	})
	if err != nil {
		return EventDetail{}, err
	}

	obs.EventsCreated.Inc()
	audit.Record(ctx, "event.created", map[string]any{"event_id": out.ID, "group_id": groupID})
	return out, nil
}

// withEvent loads the event and checks the caller belongs to its group.
func withEvent(ctx context.Context, tx Tx, userID, eventID int64) (Event, error) {
	e, err := tx.EventByID(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	g, err := tx.GroupByID(ctx, e.GroupID)
	if err != nil {
		return Event{}, err
	}
	if err := require(ctx, tx, userID, g, RoleMember); err != nil {
		return Event{}, err
	}
	return e, nil
}

// GetEvent returns an event with its attendees to members of its group.
func (s *Service) GetEvent(ctx context.Context, sessionToken string, eventID int64) (EventDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return EventDetail{}, err
	}
	var out EventDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		e, err := withEvent(ctx, tx, user.ID, eventID)
		if err != nil {
			return err
		}
		out, err = eventDetail(ctx, tx, e)
		return err
	})
	return out, err
}

// ListGroupEvents returns the group's events to its members.
func (s *Service) ListGroupEvents(ctx context.Context, sessionToken string, groupID int64) ([]EventDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	var out []EventDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if err := require(ctx, tx, user.ID, g, RoleMember); err != nil {
			return err
		}
		events, err := tx.ListEvents(ctx, g.ID)
		if err != nil {
			return err
		}
		out, err = eventDetails(ctx, tx, events)
		return err
	})
	return out, err
}

// JoinEvent adds the caller to the attendee roll. Joining twice is a no-op.
func (s *Service) JoinEvent(ctx context.Context, sessionToken string, eventID int64) (EventDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return EventDetail{}, err
	}
	var out EventDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		e, err := withEvent(ctx, tx, user.ID, eventID)
		if err != nil {
			return err
		}
		if err := tx.AddAttendee(ctx, e.ID, user.ID); err != nil {
			return err
		}
		out, err = eventDetail(ctx, tx, e)
		return err
	})
	if err != nil {
		return EventDetail{}, err
	}

	audit.Record(ctx, "event.joined", map[string]any{"event_id": eventID})
	return out, nil
}

// DeleteEvent removes the event and its attendance. Any member of the
// owning group may delete, not only the admin.
func (s *Service) DeleteEvent(ctx context.Context, sessionToken string, eventID int64) error {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}
	var groupID int64
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		e, err := withEvent(ctx, tx, user.ID, eventID)
		if err != nil {
			return err
		}
		groupID = e.GroupID
		return tx.DeleteEvent(ctx, e.ID)
	})
	if err != nil {
		return err
	}

	audit.Record(ctx, "event.deleted", map[string]any{"event_id": eventID, "group_id": groupID})
	return nil
}

// MyEvents lists events userID attends. Only that user may ask.
func (s *Service) MyEvents(ctx context.Context, sessionToken string, userID int64) ([]EventDetail, error) {
	ctx, user, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if user.ID != userID {
		return nil, errorf(ErrForbidden, "cannot view another user's events")
	}
	var out []EventDetail
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		events, err := tx.EventsForUser(ctx, userID)
		if err != nil {
			return err
		}
		out, err = eventDetails(ctx, tx, events)
		return err
	})
	return out, err
}

func eventDetails(ctx context.Context, tx Tx, events []Event) ([]EventDetail, error) {
	out := make([]EventDetail, 0, len(events))
	for _, e := range events {
		d, err := eventDetail(ctx, tx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

package campus

import (
	"context"
	"errors"
	"fmt"
)

// Service implements group membership, join requests, events and courses
// on top of a transactional Store.
type Service struct {
	store    Store
	sessions Sessions
}

// NewService wires the domain service.
func NewService(store Store, sessions Sessions) (*Service, error) {
	if store == nil {
		return nil, errors.New("campus: store is required")
	}
	if sessions == nil {
		return nil, errors.New("campus: session verifier is required")
	}
	return &Service{store: store, sessions: sessions}, nil
}

func errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func groupDetail(ctx context.Context, tx Tx, g Group) (GroupDetail, error) {
	course, err := tx.CourseByID(ctx, g.CourseID)
	if err != nil {
		return GroupDetail{}, err
	}
	admin, err := tx.Member(ctx, g.AdminID)
	if err != nil {
		return GroupDetail{}, err
	}
	members, err := tx.Members(ctx, g.ID)
	if err != nil {
		return GroupDetail{}, err
	}
	return GroupDetail{Group: g, Course: course, Admin: admin, Members: members}, nil
}

func groupDetails(ctx context.Context, tx Tx, groups []Group) ([]GroupDetail, error) {
	out := make([]GroupDetail, 0, len(groups))
	for _, g := range groups {
		d, err := groupDetail(ctx, tx, g)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func requestDetail(ctx context.Context, tx Tx, r JoinRequest) (RequestDetail, error) {
	u, err := tx.Member(ctx, r.UserID)
	if err != nil {
		return RequestDetail{}, err
	}
	return RequestDetail{JoinRequest: r, User: u}, nil
}

func eventDetail(ctx context.Context, tx Tx, e Event) (EventDetail, error) {
	attendees, err := tx.Attendees(ctx, e.ID)
	if err != nil {
		return EventDetail{}, err
	}
	return EventDetail{Event: e, Attendees: attendees}, nil
}

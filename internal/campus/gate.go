package campus

import (
	"context"
	"errors"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/auth"
)

// Role is the standing of a user within one group.
type Role int

const (
	RoleDenied Role = iota
	RoleMember
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	default:
		return "denied"
	}
}

// Authorize classifies userID against g. The explicit member set is the
// only source of membership; accepted requests are history and are not
// consulted.
func Authorize(ctx context.Context, tx Tx, userID int64, g Group) (Role, error) {
	if userID == g.AdminID {
		return RoleAdmin, nil
	}
	ok, err := tx.IsMember(ctx, g.ID, userID)
	if err != nil {
		return RoleDenied, err
	}
	if ok {
		return RoleMember, nil
	}
	return RoleDenied, nil
}

// Sessions resolves bearer session tokens. *auth.Service satisfies it.
type Sessions interface {
	VerifySession(ctx context.Context, sessionToken string) (auth.User, error)
}

// authenticate resolves the caller and tags ctx for audit logging.
func (s *Service) authenticate(ctx context.Context, sessionToken string) (context.Context, auth.User, error) {
	u, err := s.sessions.VerifySession(ctx, sessionToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		return ctx, auth.User{}, ErrUnauthorized
	}
	if err != nil {
		return ctx, auth.User{}, err
	}
	return audit.WithUserID(ctx, u.ID), u, nil
}

// require fails with ErrForbidden unless userID holds at least min in g.
func require(ctx context.Context, tx Tx, userID int64, g Group, min Role) error {
	role, err := Authorize(ctx, tx, userID, g)
	if err != nil {
		return err
	}
	if role < min {
		if min == RoleAdmin {
			return errorf(ErrForbidden, "only the group admin may do this")
		}
		return errorf(ErrForbidden, "not a member of this group")
	}
	return nil
}

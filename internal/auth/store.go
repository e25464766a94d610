package auth

import (
	"context"
	"time"
)

// UserStore persists users and their session state.
//
// Lookups return ErrNotFound when no row matches. CreateUser returns
// ErrAlreadyExists when the net id is taken and assigns u.ID on success.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id int64) (User, error)
	UserByNetID(ctx context.Context, netID string) (User, error)
	UserBySessionToken(ctx context.Context, token string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// SetSession replaces the session of userID unconditionally.
	SetSession(ctx context.Context, userID int64, s Session) error
	// RotateSession replaces the session of the user currently holding
	// updateToken. It fails with ErrNotFound if no user holds it, so two
	// concurrent renewals with the same token cannot both succeed.
	RotateSession(ctx context.Context, updateToken string, s Session) (User, error)
	// ExpireSession sets the session expiry of userID to at, leaving the
	// update token intact.
	ExpireSession(ctx context.Context, userID int64, at time.Time) error
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/obs"
	"studyhall.org/internal/validate"
)

// DefaultSessionTTL is how long a freshly issued session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// Service is the credential and session manager.
type Service struct {
	store      UserStore
	now        func() time.Time
	random     io.Reader
	sessionTTL time.Duration
	cost       int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSessionTTL configures session token lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl <= 0 {
			return fmt.Errorf("auth: session ttl must be positive, got %s", ttl)
		}
		s.sessionTTL = ttl
		return nil
	}
}

// WithBcryptCost sets the password hashing work factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) error {
		if cost > 0 {
			s.cost = cost
		}
		return nil
	}
}

// WithRandom replaces the token entropy source.
func WithRandom(r io.Reader) ServiceOption {
	return func(s *Service) error {
		if r != nil {
			s.random = r
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store UserStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &Service{
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
		random:     defaultRandom,
		sessionTTL: DefaultSessionTTL,
		cost:       DefaultBcryptCost,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// RegisterInput carries the fields accepted by Register.
type RegisterInput struct {
	NetID    string `json:"net_id" validate:"required,notblank"`
	Name     string `json:"name" validate:"required,notblank"`
	Bio      string `json:"bio"`
	Password string `json:"password" validate:"required"`
}

type loginInput struct {
	NetID    string `json:"net_id" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// Register creates a user and issues its first session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, Credentials, error) {
	if err := validate.Struct(in); err != nil {
		return User{}, Credentials{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	netID := strings.TrimSpace(in.NetID)
	name := strings.TrimSpace(in.Name)
	if _, err := s.store.UserByNetID(ctx, netID); err == nil {
		return User{}, Credentials{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, Credentials{}, err
	}

	digest, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return User{}, Credentials{}, err
	}
	session, err := s.newSession(s.now())
	if err != nil {
		return User{}, Credentials{}, err
	}
	u := User{
		NetID:          netID,
		Name:           name,
		Bio:            strings.TrimSpace(in.Bio),
		PasswordDigest: digest,
		Session:        session,
	}
	// The store's unique constraint settles concurrent registrations.
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return User{}, Credentials{}, err
	}

	obs.SessionsIssued.WithLabelValues("register").Inc()
	audit.Record(audit.WithUserID(ctx, u.ID), "user.registered", map[string]any{"net_id": u.NetID})
	return u, credentialsOf(u.Session), nil
}

// Login verifies the password and always issues a fresh session, so a
// successful login never hands back an already expired token.
func (s *Service) Login(ctx context.Context, netID, password string) (Credentials, error) {
	if err := validate.Struct(loginInput{NetID: netID, Password: password}); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	netID = strings.TrimSpace(netID)
	u, err := s.store.UserByNetID(ctx, netID)
	if errors.Is(err, ErrNotFound) {
		return Credentials{}, ErrInvalidCredentials
	}
	if err != nil {
		return Credentials{}, err
	}
	if err := VerifyPassword(u.PasswordDigest, password); err != nil {
		return Credentials{}, ErrInvalidCredentials
	}

	session, err := s.newSession(s.now())
	if err != nil {
		return Credentials{}, err
	}
	if err := s.store.SetSession(ctx, u.ID, session); err != nil {
		return Credentials{}, err
	}

	obs.SessionsIssued.WithLabelValues("login").Inc()
	audit.Record(audit.WithUserID(ctx, u.ID), "session.login", nil)
	return credentialsOf(session), nil
}

// RenewSession exchanges an update token for a new session and a new
// update token. The presented update token is void afterwards.
func (s *Service) RenewSession(ctx context.Context, updateToken string) (Credentials, error) {
	if strings.TrimSpace(updateToken) == "" {
		return Credentials{}, ErrInvalidToken
	}
	session, err := s.newSession(s.now())
	if err != nil {
		return Credentials{}, err
	}
	u, err := s.store.RotateSession(ctx, updateToken, session)
	if errors.Is(err, ErrNotFound) {
		return Credentials{}, ErrInvalidToken
	}
	if err != nil {
		return Credentials{}, err
	}

	obs.SessionsIssued.WithLabelValues("renew").Inc()
	audit.Record(audit.WithUserID(ctx, u.ID), "session.renewed", nil)
	return credentialsOf(session), nil
}

// Logout expires the session immediately. The update token survives and
// can mint a new session later.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	u, err := s.VerifySession(ctx, sessionToken)
	if err != nil {
		return err
	}
	if err := s.store.ExpireSession(ctx, u.ID, s.now()); err != nil {
		return err
	}
	audit.Record(audit.WithUserID(ctx, u.ID), "session.logout", nil)
	return nil
}

// VerifySession resolves a session token to its user. The token is valid
// iff it matches the stored value and now is strictly before the expiry.
func (s *Service) VerifySession(ctx context.Context, sessionToken string) (User, error) {
	if strings.TrimSpace(sessionToken) == "" {
		return User{}, ErrInvalidToken
	}
	u, err := s.store.UserBySessionToken(ctx, sessionToken)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	if !u.Session.Active(s.now()) {
		return User{}, ErrInvalidToken
	}
	return u, nil
}

// ListUsers returns every user's public profile ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]Profile, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

// UserByNetID returns the public profile for netID.
func (s *Service) UserByNetID(ctx context.Context, netID string) (Profile, error) {
	u, err := s.store.UserByNetID(ctx, strings.TrimSpace(netID))
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

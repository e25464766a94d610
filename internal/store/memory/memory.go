// Package memory is an in-process store used when no database is
// configured and throughout the tests. Transactions are serialized by a
// single mutex and run against a copy of the state that replaces the
// original only on success.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"studyhall.org/internal/auth"
	"studyhall.org/internal/campus"
)

// Store holds all entities in maps keyed by id.
type Store struct {
	mu sync.Mutex
	st *state
}

var (
	_ auth.UserStore = (*Store)(nil)
	_ campus.Store   = (*Store)(nil)
)

type state struct {
	seq map[string]int64

	users     map[int64]auth.User
	courses   map[int64]campus.Course
	groups    map[int64]campus.Group
	members   map[int64]map[int64]struct{}
	requests  map[int64]campus.JoinRequest
	events    map[int64]campus.Event
	attendees map[int64]map[int64]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		seq:       map[string]int64{},
		users:     map[int64]auth.User{},
		courses:   map[int64]campus.Course{},
		groups:    map[int64]campus.Group{},
		members:   map[int64]map[int64]struct{}{},
		requests:  map[int64]campus.JoinRequest{},
		events:    map[int64]campus.Event{},
		attendees: map[int64]map[int64]struct{}{},
	}}
}

func (st *state) next(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

func (st *state) clone() *state {
	c := &state{
		seq:       make(map[string]int64, len(st.seq)),
		users:     make(map[int64]auth.User, len(st.users)),
		courses:   make(map[int64]campus.Course, len(st.courses)),
		groups:    make(map[int64]campus.Group, len(st.groups)),
		members:   make(map[int64]map[int64]struct{}, len(st.members)),
		requests:  make(map[int64]campus.JoinRequest, len(st.requests)),
		events:    make(map[int64]campus.Event, len(st.events)),
		attendees: make(map[int64]map[int64]struct{}, len(st.attendees)),
	}
	for k, v := range st.seq {
		c.seq[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.courses {
		c.courses[k] = v
	}
	for k, v := range st.groups {
		c.groups[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	c.members = cloneSets(st.members)
	c.attendees = cloneSets(st.attendees)
	return c
}

func cloneSets(in map[int64]map[int64]struct{}) map[int64]map[int64]struct{} {
	out := make(map[int64]map[int64]struct{}, len(in))
	for k, set := range in {
		cp := make(map[int64]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		out[k] = cp
	}
	return out
}

// InTx runs fn against a private copy of the state and publishes the copy
// only if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx campus.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.users {
		if existing.NetID == u.NetID {
			return auth.ErrAlreadyExists
		}
	}
	u.ID = s.st.next("users")
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) UserByID(_ context.Context, id int64) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByNetID(_ context.Context, netID string) (auth.User, error) {
	return s.findUser(func(u auth.User) bool { return u.NetID == netID })
}

func (s *Store) UserBySessionToken(_ context.Context, token string) (auth.User, error) {
	return s.findUser(func(u auth.User) bool { return u.SessionToken == token })
}

func (s *Store) findUser(match func(auth.User) bool) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if match(u) {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.User, 0, len(s.st.users))
	for _, u := range s.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetSession(_ context.Context, userID int64, sess auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Session = sess
	s.st.users[userID] = u
	return nil
}

func (s *Store) RotateSession(_ context.Context, updateToken string, sess auth.Session) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.st.users {
		if u.UpdateToken == updateToken {
			u.Session = sess
			s.st.users[id] = u
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s *Store) ExpireSession(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.SessionExpiresAt = at
	s.st.users[userID] = u
	return nil
}

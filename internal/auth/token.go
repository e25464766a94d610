package auth

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"
)

// tokenBytes is the amount of entropy behind every session and update token.
const tokenBytes = 64

func newToken(r io.Reader) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Service) newSession(now time.Time) (Session, error) {
	session, err := newToken(s.random)
	if err != nil {
		return Session{}, err
	}
	update, err := newToken(s.random)
	if err != nil {
		return Session{}, err
	}
	return Session{
		SessionToken:     session,
		SessionExpiresAt: now.Add(s.sessionTTL),
		UpdateToken:      update,
	}, nil
}

var defaultRandom io.Reader = rand.Reader

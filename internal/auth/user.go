package auth

import "time"

// User is a registered account together with its current session state.
type User struct {
	ID             int64
	NetID          string
	Name           string
	Bio            string
	PasswordDigest string
	Session
}

// Session holds the bearer credentials issued to a user.
// SessionToken is valid strictly before SessionExpiresAt; UpdateToken is
// single use and mints the next Session.
type Session struct {
	SessionToken     string
	SessionExpiresAt time.Time
	UpdateToken      string
}

// Active reports whether the session token is still valid at now.
func (s Session) Active(now time.Time) bool {
	return s.SessionToken != "" && now.Before(s.SessionExpiresAt)
}

// Profile is the public view of a user. It never carries secrets.
type Profile struct {
	ID    int64  `json:"id"`
	NetID string `json:"net_id"`
	Name  string `json:"name"`
	Bio   string `json:"bio"`
}

// Profile strips credentials from u.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, NetID: u.NetID, Name: u.Name, Bio: u.Bio}
}

// Credentials is what callers receive after register, login and renew.
type Credentials struct {
	SessionToken      string    `json:"session_token"`
	SessionExpiration time.Time `json:"session_expiration"`
	UpdateToken       string    `json:"update_token"`
}

func credentialsOf(s Session) Credentials {
	return Credentials{
		SessionToken:      s.SessionToken,
		SessionExpiration: s.SessionExpiresAt,
		UpdateToken:       s.UpdateToken,
	}
}

package domain

import "time"

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token set issued by the identity service. The application
// keeps it as an opaque, read-only reference keyed by a browser session id.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within d of now.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	return s == nil || !now.Add(d).Before(s.ExpiresAt)
}

// EventType names a session change.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// SessionEvent is pushed to subscribers of a browser session.
// Session is nil for EventSignedOut.
type SessionEvent struct {
	Type    EventType `json:"type"`
	Session *Session  `json:"session,omitempty"`
	At      time.Time `json:"at"`
}

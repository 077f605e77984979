package identity

import (
	"errors"
	"time"
)

// ErrInvalidCode is returned when the identity service rejects an
// authorization code. Codes are single-use: a second exchange of the same
// code fails with this error.
var ErrInvalidCode = errors.New("invalid or expired authorization code")

// ErrNoSession is returned when a session lookup finds no active session.
var ErrNoSession = errors.New("no active session")

// User is the opaque identity handle for a signed-in user.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session carries the authenticated identity plus its expiry.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"-"`
	User         User      `json:"user"`
}

// Expired reports whether the session is past its expiry timestamp.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// sessionEnvelope is the wire shape of a session response.
type sessionEnvelope struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

func (e *sessionEnvelope) toSession() *Session {
	s := &Session{
		AccessToken:  e.AccessToken,
		RefreshToken: e.RefreshToken,
		User:         e.User,
	}
	switch {
	case e.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(e.ExpiresAt, 0)
	case e.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(e.ExpiresIn) * time.Second)
	}
	return s
}

// errorEnvelope is the wire shape of an identity service error response.
type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (e *errorEnvelope) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

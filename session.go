package coach

import (
	"context"
	"time"
)

// Session is the authenticated token pair identifying the current user.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero when the service did not report one
}

// Valid reports whether both tokens are present.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Credentials are the email/password pair submitted at sign-in or sign-up.
// They are never persisted.
type Credentials struct {
	Email    string
	Password string
}

// SessionStore persists the token pair across process restarts.
// Only the two tokens are stored; expiry is not.
//
// Load returns ErrNoSession when nothing is stored.
type SessionStore interface {
	Load() (Session, error)
	Save(s Session) error
	Clear() error
}

// AuthService performs the remote authentication calls.
//
// Implementations return an *HTTPError for non-success statuses and a
// plain (wrapped) error for transport failures.
type AuthService interface {
	SignIn(ctx context.Context, c Credentials) (Session, error)
	SignUp(ctx context.Context, c Credentials) error
	// Refresh exchanges a refresh token for a new access token. The returned
	// Session carries AccessToken and ExpiresAt only.
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// TokenSource supplies the access token attached to authenticated requests.
type TokenSource interface {
	AccessToken() string
}

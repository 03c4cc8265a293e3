package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnauthorized is returned when authentication is required but not present.
// The backend reports it for missing, expired or rejected credentials.
var ErrUnauthorized = errors.New("unauthorized: authentication required")

// ErrForbidden is returned when authentication is present but insufficient.
var ErrForbidden = errors.New("forbidden: insufficient permissions")

// User is the authenticated identity.
// Intentionally minimal: no catch-all claims map.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the user has role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName returns the name, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Credentials are submitted by the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is submitted by the sign-up form.
type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AcceptTerms bool   `json:"accept_terms"`
}

// State is a snapshot of the session.
type State struct {
	User    *User
	Loading bool
	Error   string
}

// Authenticated reports whether the snapshot holds a user.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Client is the backend contract the store depends on.
// Implementations own token handling; the store never sees tokens.
type Client interface {
	// Login exchanges credentials for a session and returns its user.
	Login(ctx context.Context, creds Credentials) (*User, error)

	// Register creates an account and signs it in.
	Register(ctx context.Context, reg Registration) (*User, error)

	// CurrentUser returns the user of the current session.
	// It returns ErrUnauthorized when there is none.
	CurrentUser(ctx context.Context) (*User, error)

	// Refresh renews the session using the refresh credential.
	Refresh(ctx context.Context) error

	// Logout ends the session on the backend.
	Logout(ctx context.Context) error
}

// StatusCode maps auth errors to HTTP status codes.
//
// Example:
//
//	if code, ok := auth.StatusCode(err); ok {
//	    w.WriteHeader(code)
//	}
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, true
	default:
		return 0, false
	}
}

// FromStatus returns the auth error for an HTTP status code, or nil.
func FromStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return nil
	}
}

// IsAuthError returns true if the error is an authentication or authorization error.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// Package credstore keeps backend credentials on the server side of a
// portal session. The browser never sees tokens; each session is keyed by
// its portal session ID.
package credstore

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long an unused credential is kept.
const DefaultTTL = 24 * time.Hour

// Errors returned by stores. Use errors.Is to check them.
var (
	ErrNotFound           = errors.New("credstore: credential not found")
	ErrEmptyKey           = errors.New("credstore: empty key")
	ErrEmptyConnectionURL = errors.New("credstore: empty redis connection URL")
	ErrInvalidURL         = errors.New("credstore: failed to parse redis connection URL")
	ErrNotReady           = errors.New("credstore: redis is not ready")
)

// Credential is the token pair issued by the backend.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the access token expired at now.
// A zero ExpiresAt never expires.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store persists credentials by key.
type Store interface {
	// Get returns the credential for key or ErrNotFound.
	Get(ctx context.Context, key string) (Credential, error)

	// Put stores cred under key, replacing any previous value.
	Put(ctx context.Context, key string, cred Credential) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

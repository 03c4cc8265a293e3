package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Messages stored in State.Error.
const (
	MessageInvalidCredentials = "Invalid email or password."
	MessageGeneric            = "Something went wrong. Please try again."
)

// PublicError is implemented by errors that carry a message safe to show.
type PublicError interface {
	error
	PublicMessage() string
}

// Store holds the session state of one connection.
type Store struct {
	client Client
	logger *slog.Logger

	// ops serializes backend operations.
	ops sync.Mutex

	mu        sync.Mutex
	state     State
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func(State)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// StartLoading marks the store as loading until the first operation
// completes. Use it when Restore runs right after construction.
func StartLoading() StoreOption {
	return func(s *Store) {
		s.state.Loading = true
	}
}

// NewStore creates a store backed by client.
func NewStore(client Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		logger: slog.Default().With("component", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every change to Loading or User.
// The returned function removes the listener; calling it twice is safe.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	return s.State().User != nil
}

// IsLoading reports whether an operation is establishing the session.
func (s *Store) IsLoading() bool {
	return s.State().Loading
}

// User returns the signed-in user, or nil.
func (s *Store) User() *User {
	return s.State().User
}

// ClearError clears the user-facing error.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Error = "" })
}

// Login signs in with creds. On failure the store keeps no user and
// records a user-facing error.
func (s *Store) Login(ctx context.Context, creds Credentials) bool {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	user, err := s.client.Login(ctx, creds)
	if err != nil {
		s.logger.Info("login failed", "error", err)
		s.update(func(st *State) {
			st.User = nil
			st.Loading = false
			st.Error = publicMessage(err)
		})
		return false
	}

	s.update(func(st *State) {
		st.User = user
		st.Loading = false
	})
	return true
}

// Register creates an account and signs it in.
func (s *Store) Register(ctx context.Context, reg Registration) bool {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	user, err := s.client.Register(ctx, reg)
	if err != nil {
		s.logger.Info("registration failed", "error", err)
		s.update(func(st *State) {
			st.Loading = false
			st.Error = publicMessage(err)
		})
		return false
	}

	s.update(func(st *State) {
		st.User = user
		st.Loading = false
	})
	return true
}

// Logout ends the session. The local session is cleared even when the
// backend call fails.
func (s *Store) Logout(ctx context.Context) {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.client.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}
	s.update(func(st *State) {
		st.User = nil
		st.Loading = false
		st.Error = ""
	})
}

// RefreshToken renews the session credentials. A failed refresh signs
// the user out locally.
func (s *Store) RefreshToken(ctx context.Context) bool {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.refreshLocked(ctx)
}

// GetCurrentUser asks the backend who is signed in and stores the answer.
func (s *Store) GetCurrentUser(ctx context.Context) bool {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.currentUserLocked(ctx)
}

// Restore establishes the session at connection start: it asks for the
// current user, and when the access credential was rejected, refreshes
// once and asks again. Loading is true for the whole operation.
func (s *Store) Restore(ctx context.Context) bool {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.update(func(st *State) { st.Loading = true })
	defer s.update(func(st *State) { st.Loading = false })

	user, err := s.client.CurrentUser(ctx)
	if err == nil {
		s.setUser(user)
		return true
	}
	if !errors.Is(err, ErrUnauthorized) {
		s.logger.Warn("session restore failed", "error", err)
		s.setUser(nil)
		return false
	}

	if !s.refreshLocked(ctx) {
		return false
	}
	return s.currentUserLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) bool {
	if err := s.client.Refresh(ctx); err != nil {
		s.logger.Debug("token refresh failed", "error", err)
		s.setUser(nil)
		return false
	}
	return true
}

func (s *Store) currentUserLocked(ctx context.Context) bool {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug("current user unavailable", "error", err)
		s.setUser(nil)
		return false
	}
	s.setUser(user)
	return true
}

func (s *Store) setUser(user *User) {
	s.update(func(st *State) { st.User = user })
}

// update applies fn and notifies listeners when Loading or User changed.
// Listeners run after the lock is released.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	before := s.state
	fn(&s.state)
	after := s.state
	var fns []func(State)
	if before.Loading != after.Loading || before.User != after.User {
		fns = make([]func(State), len(s.listeners))
		for i, l := range s.listeners {
			fns[i] = l.fn
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(after)
	}
}

func publicMessage(err error) string {
	var pe PublicError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return MessageInvalidCredentials
	case errors.As(err, &pe) && pe.PublicMessage() != "":
		return pe.PublicMessage()
	default:
		return MessageGeneric
	}
}

package portaltest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vango-dev/linkportal/pkg/api"
	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/portal"
)

// Backend operations, for Calls, Fail and Block.
const (
	OpLogin          = "login"
	OpRegister       = "register"
	OpCurrentUser    = "me"
	OpRefresh        = "refresh"
	OpLogout         = "logout"
	OpForgotPassword = "forgot-password"
	OpListURLs       = "list-urls"
	OpGetURL         = "get-url"
)

type account struct {
	user     auth.User
	password string
}

// Backend is an in-memory shortener backend shared by many sessions.
// Each session sees it through the BackendFactory returned by Factory.
type Backend struct {
	mu       sync.Mutex
	accounts map[string]account
	urls     []api.ShortURL
	signedIn map[string]string
	calls    map[string]int
	failures map[string]error
	gates    map[string]chan struct{}
	resets   []string
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		accounts: make(map[string]account),
		signedIn: make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

// AddAccount registers a user who can sign in with password.
func (b *Backend) AddAccount(user auth.User, password string) {
	b.mu.Lock()
	b.accounts[user.Email] = account{user: user, password: password}
	b.mu.Unlock()
}

// AddURL adds a link visible to every signed-in user.
func (b *Backend) AddURL(u api.ShortURL) {
	b.mu.Lock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	}
	b.urls = append(b.urls, u)
	b.mu.Unlock()
}

// SignIn marks sessionID as signed in as email, as if a previous
// connection had logged in.
func (b *Backend) SignIn(sessionID, email string) {
	b.mu.Lock()
	b.signedIn[sessionID] = email
	b.mu.Unlock()
}

// SignedIn reports who sessionID is signed in as.
func (b *Backend) SignedIn(sessionID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.signedIn[sessionID]
	return email, ok
}

// Fail makes op return err until Fail is called again with a nil error.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	if err == nil {
		delete(b.failures, op)
	} else {
		b.failures[op] = err
	}
	b.mu.Unlock()
}

// Block holds calls to op until release is called or their context ends.
func (b *Backend) Block(op string) (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gates[op] = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gates[op] == gate {
				delete(b.gates, op)
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how often op was called.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Resets returns the addresses password resets were requested for.
func (b *Backend) Resets() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.resets...)
}

// Factory returns a factory handing each session its own view.
func (b *Backend) Factory() portal.BackendFactory {
	return func(sessionID string) portal.Backend {
		return &sessionBackend{backend: b, id: sessionID}
	}
}

// enter records a call, waits for any gate and returns the configured failure.
func (b *Backend) enter(ctx context.Context, op string) error {
	b.mu.Lock()
	b.calls[op]++
	gate := b.gates[op]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[op]
}

type sessionBackend struct {
	backend *Backend
	id      string
}

func (s *sessionBackend) Login(ctx context.Context, creds auth.Credentials) (*auth.User, error) {
	b := s.backend
	if err := b.enter(ctx, OpLogin); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[creds.Email]
	if !ok || acc.password != creds.Password {
		return nil, auth.ErrUnauthorized
	}
	b.signedIn[s.id] = creds.Email
	u := acc.user
	return &u, nil
}

func (s *sessionBackend) Register(ctx context.Context, reg auth.Registration) (*auth.User, error) {
	b := s.backend
	if err := b.enter(ctx, OpRegister); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[reg.Email]; exists {
		return nil, &api.Error{Status: http.StatusConflict, Message: "Email is already registered."}
	}
	u := auth.User{ID: fmt.Sprintf("u%d", len(b.accounts)+1), Email: reg.Email, Name: reg.Name}
	b.accounts[reg.Email] = account{user: u, password: reg.Password}
	b.signedIn[s.id] = reg.Email
	return &u, nil
}

func (s *sessionBackend) CurrentUser(ctx context.Context) (*auth.User, error) {
	b := s.backend
	if err := b.enter(ctx, OpCurrentUser); err != nil {
		return nil, err
	}
	return s.user()
}

func (s *sessionBackend) Refresh(ctx context.Context) error {
	b := s.backend
	if err := b.enter(ctx, OpRefresh); err != nil {
		return err
	}
	_, err := s.user()
	return err
}

func (s *sessionBackend) Logout(ctx context.Context) error {
	b := s.backend
	err := b.enter(ctx, OpLogout)
	b.mu.Lock()
	delete(b.signedIn, s.id)
	b.mu.Unlock()
	return err
}

func (s *sessionBackend) ForgotPassword(ctx context.Context, email string) error {
	b := s.backend
	if err := b.enter(ctx, OpForgotPassword); err != nil {
		return err
	}
	b.mu.Lock()
	b.resets = append(b.resets, email)
	b.mu.Unlock()
	return nil
}

func (s *sessionBackend) ListURLs(ctx context.Context) ([]api.ShortURL, error) {
	b := s.backend
	if err := b.enter(ctx, OpListURLs); err != nil {
		return nil, err
	}
	if _, err := s.user(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.ShortURL(nil), b.urls...), nil
}

func (s *sessionBackend) GetURL(ctx context.Context, id string) (*api.ShortURL, error) {
	b := s.backend
	if err := b.enter(ctx, OpGetURL); err != nil {
		return nil, err
	}
	if _, err := s.user(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.urls {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, &api.Error{Status: http.StatusNotFound, Message: "Link not found."}
}

func (s *sessionBackend) user() (*auth.User, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.signedIn[s.id]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	u := b.accounts[email].user
	return &u, nil
}

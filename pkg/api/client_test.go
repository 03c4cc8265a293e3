package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/credstore"
)

// backend is a fake shortener API.
type backend struct {
	mu           sync.Mutex
	access       string
	refresh      string
	expiresIn    int64
	rotations    int
	refreshFails bool
	logoutStatus int
	forgot       []string
	requests     []string
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	b.mu.Unlock()
}

func (b *backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access != "" && r.Header.Get("Authorization") == "Bearer "+b.access
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) handler() http.Handler {
	user := auth.User{ID: "u1", Email: "ada@example.com", Name: "Ada"}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var creds auth.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
			return
		}
		b.mu.Lock()
		b.access, b.refresh = "access-1", "refresh-1"
		resp := tokenResponse{AccessToken: b.access, RefreshToken: b.refresh, ExpiresIn: b.expiresIn, User: &user}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var reg auth.Registration
		_ = json.NewDecoder(r.Body).Decode(&reg)
		if reg.Email == user.Email {
			writeJSON(w, http.StatusConflict, errorBody{Message: "Email already registered."})
			return
		}
		b.mu.Lock()
		b.access, b.refresh = "access-new", "refresh-new"
		resp := tokenResponse{AccessToken: b.access, RefreshToken: b.refresh}
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, resp)
	})

	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var req refreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.refreshFails || req.RefreshToken != b.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.rotations++
		b.access = "access-rotated"
		writeJSON(w, http.StatusOK, tokenResponse{AccessToken: b.access, ExpiresIn: 3600})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		status := b.logoutStatus
		b.mu.Unlock()
		if status != 0 {
			http.Error(w, "logout exploded", status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var req forgotPasswordRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.forgot = append(b.forgot, req.Email)
		b.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("GET /urls", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{URLs: []ShortURL{
			{ID: "42", Code: "abc", TargetURL: "https://example.com", Clicks: 7},
		}})
	})

	mux.HandleFunc("GET /urls/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PathValue("id") != "42" {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
			return
		}
		writeJSON(w, http.StatusOK, ShortURL{ID: "42", Code: "abc"})
	})

	return mux
}

func (b *backend) requestLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func newTestClient(t *testing.T, b *backend) (*Client, *credstore.Memory) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	creds := credstore.NewMemory()
	c := New(srv.URL+"/", creds, "session-1",
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return c, creds
}

func TestLoginStoresCredential(t *testing.T) {
	c, creds := newTestClient(t, &backend{expiresIn: 3600})
	ctx := context.Background()

	user, err := c.Login(ctx, auth.Credentials{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}

	cred, err := creds.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("credential not stored: %v", err)
	}
	if cred.AccessToken != "access-1" || cred.RefreshToken != "refresh-1" || cred.ExpiresAt.IsZero() {
		t.Errorf("credential = %+v", cred)
	}

	me, err := c.CurrentUser(ctx)
	if err != nil || me.Email != "ada@example.com" {
		t.Errorf("CurrentUser() = %+v, %v", me, err)
	}
}

func TestLoginRejected(t *testing.T) {
	c, creds := newTestClient(t, &backend{})
	_, err := c.Login(context.Background(), auth.Credentials{Email: "ada@example.com", Password: "wrong"})
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want %v", err, auth.ErrUnauthorized)
	}
	if creds.Len() != 0 {
		t.Error("rejected login stored a credential")
	}
}

func TestRegister(t *testing.T) {
	b := &backend{}
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	_, err := c.Register(ctx, auth.Registration{Email: "ada@example.com", Password: "x"})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("Register() error = %v, want a 409", err)
	}
	if apiErr.PublicMessage() != "Email already registered." {
		t.Errorf("PublicMessage() = %q", apiErr.PublicMessage())
	}

	// no user in the response: the client asks for it
	user, err := c.Register(ctx, auth.Registration{Email: "grace@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}
	reqs := b.requestLog()
	if reqs[len(reqs)-1] != "GET /auth/me" {
		t.Errorf("requests = %v, want a trailing GET /auth/me", reqs)
	}
}

func TestCurrentUserWithoutCredential(t *testing.T) {
	b := &backend{}
	c, _ := newTestClient(t, b)

	if _, err := c.CurrentUser(context.Background()); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("CurrentUser() error = %v, want %v", err, auth.ErrUnauthorized)
	}
	if len(b.requestLog()) != 0 {
		t.Error("request sent without a credential")
	}
}

func TestRefresh(t *testing.T) {
	b := &backend{}
	c, creds := newTestClient(t, b)
	ctx := context.Background()

	if err := c.Refresh(ctx); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("Refresh() without credential error = %v", err)
	}

	if _, err := c.Login(ctx, auth.Credentials{Password: "secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	cred, _ := creds.Get(ctx, "session-1")
	if cred.AccessToken != "access-rotated" || cred.RefreshToken != "refresh-1" {
		t.Errorf("credential after refresh = %+v", cred)
	}

	b.mu.Lock()
	b.refreshFails = true
	b.mu.Unlock()
	if err := c.Refresh(ctx); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("Refresh() error = %v, want %v", err, auth.ErrUnauthorized)
	}
	if _, err := creds.Get(ctx, "session-1"); !errors.Is(err, credstore.ErrNotFound) {
		t.Error("rejected refresh should drop the credential")
	}
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	b := &backend{expiresIn: 60}
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if _, err := c.Login(ctx, auth.Credentials{Password: "secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	urls, err := c.ListURLs(ctx)
	if err != nil {
		t.Fatalf("ListURLs() error = %v", err)
	}
	if len(urls) != 1 || urls[0].ID != "42" {
		t.Errorf("urls = %+v", urls)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rotations != 1 {
		t.Errorf("rotations = %d, want 1", b.rotations)
	}
}

func TestLogoutDropsCredential(t *testing.T) {
	b := &backend{logoutStatus: http.StatusInternalServerError}
	c, creds := newTestClient(t, b)
	ctx := context.Background()

	if _, err := c.Login(ctx, auth.Credentials{Password: "secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	err := c.Logout(ctx)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("Logout() error = %v, want a 500", err)
	}
	if !strings.Contains(apiErr.Message, "logout exploded") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.PublicMessage() != "" {
		t.Error("server errors should have no public message")
	}
	if creds.Len() != 0 {
		t.Error("credential kept after Logout")
	}

	// signed out already: nothing to tell the backend
	if err := c.Logout(ctx); err != nil {
		t.Errorf("second Logout() error = %v", err)
	}
}

func TestGetURL(t *testing.T) {
	c, _ := newTestClient(t, &backend{})
	ctx := context.Background()
	if _, err := c.Login(ctx, auth.Credentials{Password: "secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	u, err := c.GetURL(ctx, "42")
	if err != nil || u.Code != "abc" {
		t.Fatalf("GetURL(42) = %+v, %v", u, err)
	}

	_, err = c.GetURL(ctx, "nope")
	if !IsNotFound(err) {
		t.Errorf("GetURL(nope) error = %v, want not found", err)
	}
}

func TestForgotPassword(t *testing.T) {
	b := &backend{}
	c, _ := newTestClient(t, b)

	if err := c.ForgotPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.forgot) != 1 || b.forgot[0] != "ada@example.com" {
		t.Errorf("forgot = %v", b.forgot)
	}
}

func TestErrorString(t *testing.T) {
	if got := (&Error{Status: 502}).Error(); got != "api: 502 Bad Gateway" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&Error{Status: 400, Message: "bad"}).Error(); got != "api: 400 bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestClientImplementsAuthClient(t *testing.T) {
	var _ auth.Client = (*Client)(nil)
}

package authguard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/router"
	"github.com/vango-dev/linkportal/pkg/toast"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSession is a hand-driven session.
type fakeSession struct {
	mu               sync.Mutex
	loading          bool
	authed           bool
	currentUserOK    bool
	currentUserCalls int
	listeners        map[int]func(auth.State)
	nextID           int
}

func (s *fakeSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *fakeSession) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *fakeSession) GetCurrentUser(ctx context.Context) bool {
	s.mu.Lock()
	s.currentUserCalls++
	ok := s.currentUserOK
	s.mu.Unlock()
	if ok {
		s.set(false, true)
	}
	return ok
}

func (s *fakeSession) Subscribe(fn func(auth.State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(auth.State))
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *fakeSession) set(loading, authed bool) {
	s.mu.Lock()
	s.loading = loading
	s.authed = authed
	st := auth.State{Loading: loading}
	if authed {
		st.User = &auth.User{ID: "u1"}
	}
	fns := make([]func(auth.State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *fakeSession) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// fakeNavigator records navigations.
type fakeNavigator struct {
	mu      sync.Mutex
	current *router.Definition
	paths   []string
	replace []bool
}

func (n *fakeNavigator) Navigate(path string, opts ...router.NavigateOption) {
	var o router.NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.replace = append(n.replace, o.Replace)
	n.mu.Unlock()
}

func (n *fakeNavigator) CurrentRoute() *router.Definition {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *fakeNavigator) navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func route(def router.Definition) *router.ResolvedRoute {
	return &router.ResolvedRoute{Definition: def, Path: def.Path}
}

func TestCanActivateProtected(t *testing.T) {
	tests := []struct {
		name    string
		loading bool
		authed  bool
		want    router.GuardResult
	}{
		{"loading", true, false, router.Allow()},
		{"authenticated", false, true, router.Allow()},
		{"anonymous", false, false, router.RedirectTo("/login", "Authentication required.")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&fakeSession{loading: tt.loading, authed: tt.authed}, WithLogger(quiet))
			if got := g.CanActivateProtected(context.Background()); got != tt.want {
				t.Errorf("CanActivateProtected() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanActivateAuth(t *testing.T) {
	g := New(&fakeSession{authed: true}, WithHomePath("/dashboard"), WithLogger(quiet))
	want := router.RedirectTo("/dashboard", "Already authenticated")
	if got := g.CanActivateAuth(context.Background()); got != want {
		t.Errorf("CanActivateAuth() = %+v, want %+v", got, want)
	}

	g = New(&fakeSession{}, WithLogger(quiet))
	if got := g.CanActivateAuth(context.Background()); !got.CanActivate {
		t.Errorf("CanActivateAuth() = %+v, want allow", got)
	}
}

func TestCanActivateByRoute(t *testing.T) {
	protected := route(router.Definition{Path: "/dashboard", Component: "dashboard", RequiresAuth: true})
	guestOnly := route(router.Definition{Path: "/login", Component: "login", Meta: map[string]string{MetaGuestOnly: "true"}})
	public := route(router.Definition{Path: "/terms", Component: "terms"})

	anonymous := New(&fakeSession{}, WithLoginPath("/signin"), WithLogger(quiet))
	signedIn := New(&fakeSession{authed: true}, WithLogger(quiet))

	tests := []struct {
		name     string
		guard    *Guard
		to       *router.ResolvedRoute
		allowed  bool
		redirect string
	}{
		{"anonymous protected", anonymous, protected, false, "/signin"},
		{"anonymous guest-only", anonymous, guestOnly, true, ""},
		{"anonymous public", anonymous, public, true, ""},
		{"signed-in protected", signedIn, protected, true, ""},
		{"signed-in guest-only", signedIn, guestOnly, false, "/"},
		{"signed-in public", signedIn, public, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.guard.CanActivate(context.Background(), tt.to, nil)
			if err != nil {
				t.Fatalf("CanActivate() error = %v", err)
			}
			if got.CanActivate != tt.allowed || got.RedirectTo != tt.redirect {
				t.Errorf("CanActivate() = %+v, want allowed=%v redirect=%q", got, tt.allowed, tt.redirect)
			}
		})
	}
}

func TestExecuteGuard(t *testing.T) {
	rec := &toast.Recorder{}
	nav := &fakeNavigator{}
	g := New(&fakeSession{}, WithToasts(rec), WithNavigator(nav), WithLogger(quiet))

	if !g.ExecuteGuard(router.Allow()) {
		t.Error("ExecuteGuard(Allow) = false")
	}
	if rec.Len() != 0 || len(nav.navigations()) != 0 {
		t.Error("approval should have no side effects")
	}

	if g.ExecuteGuard(router.RedirectTo("/login", "Authentication required.")) {
		t.Error("ExecuteGuard(redirect) = true")
	}
	if got := nav.navigations(); len(got) != 1 || got[0] != "/login" {
		t.Errorf("navigations = %v, want [/login]", got)
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Level != toast.TypeWarning || toasts[0].Message != "Authentication required." {
		t.Errorf("toasts = %+v", toasts)
	}

	if g.ExecuteGuard(router.Deny("")) {
		t.Error("ExecuteGuard(deny) = true")
	}
	if rec.Len() != 1 || len(nav.navigations()) != 1 {
		t.Error("silent denial should not toast or navigate")
	}
}

func TestExecuteGuardWithoutNavigator(t *testing.T) {
	g := New(&fakeSession{}, WithLogger(quiet))
	if g.ExecuteGuard(router.RedirectTo("/login", "")) {
		t.Error("ExecuteGuard(redirect) = true")
	}
}

func TestCheckAuthStatus(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		s := &fakeSession{authed: true}
		if !New(s, WithLogger(quiet)).CheckAuthStatus(context.Background()) {
			t.Error("CheckAuthStatus() = false")
		}
		if s.currentUserCalls != 0 {
			t.Error("should not fetch the current user when authenticated")
		}
	})

	t.Run("current user recovers session", func(t *testing.T) {
		s := &fakeSession{currentUserOK: true}
		if !New(s, WithLogger(quiet)).CheckAuthStatus(context.Background()) {
			t.Error("CheckAuthStatus() = false")
		}
		if s.currentUserCalls != 1 {
			t.Errorf("current user calls = %d, want 1", s.currentUserCalls)
		}
	})

	t.Run("no session", func(t *testing.T) {
		s := &fakeSession{}
		if New(s, WithLogger(quiet)).CheckAuthStatus(context.Background()) {
			t.Error("CheckAuthStatus() = true")
		}
		if s.currentUserCalls != 1 {
			t.Errorf("current user calls = %d, want 1", s.currentUserCalls)
		}
	})

	t.Run("waits for loading", func(t *testing.T) {
		s := &fakeSession{loading: true}
		g := New(s, WithLogger(quiet))

		done := make(chan bool)
		go func() { done <- g.CheckAuthStatus(context.Background()) }()

		deadline := time.Now().Add(2 * time.Second)
		for s.subscribers() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("CheckAuthStatus never subscribed")
			}
			time.Sleep(time.Millisecond)
		}
		s.set(false, true)

		select {
		case got := <-done:
			if !got {
				t.Error("CheckAuthStatus() = false after login finished")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("CheckAuthStatus did not return")
		}
		if s.subscribers() != 0 {
			t.Error("subscription leaked")
		}
	})

	t.Run("cancelled while loading", func(t *testing.T) {
		s := &fakeSession{loading: true}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if New(s, WithLogger(quiet)).CheckAuthStatus(ctx) {
			t.Error("CheckAuthStatus() = true")
		}
		if s.currentUserCalls != 0 {
			t.Error("cancelled check should not reach the backend")
		}
	})
}

func TestReconcile(t *testing.T) {
	rec := &toast.Recorder{}
	nav := &fakeNavigator{current: &router.Definition{Path: "/dashboard", RequiresAuth: true}}
	s := &fakeSession{loading: true}
	g := New(s, WithToasts(rec), WithLogger(quiet))
	g.Bind(nav)

	stop := g.Reconcile()
	defer stop()

	s.set(false, false)

	got := nav.navigations()
	if len(got) != 1 || got[0] != "/login" || !nav.replace[0] {
		t.Fatalf("navigations = %v (replace %v), want a replacing /login", got, nav.replace)
	}
	if rec.Len() != 1 {
		t.Errorf("toasts = %d, want 1", rec.Len())
	}

	// no loading transition, no redirect
	s.set(false, false)
	if len(nav.navigations()) != 1 {
		t.Error("Reconcile redirected without a loading transition")
	}
}

func TestReconcileIgnoresPublicAndAuthenticated(t *testing.T) {
	nav := &fakeNavigator{current: &router.Definition{Path: "/terms"}}
	s := &fakeSession{loading: true}
	g := New(s, WithNavigator(nav), WithLogger(quiet))
	stop := g.Reconcile()

	s.set(false, false)

	nav.current = &router.Definition{Path: "/dashboard", RequiresAuth: true}
	s.set(true, false)
	s.set(false, true)

	stop()
	s.set(true, false)
	s.set(false, false)

	if got := nav.navigations(); len(got) != 0 {
		t.Errorf("navigations = %v, want none", got)
	}
}

func committed(context.Context) error { return nil }

func TestMiddlewareRedirectsCommittedProtectedRoute(t *testing.T) {
	rec := &toast.Recorder{}
	dashboard := router.Definition{Path: "/dashboard", RequiresAuth: true}
	nav := &fakeNavigator{current: &dashboard}
	g := New(&fakeSession{}, WithToasts(rec), WithNavigator(nav), WithLogger(quiet))
	mw := g.Middleware()
	ctx := context.Background()

	if err := mw.Handle(ctx, &router.Navigation{Path: "/dashboard", Route: route(dashboard)}, committed); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	got := nav.navigations()
	if len(got) != 1 || got[0] != "/login" || !nav.replace[0] {
		t.Fatalf("navigations = %v (replace %v), want a replacing /login", got, nav.replace)
	}

	// the login page commits, then another protected route does
	login := router.Definition{Path: "/login"}
	nav.current = &login
	mw.Handle(ctx, &router.Navigation{Path: "/login", Route: route(login)}, committed)
	nav.current = &dashboard
	mw.Handle(ctx, &router.Navigation{Path: "/dashboard", Route: route(dashboard)}, committed)

	if got := nav.navigations(); len(got) != 2 {
		t.Errorf("navigations = %v, want a second redirect after the login page committed", got)
	}
	if rec.Len() != 2 {
		t.Errorf("toasts = %d, want 2", rec.Len())
	}
}

func TestMiddlewarePassesThrough(t *testing.T) {
	terms := router.Definition{Path: "/terms"}
	dashboard := router.Definition{Path: "/dashboard", RequiresAuth: true}
	nav := &fakeNavigator{current: &dashboard}
	g := New(&fakeSession{}, WithNavigator(nav), WithLogger(quiet))
	mw := g.Middleware()
	ctx := context.Background()

	if err := mw.Handle(ctx, &router.Navigation{Route: route(terms)}, committed); err != nil {
		t.Errorf("Handle(public) error = %v", err)
	}
	err := mw.Handle(ctx, &router.Navigation{Route: route(dashboard)}, func(context.Context) error {
		return router.ErrSuperseded
	})
	if err != router.ErrSuperseded {
		t.Errorf("Handle() error = %v, want ErrSuperseded", err)
	}

	authed := New(&fakeSession{authed: true}, WithNavigator(nav), WithLogger(quiet))
	authed.Middleware().Handle(ctx, &router.Navigation{Route: route(dashboard)}, committed)

	if got := nav.navigations(); len(got) != 0 {
		t.Errorf("navigations = %v, want none", got)
	}
}

func TestLoadingFinishedDuringCommitRedirectsOnce(t *testing.T) {
	rec := &toast.Recorder{}
	dashboard := router.Definition{Path: "/dashboard", RequiresAuth: true}
	nav := &fakeNavigator{current: &dashboard}
	s := &fakeSession{loading: true}
	g := New(s, WithToasts(rec), WithNavigator(nav), WithLogger(quiet))
	stop := g.Reconcile()
	defer stop()

	err := g.Middleware().Handle(context.Background(), &router.Navigation{Path: "/dashboard", Route: route(dashboard)}, func(context.Context) error {
		s.set(false, false)
		return nil
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := nav.navigations(); len(got) != 1 || got[0] != "/login" {
		t.Errorf("navigations = %v, want one /login", got)
	}
	if rec.Len() != 1 {
		t.Errorf("toasts = %d, want 1", rec.Len())
	}
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()
	dashboard := router.Definition{Path: "/dashboard", RequiresAuth: true}

	t.Run("signed in", func(t *testing.T) {
		nav := &fakeNavigator{current: &dashboard}
		g := New(&fakeSession{authed: true}, WithNavigator(nav), WithLogger(quiet))
		if !g.RequireAuth(ctx) {
			t.Error("RequireAuth() = false")
		}
		if len(nav.navigations()) != 0 {
			t.Error("signed-in check navigated")
		}
	})

	t.Run("signed out on protected route", func(t *testing.T) {
		rec := &toast.Recorder{}
		nav := &fakeNavigator{current: &dashboard}
		s := &fakeSession{}
		g := New(s, WithToasts(rec), WithNavigator(nav), WithLogger(quiet))

		if g.RequireAuth(ctx) || g.RequireAuth(ctx) {
			t.Error("RequireAuth() = true")
		}
		if s.currentUserCalls != 2 {
			t.Errorf("backend asked %d times, want 2", s.currentUserCalls)
		}
		if got := nav.navigations(); len(got) != 1 || got[0] != "/login" {
			t.Errorf("navigations = %v, want one pending /login", got)
		}
		if rec.Len() != 1 {
			t.Errorf("toasts = %d, want 1", rec.Len())
		}
	})

	t.Run("signed out on public route", func(t *testing.T) {
		nav := &fakeNavigator{current: &router.Definition{Path: "/terms"}}
		g := New(&fakeSession{}, WithNavigator(nav), WithLogger(quiet))
		if g.RequireAuth(ctx) {
			t.Error("RequireAuth() = true")
		}
		if len(nav.navigations()) != 0 {
			t.Error("public route redirected")
		}
	})
}

package authguard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/router"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// Route defaults.
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"

	// MetaGuestOnly marks routes only signed-out users may visit.
	MetaGuestOnly = "guestOnly"
)

// Session is the part of the session store the guard reads.
// *auth.Store implements it.
type Session interface {
	IsAuthenticated() bool
	IsLoading() bool
	GetCurrentUser(ctx context.Context) bool
	Subscribe(fn func(auth.State)) (unsubscribe func())
}

// Navigator issues navigations and reports the current route.
// *router.Router implements it.
type Navigator interface {
	Navigate(path string, opts ...router.NavigateOption)
	CurrentRoute() *router.Definition
}

// Guard gates routes on the session's authentication state.
type Guard struct {
	session   Session
	loginPath string
	homePath  string
	toasts    toast.Sink
	messages  *Messages
	logger    *slog.Logger

	mu        sync.Mutex
	navigator Navigator

	// Login redirects issued and not yet followed by a commit.
	redirect     sync.Mutex
	commits      uint64
	pending      bool
	pendingSince uint64
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath sets where unauthenticated users are sent.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithHomePath sets where authenticated users leave guest-only pages to.
func WithHomePath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.homePath = path
		}
	}
}

// WithToasts sets the sink used by ExecuteGuard and Reconcile.
func WithToasts(sink toast.Sink) Option {
	return func(g *Guard) {
		g.toasts = sink
	}
}

// WithLanguage localizes rejection reasons.
func WithLanguage(lang string) Option {
	return func(g *Guard) {
		g.messages = NewMessages(lang)
	}
}

// WithNavigator binds the navigator at construction.
func WithNavigator(nav Navigator) Option {
	return func(g *Guard) {
		g.navigator = nav
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a guard reading session.
func New(session Session, opts ...Option) *Guard {
	g := &Guard{
		session:   session,
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
		logger:    slog.Default().With("component", "authguard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.messages == nil {
		g.messages = NewMessages("en")
	}
	return g
}

// Bind sets the navigator used by ExecuteGuard and Reconcile. The router
// is usually built after its guards, so binding happens late.
func (g *Guard) Bind(nav Navigator) {
	g.mu.Lock()
	g.navigator = nav
	g.mu.Unlock()
}

func (g *Guard) nav() Navigator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.navigator
}

// CanActivate implements router.Guard. Routes requiring auth get the
// protected check, guest-only routes the auth-page check; the rest pass.
func (g *Guard) CanActivate(ctx context.Context, to, from *router.ResolvedRoute) (router.GuardResult, error) {
	switch {
	case to.Definition.RequiresAuth:
		return g.CanActivateProtected(ctx), nil
	case to.Definition.MetaFlag(MetaGuestOnly):
		return g.CanActivateAuth(ctx), nil
	default:
		return router.Allow(), nil
	}
}

// CanActivateProtected admits signed-in users. While the session is still
// loading it admits optimistically; Reconcile corrects the placement once
// loading finishes.
func (g *Guard) CanActivateProtected(ctx context.Context) router.GuardResult {
	if g.session.IsLoading() {
		return router.Allow()
	}
	if !g.session.IsAuthenticated() {
		return router.RedirectTo(g.loginPath, g.messages.AuthRequired())
	}
	return router.Allow()
}

// CanActivateAuth keeps signed-in users away from login and sign-up pages.
func (g *Guard) CanActivateAuth(ctx context.Context) router.GuardResult {
	if g.session.IsAuthenticated() {
		return router.RedirectTo(g.homePath, g.messages.AlreadyAuthenticated())
	}
	return router.Allow()
}

// ExecuteGuard applies a result outside the router's guard chain. An
// approval returns true with no side effects. A rejection shows the
// reason as a warning, navigates to the redirect target if there is one,
// and returns false. opts apply to that navigation.
func (g *Guard) ExecuteGuard(result router.GuardResult, opts ...router.NavigateOption) bool {
	if result.CanActivate {
		return true
	}
	if result.Reason != "" {
		toast.Warning(g.toasts, result.Reason)
	}
	if result.RedirectTo != "" {
		if nav := g.nav(); nav != nil {
			nav.Navigate(result.RedirectTo, opts...)
		} else {
			g.logger.Warn("redirect dropped, no navigator bound", "redirect", result.RedirectTo)
		}
	}
	return false
}

// CheckAuthStatus reports whether the session is authenticated, waiting
// for one state change if the session is loading. When nobody is signed
// in it asks the backend once; a failure there just means "not signed in".
func (g *Guard) CheckAuthStatus(ctx context.Context) bool {
	if g.session.IsLoading() {
		changed := make(chan struct{}, 1)
		unsubscribe := g.session.Subscribe(func(auth.State) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()

		// loading may have finished before the subscription
		if g.session.IsLoading() {
			select {
			case <-changed:
			case <-ctx.Done():
				g.logger.Debug("auth status check cancelled", "error", ctx.Err())
				return false
			}
		}
	}

	if g.session.IsAuthenticated() {
		return true
	}
	if !g.session.GetCurrentUser(ctx) {
		g.logger.Debug("no current user")
		return false
	}
	return true
}

// Reconcile watches the session and, when loading finishes with nobody
// signed in while the current route requires auth, sends the user to the
// login page. It corrects routes admitted optimistically during bootstrap.
// The returned function stops watching.
func (g *Guard) Reconcile() (stop func()) {
	var mu sync.Mutex
	loading := g.session.IsLoading()

	return g.session.Subscribe(func(s auth.State) {
		mu.Lock()
		finished := loading && !s.Loading
		loading = s.Loading
		mu.Unlock()

		if !finished || s.Authenticated() {
			return
		}
		nav := g.nav()
		if nav == nil {
			return
		}
		def := nav.CurrentRoute()
		if def == nil || !def.RequiresAuth {
			return
		}
		g.logger.Info("protected route without session, redirecting", "route", def.Path)
		g.sendToLogin(0)
	})
}

// Middleware re-checks a protected route after it committed. Together with
// Reconcile it catches a session that finished loading while an optimistic
// navigation was still in flight. Only one of them redirects.
func (g *Guard) Middleware() router.Middleware {
	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(ctx context.Context) error) error {
		gen := g.begin()
		if err := next(ctx); err != nil {
			return err
		}
		g.committed(gen)
		if nav.Route == nil || !nav.Route.Definition.RequiresAuth {
			return nil
		}
		if g.session.IsLoading() || g.session.IsAuthenticated() {
			return nil
		}
		g.logger.Info("committed protected route without session, redirecting", "route", nav.Route.Definition.Path)
		g.sendToLogin(gen)
		return nil
	})
}

// RequireAuth is CheckAuthStatus for callers about to act on a protected
// page: when nobody is signed in it sends the user to the login page,
// unless a login redirect is already under way, and returns false.
func (g *Guard) RequireAuth(ctx context.Context) bool {
	if g.CheckAuthStatus(ctx) {
		return true
	}
	if ctx.Err() == nil {
		g.sendToLogin(0)
	}
	return false
}

// begin numbers a navigation entering the middleware.
func (g *Guard) begin() uint64 {
	g.redirect.Lock()
	defer g.redirect.Unlock()
	g.commits++
	return g.commits
}

// committed clears a pending redirect once a navigation that started
// after it commits.
func (g *Guard) committed(gen uint64) {
	g.redirect.Lock()
	defer g.redirect.Unlock()
	if g.pending && gen > g.pendingSince {
		g.pending = false
	}
}

// sendToLogin redirects from a protected route to the login page with the
// auth-required warning. It does nothing while a redirect issued at or
// after navigation since is still pending.
func (g *Guard) sendToLogin(since uint64) {
	nav := g.nav()
	if nav == nil {
		g.logger.Warn("login redirect dropped, no navigator bound")
		return
	}
	if def := nav.CurrentRoute(); def == nil || !def.RequiresAuth {
		return
	}
	g.redirect.Lock()
	if g.pending && g.pendingSince >= since {
		g.redirect.Unlock()
		g.logger.Debug("login redirect already pending")
		return
	}
	g.pending = true
	g.pendingSince = g.commits
	g.redirect.Unlock()

	g.ExecuteGuard(router.RedirectTo(g.loginPath, g.messages.AuthRequired()), router.WithReplace())
}

// Messages returns the guard's localized messages.
func (g *Guard) Messages() *Messages {
	return g.messages
}

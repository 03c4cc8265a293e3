package portal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/linkportal/pkg/api"
	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/authguard"
	"github.com/vango-dev/linkportal/pkg/middleware"
	"github.com/vango-dev/linkportal/pkg/mount"
	"github.com/vango-dev/linkportal/pkg/router"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// DefaultAppName is the suffix of every document title.
const DefaultAppName = "Linkportal"

// Backend is the shortener backend as one session sees it.
type Backend interface {
	auth.Client
	ForgotPassword(ctx context.Context, email string) error
	ListURLs(ctx context.Context) ([]api.ShortURL, error)
	GetURL(ctx context.Context, id string) (*api.ShortURL, error)
}

// BackendFactory returns the backend for a session. Sessions are isolated
// by ID, so credentials never leak between connections.
type BackendFactory func(sessionID string) Backend

// Host is the connection a session renders into. It is the document's
// surface, history and notification area at once.
type Host interface {
	mount.Surface
	router.History
	toast.Sink

	// ID identifies the connection.
	ID() string
}

// Refresher is implemented by hosts that can redraw the mounted component
// in place, without disposing it.
type Refresher interface {
	Refresh(c mount.Component)
}

// Config holds the per-application settings shared by all sessions.
type Config struct {
	AppName       string
	Language      string
	RedirectLimit int
}

// App creates portal sessions.
type App struct {
	config   Config
	backend  BackendFactory
	metrics  *middleware.Metrics
	tracing  []middleware.OTelOption
	traceOn  bool
	logger   *slog.Logger
	sessions sync.WaitGroup
}

// Option configures an App.
type Option func(*App)

// WithMetrics records navigation metrics for every session.
func WithMetrics(m *middleware.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithTracing traces every navigation with OpenTelemetry.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(a *App) {
		a.traceOn = true
		a.tracing = opts
	}
}

// WithLogger sets the logger sessions derive their component loggers from.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewApp creates an application backed by backend.
func NewApp(config Config, backend BackendFactory, opts ...Option) *App {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.RedirectLimit <= 0 {
		config.RedirectLimit = router.DefaultRedirectLimit
	}
	a := &App{
		config:  config,
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the application settings after defaults were applied.
func (a *App) Config() Config {
	return a.config
}

// Session is one connected portal: a router, an auth store and the
// pages they drive.
type Session struct {
	id      string
	router  *router.Router
	store   *auth.Store
	guard   *authguard.Guard
	surface *trackingSurface
	logger  *slog.Logger

	cancel    context.CancelFunc
	stopWatch []func()
	closeOnce sync.Once
	done      func()
	wg        sync.WaitGroup
}

// Attach starts a session rendering into host. The store starts loading
// and the initial location is resolved while the previous session is
// restored in the background, so protected routes are admitted
// optimistically and corrected once restoring finishes.
func (a *App) Attach(ctx context.Context, host Host) (*Session, error) {
	id := host.ID()
	base := a.logger.With("session_id", id)
	logger := base.With("component", "portal")
	ctx, cancel := context.WithCancel(ctx)

	backend := a.backend(id)
	store := auth.NewStore(backend, auth.StartLoading(), auth.WithLogger(base.With("component", "auth")))
	guard := authguard.New(store,
		authguard.WithLoginPath(PathLogin),
		authguard.WithHomePath(PathHome),
		authguard.WithToasts(host),
		authguard.WithLanguage(a.config.Language),
		authguard.WithLogger(base.With("component", "authguard")),
	)

	e := &env{
		store:   store,
		backend: backend,
		toasts:  host,
	}
	surface := &trackingSurface{host: host}

	var mw []router.Middleware
	if a.metrics != nil {
		mw = append(mw, a.metrics.Prometheus())
	}
	if a.traceOn {
		mw = append(mw, middleware.OpenTelemetry(append([]middleware.OTelOption{middleware.WithSessionID(id)}, a.tracing...)...))
	}
	mw = append(mw, guard.Middleware())

	r := router.New(Table(), e.registry(), surface,
		router.WithHistory(host),
		router.WithToasts(host),
		router.WithAppName(a.config.AppName),
		router.WithRedirectLimit(a.config.RedirectLimit),
		router.WithLogger(base.With("component", "router")),
		router.WithGuards(guard),
		router.WithMiddleware(mw...),
	)
	e.nav = r
	guard.Bind(r)

	s := &Session{
		id:      id,
		router:  r,
		store:   store,
		guard:   guard,
		surface: surface,
		logger:  logger,
		cancel:  cancel,
	}
	s.stopWatch = append(s.stopWatch, guard.Reconcile(), store.Subscribe(s.userChanged()))

	if err := r.Start(ctx); err != nil {
		s.stop()
		return nil, fmt.Errorf("portal: start router: %w", err)
	}

	a.sessions.Add(1)
	s.done = a.sessions.Done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if store.Restore(ctx) {
			logger.Debug("session restored", "user", userName(store))
		}
	}()
	return s, nil
}

// Wait blocks until every attached session was closed.
func (a *App) Wait() {
	a.sessions.Wait()
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Router returns the session's router.
func (s *Session) Router() *router.Router {
	return s.router
}

// Store returns the session's auth store.
func (s *Session) Store() *auth.Store {
	return s.store
}

// Navigate requests a navigation, as a link click does.
func (s *Session) Navigate(path string, replace bool) {
	if replace {
		s.router.Navigate(path, router.WithReplace())
		return
	}
	s.router.Navigate(path)
}

// PopState reports a back or forward traversal to url.
func (s *Session) PopState(url string) {
	s.router.PopState(url)
}

// Action delivers a user action to the mounted page.
func (s *Session) Action(ctx context.Context, name string, form map[string]string) error {
	s.logger.Debug("action", "name", name)
	if def := s.router.CurrentRoute(); def != nil && def.RequiresAuth && !s.guard.RequireAuth(ctx) {
		s.logger.Info("action dropped, not signed in", "name", name, "route", def.Path)
		return nil
	}
	c := s.surface.current()
	h, ok := c.(mount.ActionHandler)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	if err := h.HandleAction(ctx, name, form); err != nil {
		return fmt.Errorf("action %q: %w", name, err)
	}
	return nil
}

// Wait blocks until pending navigations and the background restore finish.
func (s *Session) Wait() {
	s.wg.Wait()
	s.router.Wait()
}

// Close stops the session and waits for its work to end.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stop()
		s.wg.Wait()
		s.surface.dispose()
		if s.done != nil {
			s.done()
		}
	})
}

func (s *Session) stop() {
	for _, stop := range s.stopWatch {
		stop()
	}
	s.cancel()
	s.router.Stop()
}

// userChanged redraws the mounted page when the signed-in user changes,
// so headers filled in after restore show the right account.
func (s *Session) userChanged() func(auth.State) {
	var mu sync.Mutex
	var last *auth.User
	return func(st auth.State) {
		mu.Lock()
		changed := st.User != last
		last = st.User
		mu.Unlock()
		if changed {
			s.surface.refresh()
		}
	}
}

// trackingSurface remembers the mounted component so actions can reach it.
type trackingSurface struct {
	host Host

	mu      sync.Mutex
	mounted mount.Component
}

func (t *trackingSurface) Mount(c mount.Component) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.host.Mount(c); err != nil {
		return err
	}
	t.mounted = c
	return nil
}

func (t *trackingSurface) ShowError(v mount.ErrorView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.host.ShowError(v)
	t.mounted = nil
}

func (t *trackingSurface) SetTitle(title string) {
	t.host.SetTitle(title)
}

func (t *trackingSurface) current() mount.Component {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mounted
}

func (t *trackingSurface) refresh() {
	r, ok := t.host.(Refresher)
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mounted != nil {
		r.Refresh(t.mounted)
	}
}

func (t *trackingSurface) dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mounted != nil {
		mount.Dispose(t.mounted)
		t.mounted = nil
	}
}

package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/vango-dev/linkportal/pkg/mount"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// DefaultRedirectLimit is the number of consecutive guard redirects allowed
// before a navigation is abandoned.
const DefaultRedirectLimit = 8

// Router owns the current route, runs guards, and mounts components.
//
// Navigation is asynchronous: Navigate and PopState return immediately and
// the pipeline runs on its own goroutine. Every request gets a sequence
// number; only the latest request may commit, so a slow navigation that is
// overtaken never touches the surface or the current route.
type Router struct {
	table      *Table
	registry   *mount.Registry
	surface    mount.Surface
	history    History
	toasts     toast.Sink
	appName    string
	logger     *slog.Logger
	maxHops    int
	middleware []Middleware

	seq atomic.Uint64

	mu           sync.Mutex
	guards       []guardEntry
	nextGuard    GuardHandle
	current      *ResolvedRoute
	state        State
	cancelLatest context.CancelFunc
	baseCtx      context.Context
	stop         context.CancelFunc
	started      bool
	stopped      bool

	inflight sync.WaitGroup
}

type guardEntry struct {
	handle GuardHandle
	guard  Guard
}

// Option configures a Router.
type Option func(*Router)

// WithHistory sets the history the router records committed locations in.
func WithHistory(h History) Option {
	return func(r *Router) {
		if h != nil {
			r.history = h
		}
	}
}

// WithToasts sets the sink for guard rejection messages.
func WithToasts(sink toast.Sink) Option {
	return func(r *Router) {
		r.toasts = sink
	}
}

// WithAppName sets the application name used in document titles.
func WithAppName(name string) Option {
	return func(r *Router) {
		r.appName = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRedirectLimit sets how many guard redirects may chain.
func WithRedirectLimit(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxHops = n
		}
	}
}

// WithGuards registers guards at construction, in order.
func WithGuards(guards ...Guard) Option {
	return func(r *Router) {
		for _, g := range guards {
			r.addGuard(g)
		}
	}
}

// WithMiddleware adds navigation middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// New creates a router. Nothing happens until Start is called.
func New(table *Table, registry *mount.Registry, surface mount.Surface, opts ...Option) *Router {
	r := &Router{
		table:    table,
		registry: registry,
		surface:  surface,
		history:  &locationHistory{},
		logger:   slog.Default().With("component", "router"),
		maxHops:  DefaultRedirectLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds navigation middleware. Call it before Start.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	r.middleware = append(r.middleware, mw...)
	r.mu.Unlock()
}

// AddGuard registers a guard after the existing ones and returns a handle
// for RemoveGuard. Guards only rely on registration order.
func (r *Router) AddGuard(g Guard) GuardHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addGuard(g)
}

func (r *Router) addGuard(g Guard) GuardHandle {
	r.nextGuard++
	r.guards = append(r.guards, guardEntry{handle: r.nextGuard, guard: g})
	return r.nextGuard
}

// RemoveGuard unregisters a guard. It reports whether the handle was found.
// Navigations already resolving keep the guard list they started with.
func (r *Router) RemoveGuard(h GuardHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.guards {
		if e.handle == h {
			r.guards = append(r.guards[:i:i], r.guards[i+1:]...)
			return true
		}
	}
	return false
}

// Start binds the history listener and resolves the initial location.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.baseCtx, r.stop = context.WithCancel(ctx)
	r.mu.Unlock()

	if l, ok := r.history.(HistoryListener); ok {
		l.Listen(r.PopState)
	}

	location := r.history.Location()
	if location == "" {
		location = "/"
	}
	r.dispatch(&Navigation{Path: location, Source: SourceInitial})
	return nil
}

// Stop cancels in-flight navigations and waits for them to finish.
// Later navigation requests are ignored.
func (r *Router) Stop() {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.stop()
	r.mu.Unlock()

	r.inflight.Wait()
}

// Wait blocks until no navigation is in flight, including redirects
// scheduled by guards.
func (r *Router) Wait() {
	r.inflight.Wait()
}

// Navigate requests a navigation to path. It returns immediately; the
// component is mounted asynchronously.
func (r *Router) Navigate(path string, opts ...NavigateOption) {
	var options NavigateOptions
	for _, opt := range opts {
		opt(&options)
	}
	r.dispatch(&Navigation{Path: path, Source: SourcePush, Options: options})
}

// PopState handles a back/forward traversal to url.
func (r *Router) PopState(url string) {
	r.dispatch(&Navigation{Path: url, Source: SourcePop})
}

// CurrentRoute returns the definition of the current route, or nil.
func (r *Router) CurrentRoute() *Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	def := r.current.Definition
	def.Meta = cloneMeta(def.Meta)
	return &def
}

// Current returns a copy of the current resolved route, or nil.
func (r *Router) Current() *ResolvedRoute {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

func (r *Router) currentLocked() *ResolvedRoute {
	if r.current == nil {
		return nil
	}
	cp := *r.current
	cp.Definition.Meta = cloneMeta(cp.Definition.Meta)
	cp.Params = cp.Params.Clone()
	return &cp
}

// Params returns the parameters of the current route, or nil.
func (r *Router) Params() Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.Params.Clone()
}

// State returns the router's lifecycle state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Table returns the route table.
func (r *Router) Table() *Table {
	return r.table
}

// dispatch assigns a sequence number, supersedes the previous request, and
// runs the pipeline on a new goroutine.
func (r *Router) dispatch(nav *Navigation) {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		r.logger.Warn("navigation ignored", "path", nav.Path, "error", ErrNotStarted)
		return
	}

	nav.Seq = r.seq.Inc()
	if r.cancelLatest != nil {
		r.cancelLatest()
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.cancelLatest = cancel
	r.state = StateResolving
	r.inflight.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inflight.Done()
		defer cancel()
		r.run(ctx, nav)
	}()
}

func (r *Router) run(ctx context.Context, nav *Navigation) {
	r.mu.Lock()
	mw := r.middleware
	r.mu.Unlock()

	err := ComposeMiddleware(ctx, nav, mw, r.resolve)

	switch {
	case err == nil:
		r.logger.Debug("navigation committed", "path", nav.Path, "seq", nav.Seq, "source", nav.Source)
	case errors.Is(err, ErrSuperseded):
		r.logger.Debug("navigation superseded", "path", nav.Path, "seq", nav.Seq)
	case errors.Is(err, ErrGuardRejected):
		r.logger.Debug("navigation rejected", "path", nav.Path, "seq", nav.Seq)
	default:
		r.logger.Warn("navigation failed", "path", nav.Path, "seq", nav.Seq, "error", err)
	}
}

// resolve is the navigation pipeline: match, guards, build, commit.
func (r *Router) resolve(ctx context.Context, nav *Navigation) error {
	to, ok := r.table.Match(nav.Path)
	if !ok {
		return r.fail(nav, ErrNoRoute)
	}
	nav.Route = to

	r.mu.Lock()
	if nav.Seq != r.seq.Load() {
		r.mu.Unlock()
		return navError(nav, ErrSuperseded)
	}
	guards := make([]Guard, len(r.guards))
	for i, e := range r.guards {
		guards[i] = e.guard
	}
	from := r.currentLocked()
	r.mu.Unlock()

	result := EvaluateGuards(ctx, guards, to, from)
	if !result.CanActivate {
		nav.Guard = &result
		return r.reject(nav, result)
	}

	if !r.transition(nav.Seq, StateMounting) {
		return navError(nav, ErrSuperseded)
	}

	comp, err := r.build(ctx, to)
	return r.commit(nav, comp, err)
}

// transition moves to state if seq is still the latest request.
func (r *Router) transition(seq uint64, state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq.Load() {
		return false
	}
	r.state = state
	return true
}

func (r *Router) reject(nav *Navigation, result GuardResult) error {
	if !r.transition(nav.Seq, StateIdle) {
		return navError(nav, ErrSuperseded)
	}

	if result.Err != nil {
		r.logger.Warn("guard error", "path", nav.Path, "seq", nav.Seq, "error", result.Err)
		return navError(nav, fmt.Errorf("%w: %w", ErrGuardFailed, result.Err))
	}

	if result.Reason != "" {
		toast.Warning(r.toasts, result.Reason)
	}

	if result.RedirectTo != "" {
		if nav.Hops+1 > r.maxHops {
			r.logger.Error("redirect limit reached", "path", nav.Path, "redirect", result.RedirectTo, "hops", nav.Hops)
			return r.fail(nav, ErrRedirectLimit)
		}
		// A redirect away from a location the browser already shows
		// replaces that entry instead of stacking a new one.
		replace := nav.historyMode() != historyPush
		r.dispatch(&Navigation{
			Path:    result.RedirectTo,
			Source:  SourceRedirect,
			Options: NavigateOptions{Replace: replace},
			Hops:    nav.Hops + 1,
		})
	}

	return navError(nav, ErrGuardRejected)
}

func (r *Router) build(ctx context.Context, to *ResolvedRoute) (c mount.Component, err error) {
	defer func() {
		if v := recover(); v != nil {
			c = nil
			err = &PanicError{Op: "component " + to.Definition.Component, Value: v}
		}
	}()

	return r.registry.Build(ctx, mount.Props{
		ComponentID: to.Definition.Component,
		Path:        to.Path,
		Params:      to.Params.Clone(),
		Query:       to.Query,
	})
}

// commit is the only place that writes the current route and the surface.
func (r *Router) commit(nav *Navigation, comp mount.Component, buildErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nav.Seq != r.seq.Load() {
		if comp != nil {
			mount.Dispose(comp)
		}
		return navError(nav, ErrSuperseded)
	}

	if buildErr == nil {
		buildErr = r.attach(comp)
	}
	if buildErr != nil {
		r.state = StateIdle
		r.surface.ShowError(mount.GenericError())
		return navError(nav, fmt.Errorf("%w: %w", ErrMountFailed, buildErr))
	}

	r.current = nav.Route
	r.state = StateMounted

	if title := nav.Route.Definition.Title; title != "" {
		r.surface.SetTitle(r.formatTitle(title))
	}

	switch nav.historyMode() {
	case historyPush:
		r.history.Push(nav.Route.URL())
	case historyReplace:
		r.history.Replace(nav.Route.URL())
	}
	return nil
}

func (r *Router) attach(c mount.Component) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Op: "mount", Value: v}
		}
	}()
	return r.surface.Mount(c)
}

// fail shows the generic error surface for the latest request.
func (r *Router) fail(nav *Navigation, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nav.Seq != r.seq.Load() {
		return navError(nav, ErrSuperseded)
	}
	r.state = StateIdle
	r.surface.ShowError(mount.GenericError())
	return navError(nav, cause)
}

func (r *Router) formatTitle(title string) string {
	if r.appName == "" {
		return title
	}
	return title + " | " + r.appName
}

// locationHistory is the default History when none is configured.
type locationHistory struct {
	mu       sync.Mutex
	location string
}

func (h *locationHistory) Push(url string)    { h.set(url) }
func (h *locationHistory) Replace(url string) { h.set(url) }

func (h *locationHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location
}

func (h *locationHistory) set(url string) {
	h.mu.Lock()
	h.location = url
	h.mu.Unlock()
}

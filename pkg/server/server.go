package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/vango-dev/linkportal/pkg/middleware"
	"github.com/vango-dev/linkportal/pkg/portal"
	"github.com/vango-dev/linkportal/pkg/routepath"
)

// Paths served besides the portal pages.
const (
	PathWebSocket  = "/_portal/ws"
	PathThinClient = "/_portal/client.js"
	PathHealth     = "/healthz"
	PathMetrics    = "/metrics"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server is the HTTP/WebSocket server for the portal.
type Server struct {
	config   *Config
	app      *portal.App
	metrics  *middleware.Metrics
	gatherer prometheus.Gatherer
	checks   map[string]HealthCheck
	upgrader websocket.Upgrader
	handler  http.Handler
	logger   *slog.Logger

	mu         sync.Mutex
	sessions   map[string]*Session
	httpServer *http.Server
	closing    atomic.Bool
	conns      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records session metrics and serves gatherer on /metrics.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithHealthCheck adds a named check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server attaching a portal session to every connection.
func New(config *Config, app *portal.App, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		config:   config,
		app:      app,
		checks:   make(map[string]HealthCheck),
		sessions: make(map[string]*Session),
		logger:   slog.Default().With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
			HandshakeTimeout: config.HandshakeTimeout,
			CheckOrigin:      config.CheckOrigin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := config.Validate(); err != nil {
		s.logger.Error("config validation failed", "error", err)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get(PathHealth, s.serveHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, PathMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get(PathWebSocket, s.HandleWebSocket)
	r.Get(PathThinClient, s.serveThinClient)
	r.Head(PathThinClient, s.serveThinClient)
	r.Get("/*", s.serveShell)
	return r
}

// Handler returns the server's http.Handler for mounting in other routers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if s.closing.Load() {
		resp.Status = "shutting down"
		status = http.StatusServiceUnavailable
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleWebSocket upgrades the connection, reads the client's hello and
// runs a portal session until the connection ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.WebSocketError("upgrade")
		return
	}

	s.conns.Add(1)
	defer s.conns.Done()

	hello, err := s.handshake(conn)
	if err != nil {
		s.logger.Warn("handshake failed", "remote", r.RemoteAddr, "error", err)
		s.metrics.WebSocketError("handshake")
		s.reject(conn, websocket.CloseProtocolError, "invalid handshake")
		return
	}
	location := hello.Location

	sess := newSession(s.sessionID(hello.Session), conn, location, s.config, s.metrics, s.logger)
	if err := s.track(sess); err != nil {
		s.logger.Warn("session rejected", "error", err)
		reason := "too many sessions"
		if errors.Is(err, ErrSessionActive) {
			reason = "session in use"
		}
		s.reject(conn, websocket.CloseTryAgainLater, reason)
		return
	}
	defer s.untrack(sess)

	s.metrics.SessionStarted()
	defer s.metrics.SessionEnded()
	sess.logger.Info("session started", "location", location, "remote", r.RemoteAddr)

	go sess.WriteLoop()
	sess.send(ServerFrame{Type: FrameSession, Session: sess.ID()})

	p, err := s.app.Attach(r.Context(), sess)
	if err != nil {
		sess.logger.Error("attach failed", "error", err)
		sess.Close()
		sess.wait()
		return
	}

	sess.ReadLoop(p)
	sess.Close()
	sess.wait()
	p.Close()
	sess.logger.Info("session ended")
}

// handshake reads the hello frame. An invalid location falls back to the
// root page.
func (s *Server) handshake(conn *websocket.Conn) (ClientFrame, error) {
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))

	var hello ClientFrame
	if err := conn.ReadJSON(&hello); err != nil {
		return ClientFrame{}, fmt.Errorf("%w: %w", ErrInvalidHandshake, err)
	}
	if hello.Type != FrameHello {
		return ClientFrame{}, fmt.Errorf("%w: got %q frame", ErrInvalidHandshake, hello.Type)
	}
	location, err := routepath.ValidateLocation(hello.Location)
	if err != nil {
		location = "/"
	}
	hello.Location = location
	return hello, nil
}

// sessionID returns the ID a reconnecting client asked for when it is a
// well-formed UUID no live connection holds, and a fresh one otherwise.
// Credentials are keyed by session ID, so a reused ID restores the
// signed-in user.
func (s *Server) sessionID(requested string) string {
	if requested == "" {
		return uuid.NewString()
	}
	parsed, err := uuid.Parse(requested)
	if err != nil {
		s.logger.Debug("ignoring malformed session id")
		return uuid.NewString()
	}
	id := parsed.String()

	s.mu.Lock()
	_, live := s.sessions[id]
	s.mu.Unlock()
	if live {
		s.logger.Warn("session id already in use", "session", id)
		return uuid.NewString()
	}
	s.logger.Debug("session resumed", "session", id)
	return id
}

func (s *Server) reject(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(s.config.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}

func (s *Server) track(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return ErrMaxSessionsReached
	}
	if _, ok := s.sessions[sess.ID()]; ok {
		return ErrSessionActive
	}
	s.sessions[sess.ID()] = sess
	return nil
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections, closes every session and waits
// for them to end.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.closing.Store(true)

	s.mu.Lock()
	httpServer := s.httpServer
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	var err error
	if httpServer != nil {
		if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
			s.logger.Error("shutdown error", "error", shutdownErr)
			err = shutdownErr
		}
	}

	for _, sess := range sessions {
		sess.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("server shutdown complete")
	case <-ctx.Done():
		s.logger.Warn("sessions still open after shutdown timeout", "sessions", s.SessionCount())
		return errors.Join(err, ctx.Err())
	}
	return err
}

package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/linkportal/pkg/router"
)

// Navigation outcomes used as metric labels and span attributes.
const (
	OutcomeCommitted     = "committed"
	OutcomeSuperseded    = "superseded"
	OutcomeRejected      = "rejected"
	OutcomeGuardError    = "guard_error"
	OutcomeNoRoute       = "no_route"
	OutcomeMountFailed   = "mount_failed"
	OutcomeRedirectLimit = "redirect_limit"
	OutcomeError         = "error"
)

// unmatchedRoute labels navigations that never resolved to a route.
const unmatchedRoute = "unmatched"

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "linkportal").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "linkportal",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the portal's Prometheus collectors. Create one per process
// and share it between sessions; registering twice panics.
type Metrics struct {
	navigations        *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	guardRedirects     *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	sessionsTotal      prometheus.Counter
	framesSent         *prometheus.CounterVec
	wsErrors           *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
//
// Metrics collected:
//   - linkportal_navigations_total: navigations by route and outcome
//   - linkportal_navigation_duration_seconds: navigation pipeline duration by route
//   - linkportal_guard_redirects_total: guard redirects by source route and target
//   - linkportal_active_sessions: connected portal sessions
//   - linkportal_sessions_total: sessions ever started
//   - linkportal_frames_sent_total: frames sent to clients by type
//   - linkportal_websocket_errors_total: WebSocket errors by type
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigations by route and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration from request to commit or abort in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		guardRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "guard_redirects_total",
			Help:        "Total number of guard redirects by source route and target",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "target"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected portal sessions",
			ConstLabels: config.ConstLabels,
		}),

		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_total",
			Help:        "Total number of portal sessions started",
			ConstLabels: config.ConstLabels,
		}),

		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_sent_total",
			Help:        "Total number of frames sent to clients by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Prometheus creates navigation middleware recording into m.
//
// Example:
//
//	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r := router.New(table, registry, surface, router.WithMiddleware(metrics.Prometheus()))
func (m *Metrics) Prometheus() router.Middleware {
	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(ctx context.Context) error) error {
		start := time.Now()
		err := next(ctx)

		route := RouteLabel(nav)
		m.navigationDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.navigations.WithLabelValues(route, Outcome(err)).Inc()
		if nav.Guard != nil && nav.Guard.RedirectTo != "" && errors.Is(err, router.ErrGuardRejected) {
			m.guardRedirects.WithLabelValues(route, nav.Guard.RedirectTo).Inc()
		}
		return err
	})
}

// SessionStarted records a new connected session.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

// SessionEnded records a disconnected session.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// FrameSent records one frame of type frameType sent to a client.
func (m *Metrics) FrameSent(frameType string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(frameType).Inc()
}

// WebSocketError records a WebSocket error of the given type.
func (m *Metrics) WebSocketError(errorType string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// RouteLabel returns the route pattern of nav, which keeps label
// cardinality bounded by the route table.
func RouteLabel(nav *router.Navigation) string {
	if nav == nil || nav.Route == nil {
		return unmatchedRoute
	}
	return nav.Route.Definition.Path
}

// Outcome classifies how a navigation ended.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, router.ErrSuperseded):
		return OutcomeSuperseded
	case errors.Is(err, router.ErrGuardFailed):
		return OutcomeGuardError
	case errors.Is(err, router.ErrGuardRejected):
		return OutcomeRejected
	case errors.Is(err, router.ErrNoRoute):
		return OutcomeNoRoute
	case errors.Is(err, router.ErrMountFailed):
		return OutcomeMountFailed
	case errors.Is(err, router.ErrRedirectLimit):
		return OutcomeRedirectLimit
	default:
		return OutcomeError
	}
}

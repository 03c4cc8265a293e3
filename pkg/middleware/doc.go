// Package middleware provides observability middleware for the portal
// router.
//
// This package includes:
//   - OpenTelemetry tracing of navigations
//   - Prometheus metrics for navigations and WebSocket sessions
//
// # OpenTelemetry Middleware
//
// One span named "portal.navigate" is started per navigation request and
// ended when the navigation commits or aborts. The span context is passed
// down the pipeline, so guards and component factories that call the
// backend produce child spans.
//
//	r := router.New(table, registry, surface,
//	    router.WithMiddleware(middleware.OpenTelemetry(
//	        middleware.WithSessionID(session.ID()),
//	    )),
//	)
//
// # Prometheus Metrics
//
// Metrics are created once per process and shared by every session:
//
//	metrics := middleware.NewMetrics()
//	r.Use(metrics.Prometheus())
//
// Then expose them with promhttp.Handler().
//
// Navigation labels use the route pattern ("/urls/:id"), never the
// concrete path, so cardinality is bounded by the route table.
package middleware

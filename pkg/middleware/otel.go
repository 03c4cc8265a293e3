package middleware

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/linkportal/pkg/router"
)

// Default tracer and span names.
const (
	defaultTracerName = "linkportal"
	SpanName          = "portal.navigate"
)

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "linkportal").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// SessionID is recorded on every span when set.
	SessionID string

	// Filter determines which navigations to trace.
	// Return true to trace the navigation, false to skip.
	// If nil, all navigations are traced.
	Filter func(nav *router.Navigation) bool

	// AttributeExtractor extracts custom attributes from the navigation.
	AttributeExtractor func(nav *router.Navigation) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithSessionID records the portal session ID on spans.
func WithSessionID(id string) OTelOption {
	return func(c *OTelConfig) {
		c.SessionID = id
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(nav *router.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(nav *router.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every navigation.
//
// The middleware:
//   - Starts a "portal.navigate" span per navigation request
//   - Passes the span context down the pipeline, so guards and component
//     factories calling the backend inherit the trace
//   - Records path, source, sequence, resolved route and outcome
//   - Records errors, except for superseded and rejected navigations
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main() before serving.
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(ctx context.Context) error) error {
		if config.Filter != nil && !config.Filter(nav) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("portal.path", nav.Path),
			attribute.String("portal.source", nav.Source.String()),
			attribute.Int64("portal.seq", int64(nav.Seq)),
			attribute.Int("portal.redirect_hops", nav.Hops),
		}
		if config.SessionID != "" {
			attrs = append(attrs, attribute.String("portal.session_id", config.SessionID))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(nav)...)
		}

		spanCtx, span := tracer.Start(ctx, SpanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next(spanCtx)

		span.SetAttributes(
			attribute.String("portal.route", RouteLabel(nav)),
			attribute.String("portal.outcome", Outcome(err)),
		)
		if nav.Guard != nil && nav.Guard.RedirectTo != "" {
			span.SetAttributes(attribute.String("portal.redirect_to", nav.Guard.RedirectTo))
		}

		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(err, router.ErrSuperseded), errors.Is(err, router.ErrGuardRejected):
			// expected endings, not failures
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("navigation %s", Outcome(err)))
		}
		return err
	})
}

package router

import "context"

// Middleware wraps the navigation pipeline. It runs once per navigation
// request, around matching, guards, and the commit step.
type Middleware interface {
	// Handle processes the navigation and calls next to continue.
	// The error returned by next describes how the navigation ended.
	Handle(ctx context.Context, nav *Navigation, next func(ctx context.Context) error) error
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx context.Context, nav *Navigation, next func(ctx context.Context) error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, nav *Navigation, next func(ctx context.Context) error) error {
	return f(ctx, nav, next)
}

// ComposeMiddleware builds a chain from middleware and a final handler.
// Middleware is executed in order (first to last), with the handler at the end.
func ComposeMiddleware(ctx context.Context, nav *Navigation, mw []Middleware, final func(ctx context.Context, nav *Navigation) error) error {
	if len(mw) == 0 {
		return final(ctx, nav)
	}

	chain := func(ctx context.Context) error {
		return final(ctx, nav)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		if m == nil {
			continue
		}
		next := chain
		chain = func(ctx context.Context) error {
			return m.Handle(ctx, nav, next)
		}
	}

	return chain(ctx)
}

// Chain creates a middleware that combines multiple middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(ctx context.Context) error) error {
		return ComposeMiddleware(ctx, nav, middleware, func(ctx context.Context, _ *Navigation) error {
			return next(ctx)
		})
	})
}

package router

import "context"

// GuardErrorReason is the reason reported when a guard fails unexpectedly.
const GuardErrorReason = "guard error"

// GuardResult is the verdict of a single guard invocation.
type GuardResult struct {
	// CanActivate approves the navigation when true.
	CanActivate bool

	// RedirectTo is an optional location to navigate to instead.
	RedirectTo string

	// Reason is an optional human-readable explanation shown to the user.
	Reason string

	// Err is set when the guard failed rather than deciding.
	Err error
}

// Allow approves a navigation.
func Allow() GuardResult {
	return GuardResult{CanActivate: true}
}

// Deny blocks a navigation without redirecting.
func Deny(reason string) GuardResult {
	return GuardResult{Reason: reason}
}

// RedirectTo blocks a navigation and asks for another one to path.
func RedirectTo(path, reason string) GuardResult {
	return GuardResult{RedirectTo: path, Reason: reason}
}

// Guard decides whether a navigation may proceed.
//
// CanActivate receives the target route and the current route (nil on the
// first navigation). It may block; ctx is cancelled when the navigation is
// superseded. A returned error is treated as a rejection.
type Guard interface {
	CanActivate(ctx context.Context, to, from *ResolvedRoute) (GuardResult, error)
}

// GuardFunc is a function adapter for Guard.
type GuardFunc func(ctx context.Context, to, from *ResolvedRoute) (GuardResult, error)

// CanActivate implements Guard.
func (f GuardFunc) CanActivate(ctx context.Context, to, from *ResolvedRoute) (GuardResult, error) {
	return f(ctx, to, from)
}

// GuardHandle identifies a registered guard for removal.
type GuardHandle uint64

// EvaluateGuards runs guards in order and stops at the first rejection.
//
// No guard after a rejecting guard runs. A guard that returns an error or
// panics rejects the navigation with GuardErrorReason and no redirect.
func EvaluateGuards(ctx context.Context, guards []Guard, to, from *ResolvedRoute) GuardResult {
	for _, g := range guards {
		if g == nil {
			continue
		}
		result := runGuard(ctx, g, to, from)
		if !result.CanActivate {
			return result
		}
	}
	return Allow()
}

func runGuard(ctx context.Context, g Guard, to, from *ResolvedRoute) (result GuardResult) {
	defer func() {
		if r := recover(); r != nil {
			result = guardFailure(&PanicError{Op: "guard", Value: r})
		}
	}()

	res, err := g.CanActivate(ctx, to, from)
	if err != nil {
		return guardFailure(err)
	}
	return res
}

func guardFailure(err error) GuardResult {
	return GuardResult{Reason: GuardErrorReason, Err: err}
}

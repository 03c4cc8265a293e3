// Package router implements the portal's page router.
//
// The router provides:
//   - An ordered route table with exact, ":param" and catch-all patterns
//   - A guard chain evaluated before every navigation commits
//   - Asynchronous navigation where the latest request always wins
//   - Component mounting through a mount.Registry and mount.Surface
//   - History integration for push, replace, and back/forward traversal
//
// # Route Table
//
//	table := router.MustTable([]router.Definition{
//	    {Path: "/", Component: "home", Title: "Home"},
//	    {Path: "/login", Component: "login", Title: "Sign in", Meta: map[string]string{"guestOnly": "true"}},
//	    {Path: "/urls/:id", Component: "url-detail", RequiresAuth: true, Title: "Link"},
//	    {Path: "*", Component: "not-found", Title: "Not found"},
//	})
//
// Exact patterns win over parameterized ones, and the wildcard is only
// used when nothing else matches. Trailing slashes are significant.
//
// # Guards
//
// Guards run in registration order and the first rejection stops the
// chain. A rejection may carry a redirect, which is issued as a new
// navigation rather than a nested call, and a reason, which is shown as a
// warning toast. A guard that errors or panics aborts the navigation
// silently.
//
// # Usage
//
//	r := router.New(table, registry, surface,
//	    router.WithHistory(h),
//	    router.WithToasts(sink),
//	    router.WithAppName("Linkportal"),
//	)
//	r.AddGuard(authGuard)
//	if err := r.Start(ctx); err != nil {
//	    return err
//	}
//	r.Navigate("/urls/42")
package router

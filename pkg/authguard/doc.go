// Package authguard protects routes based on the session's authentication
// state.
//
// A Guard is registered with the router like any other guard:
//
//	g := authguard.New(store, authguard.WithToasts(sink), authguard.WithLanguage("de"))
//	r := router.New(table, registry, surface, router.WithGuards(g))
//	g.Bind(r)
//	defer g.Reconcile()()
//
// Routes with RequiresAuth redirect signed-out users to the login page.
// Routes whose meta has guestOnly=true redirect signed-in users home.
// Rejection reasons are localized from embedded TOML message files.
package authguard

// Package portaltest provides testing helpers for portal sessions.
//
// It bundles an in-memory shortener backend, an in-memory host that
// records what a browser tab would show, and render assertions:
//
//	backend := portaltest.NewBackend()
//	backend.AddAccount(auth.User{ID: "u1", Email: "ada@example.com"}, "secret-pass")
//
//	app := portal.NewApp(portal.Config{}, backend.Factory())
//	host := portaltest.NewHost("s1", "/dashboard")
//	sess, _ := app.Attach(ctx, host)
//	defer sess.Close()
//
//	sess.Wait()
//	portaltest.ExpectLocation(t, host, "/login")
//
// # Blocking operations
//
// Block holds a backend operation until the returned release function is
// called, so tests can observe the session while restore or login is in
// flight:
//
//	release := backend.Block(portaltest.OpCurrentUser)
//	sess, _ := app.Attach(ctx, host)
//	// the session is still loading here
//	release()
package portaltest

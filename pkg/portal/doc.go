// Package portal is the link management portal: its route table, its
// pages and the per-connection session wiring them to a router, an auth
// store and the auth guard.
//
// An App is created once per process and attaches a Session to every
// connected Host:
//
//	app := portal.NewApp(portal.Config{AppName: "Linkportal"}, func(id string) portal.Backend {
//	    return api.New(baseURL, creds, id)
//	})
//	sess, err := app.Attach(ctx, host)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
// Attach starts the router at the host's location while the previous
// session is restored in the background. Protected routes are admitted
// while restoring and corrected by the guard once it finishes.
//
// User input reaches the session as navigations (Navigate, PopState) and
// actions (Action), which are delivered to the mounted page.
package portal

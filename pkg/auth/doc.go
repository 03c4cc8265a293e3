// Package auth holds the session state of one portal connection.
//
// A Store tracks the signed-in user, a loading flag and the last
// user-facing error. It is mutated only through its own operations (Login,
// Register, Logout, RefreshToken, GetCurrentUser, Restore) and read by
// guards and components:
//
//	store := auth.NewStore(client, auth.StartLoading())
//	go store.Restore(ctx)
//
//	unsubscribe := store.Subscribe(func(s auth.State) {
//	    if !s.Loading && !s.Authenticated() {
//	        // send the user to the login page
//	    }
//	})
//	defer unsubscribe()
//
// Listeners run synchronously, on the goroutine that made the change,
// whenever Loading or User changes. Operations that talk to the backend
// are serialized: a Login never overlaps a Restore on the same store.
//
// # Errors
//
// ErrUnauthorized and ErrForbidden are the shared vocabulary between the
// backend client and the store. Use errors.Is to check them, and
// StatusCode to map them to HTTP responses.
package auth

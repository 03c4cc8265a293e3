// Package api is the HTTP client for the link shortener backend.
//
// A Client is bound to one portal session. Tokens issued by the backend
// are kept in a credstore.Store under the session ID and attached as a
// bearer token to authenticated requests; they never reach the browser.
//
// Client implements auth.Client, so a session store can sign in, restore
// and sign out through it:
//
//	c := api.New(cfg.API.BaseURL, creds, sessionID, api.WithTimeout(cfg.API.Timeout))
//	store := auth.NewStore(c)
//
// A 401 response is reported as auth.ErrUnauthorized and a 403 as
// auth.ErrForbidden. Other failures are returned as *Error.
package api

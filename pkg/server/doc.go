// Package server serves the portal over HTTP and WebSocket.
//
// Every page load gets the same shell document. Its thin client opens a
// WebSocket to /_portal/ws, reports the browser location in a hello frame,
// and from then on the connection's Session is the portal's host: the
// mounted page, document title, history entries and toasts are sent as
// JSON frames, while link clicks, back/forward traversals and form
// submissions come back as frames the session hands to its portal.
//
// # Session Lifecycle
//
// Each WebSocket connection creates a Session that runs two goroutines:
//   - ReadLoop: Receives frames and hands them to the attached portal
//   - WriteLoop: Sends queued frames and heartbeat pings
//
// Actions run on their own goroutine, bounded by ActionTimeout, so a slow
// backend never stalls navigation.
//
// # Frames
//
// Client to server:
//
//	{"type":"hello","location":"/urls/42?tab=stats"}
//	{"type":"navigate","path":"/dashboard","replace":false}
//	{"type":"popstate","url":"/urls"}
//	{"type":"action","name":"login","form":{"email":"...","password":"..."}}
//	{"type":"ping","t":1700000000000}
//
// Server to client: session, mount, title, nav, toast, error and pong.
// Locations from the client are validated with routepath.ValidateLocation
// and dropped when they are not same-origin paths.
//
// # Example Usage
//
//	srv := server.New(&server.Config{Address: ":8080"}, app,
//	    server.WithMetrics(metrics, prometheus.DefaultGatherer),
//	)
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Session methods may be called from any goroutine; only the write loop
// touches the connection for writing and only the read loop for reading.
package server

package server

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"html"
	"net/http"
	"strings"
)

//go:embed client/portal.js
var thinClientJS []byte

var thinClientETag = func() string {
	sum := sha256.Sum256(thinClientJS)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:]))
}()

const shellTemplate = `<!DOCTYPE html>
<html lang="%s">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<script src="%s" defer></script>
</head>
<body>
<main id="portal" data-ws="%s"></main>
<div id="portal-toasts" aria-live="polite"></div>
<noscript>This portal needs JavaScript.</noscript>
</body>
</html>
`

// serveShell answers every page load with the same shell. The thin client
// reports the browser's location in its hello frame and the session's
// router takes it from there, so unknown paths still get a 200.
func (s *Server) serveShell(w http.ResponseWriter, r *http.Request) {
	cfg := s.app.Config()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, shellTemplate,
		html.EscapeString(cfg.Language),
		html.EscapeString(cfg.AppName),
		PathThinClient,
		PathWebSocket,
	)
}

func (s *Server) serveThinClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", thinClientETag)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Caching policy:
	// - DevMode: no-store to avoid stale client behavior while iterating.
	// - Prod: revalidate via ETag, so updates are picked up safely.
	if s.config.DevMode {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	}

	if etagMatches(r.Header.Get("If-None-Match"), thinClientETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(thinClientJS)
}

func etagMatches(ifNoneMatchHeader, etag string) bool {
	if ifNoneMatchHeader == "" || etag == "" {
		return false
	}
	// Handle lists: If-None-Match: "abc", W/"def"
	for _, part := range strings.Split(ifNoneMatchHeader, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == etag {
			return true
		}
		if strings.HasPrefix(candidate, "W/") && strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

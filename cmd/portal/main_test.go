package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/linkportal/internal/config"
	"github.com/vango-dev/linkportal/pkg/server"
)

func TestPrintRoutes(t *testing.T) {
	var buf bytes.Buffer
	if err := printRoutes(&buf); err != nil {
		t.Fatalf("printRoutes() error = %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 11 {
		t.Fatalf("got %d lines, want header and 10 routes:\n%s", len(lines), out)
	}
	checks := map[string]string{
		"/login ":     "guests",
		"/dashboard ": "signed in",
		"/urls/:id ":  "signed in",
		"/terms ":     "public",
	}
	for prefix, access := range checks {
		found := false
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				found = true
				if !strings.Contains(line, access) {
					t.Errorf("%q line = %q, want access %q", prefix, line, access)
				}
			}
		}
		if !found {
			t.Errorf("no line for %q", prefix)
		}
	}
	if !strings.HasPrefix(lines[len(lines)-1], "*") {
		t.Errorf("last route = %q, want wildcard", lines[len(lines)-1])
	}
}

func TestVersionCommand(t *testing.T) {
	root := rootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version", "--short"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != version {
		t.Errorf("version --short = %q, want %q", got, version)
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.TOMLFileName), []byte(`
[credentials]
backend = "etcd"
`), 0644); err != nil {
		t.Fatal(err)
	}

	root := rootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"serve", "--config", dir})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "credentials.backend") {
		t.Errorf("Execute() error = %v, want backend validation error", err)
	}
}

func TestNewServerWiring(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Tracing = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, cleanup, err := newServer(ctx, cfg, logger, reg, reg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	defer cleanup()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{server.PathHealth, server.PathMetrics, "/dashboard"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
		if path == server.PathMetrics && !strings.Contains(string(body), "linkportal_active_sessions") {
			t.Errorf("metrics missing linkportal_active_sessions")
		}
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.New()
	cfg.Address = ":9999"
	cfg.WebSocket.MaxSessions = 12
	cfg.DevMode = true

	got := serverConfig(cfg)
	if got.Address != ":9999" || got.MaxSessions != 12 || !got.DevMode {
		t.Errorf("serverConfig() = %+v", got)
	}
	if got.HeartbeatInterval >= got.ReadTimeout {
		t.Errorf("heartbeat %v not shorter than read timeout %v", got.HeartbeatInterval, got.ReadTimeout)
	}
}

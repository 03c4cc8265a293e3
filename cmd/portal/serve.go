package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/linkportal/internal/config"
	"github.com/vango-dev/linkportal/pkg/api"
	"github.com/vango-dev/linkportal/pkg/credstore"
	"github.com/vango-dev/linkportal/pkg/middleware"
	"github.com/vango-dev/linkportal/pkg/portal"
	"github.com/vango-dev/linkportal/pkg/server"
)

// sweepInterval is how often expired in-memory credentials are dropped.
const sweepInterval = time.Minute

func serveCmd() *cobra.Command {
	var (
		address string
		dev     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		Long: `Start the portal server.

Configuration is read from portal.toml or portal.json in the config
directory, then from .env and PORTAL_* environment variables.

Examples:
  portal serve
  portal serve --address=:3000
  PORTAL_CREDENTIALS_BACKEND=redis PORTAL_CREDENTIALS_REDIS_URL=redis://localhost:6379 portal serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Address = address
			}
			if dev {
				cfg.DevMode = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Address to listen on (default from config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode: debug logging, no client caching")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.DevMode)
	slog.SetDefault(logger)

	srv, cleanup, err := newServer(ctx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("portal starting",
		"version", version,
		"address", cfg.Address,
		"api", cfg.API.BaseURL,
		"credentials", cfg.Credentials.Backend,
	)
	return srv.ListenAndServe(ctx)
}

func newLogger(dev bool) *slog.Logger {
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newServer wires the configured credential store, backend client,
// portal application and HTTP server. cleanup releases the store.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*server.Server, func(), error) {
	creds, serverOpts, cleanup, err := openCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: cfg.API.Timeout.Duration}
	backend := func(sessionID string) portal.Backend {
		return api.New(cfg.API.BaseURL, creds, sessionID,
			api.WithHTTPClient(httpClient),
			api.WithLogger(logger.With("component", "api", "session_id", sessionID)),
		)
	}

	appOpts := []portal.Option{portal.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		m := middleware.NewMetrics(middleware.WithRegistry(reg))
		appOpts = append(appOpts, portal.WithMetrics(m))
		serverOpts = append(serverOpts, server.WithMetrics(m, gatherer))
	}
	if cfg.Metrics.Tracing {
		appOpts = append(appOpts, portal.WithTracing())
	}

	app := portal.NewApp(portal.Config{
		AppName:       cfg.AppName,
		Language:      cfg.Language,
		RedirectLimit: cfg.RedirectLimit,
	}, backend, appOpts...)

	serverOpts = append(serverOpts, server.WithLogger(logger.With("component", "server")))
	srv := server.New(serverConfig(cfg), app, serverOpts...)
	return srv, cleanup, nil
}

func serverConfig(cfg *config.Config) *server.Config {
	return &server.Config{
		Address:           cfg.Address,
		ReadTimeout:       cfg.WebSocket.ReadTimeout.Duration,
		HeartbeatInterval: cfg.WebSocket.HeartbeatInterval.Duration,
		ActionTimeout:     cfg.WebSocket.ActionTimeout.Duration,
		MaxMessageSize:    cfg.WebSocket.MaxMessageSize,
		MaxSessions:       cfg.WebSocket.MaxSessions,
		DevMode:           cfg.DevMode,
	}
}

// openCredentials opens the configured credential store along with the
// health checks it contributes.
func openCredentials(ctx context.Context, cfg *config.Config, logger *slog.Logger) (credstore.Store, []server.Option, func(), error) {
	switch cfg.Credentials.Backend {
	case config.BackendRedis:
		client, err := credstore.Connect(ctx, cfg.Credentials.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("credentials: %w", err)
		}
		store := credstore.NewRedis(client,
			credstore.WithKeyPrefix(cfg.Credentials.KeyPrefix),
			credstore.WithRedisTTL(cfg.Credentials.TTL.Duration),
		)
		opts := []server.Option{server.WithHealthCheck("redis", credstore.Healthcheck(client))}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close failed", "error", err)
			}
		}
		return store, opts, cleanup, nil

	default:
		store := credstore.NewMemory(credstore.WithMemoryTTL(cfg.Credentials.TTL.Duration))
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweep(sweepCtx, store, logger)
		return store, nil, cancel, nil
	}
}

func sweep(ctx context.Context, store *credstore.Memory, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("expired credentials removed", "count", n)
			}
		}
	}
}

package server

import (
	"errors"
	"net/http"
	"time"
)

// Config holds configuration for the HTTP/WebSocket server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	// Timeouts

	// HandshakeTimeout is the maximum time for the client's hello frame.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// ReadTimeout is the maximum time to wait for a message or pong from
	// the client before the session is considered idle.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ActionTimeout bounds a single user action (sign in, sign up).
	// Default: 30 seconds.
	ActionTimeout time.Duration

	// ReadHeaderTimeout is the HTTP server's header read timeout.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit.
	MaxSessions int

	// SendQueue is the number of frames buffered per session.
	// Default: 64.
	SendQueue int

	// DevMode disables caching of the thin client.
	DevMode bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ActionTimeout:     30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MaxMessageSize:    64 * 1024, // 64KB
		SendQueue:         64,
	}
}

// withDefaults returns a copy of c with unset fields filled in.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.HandshakeTimeout == 0 {
		out.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = defaults.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if out.ActionTimeout == 0 {
		out.ActionTimeout = defaults.ActionTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = defaults.MaxMessageSize
	}
	if out.SendQueue == 0 {
		out.SendQueue = defaults.SendQueue
	}
	return &out
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.HeartbeatInterval >= c.ReadTimeout {
		errs = append(errs, errors.New("server: heartbeat interval must be shorter than the read timeout"))
	}
	if c.MaxMessageSize < 1024 {
		errs = append(errs, errors.New("server: max message size must be at least 1KB"))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, errors.New("server: max sessions must not be negative"))
	}
	if c.SendQueue < 1 {
		errs = append(errs, errors.New("server: send queue must hold at least one frame"))
	}
	return errors.Join(errs...)
}

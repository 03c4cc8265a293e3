package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/credstore"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the backend on behalf of one portal session.
type Client struct {
	baseURL   string
	http      *http.Client
	creds     credstore.Store
	sessionID string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Share one between sessions.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per-request timeout on a private HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the backend at baseURL. Credentials are stored
// in creds under sessionID.
func New(baseURL string, creds credstore.Store, sessionID string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		creds:     creds,
		sessionID: sessionID,
		logger:    slog.Default().With("component", "api"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session the client is bound to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Login implements auth.Client.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (*auth.User, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp, false); err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, resp); err != nil {
		return nil, err
	}
	if resp.User != nil {
		return resp.User, nil
	}
	return c.CurrentUser(ctx)
}

// Register implements auth.Client.
func (c *Client) Register(ctx context.Context, reg auth.Registration) (*auth.User, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", reg, &resp, false); err != nil {
		return nil, err
	}
	if err := c.storeTokens(ctx, resp); err != nil {
		return nil, err
	}
	if resp.User != nil {
		return resp.User, nil
	}
	return c.CurrentUser(ctx)
}

// CurrentUser implements auth.Client.
func (c *Client) CurrentUser(ctx context.Context) (*auth.User, error) {
	var user auth.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh implements auth.Client. A rejected refresh token drops the
// stored credential.
func (c *Client) Refresh(ctx context.Context) error {
	cred, err := c.credential(ctx)
	if err != nil {
		return err
	}
	if cred.RefreshToken == "" {
		return auth.ErrUnauthorized
	}

	var resp tokenResponse
	err = c.do(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: cred.RefreshToken}, &resp, false)
	if errors.Is(err, auth.ErrUnauthorized) {
		c.dropCredential(ctx)
		return err
	}
	if err != nil {
		return err
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = cred.RefreshToken
	}
	return c.storeTokens(ctx, resp)
}

// Logout implements auth.Client. The stored credential is dropped even
// when the backend call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.dropCredential(ctx)

	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
	if errors.Is(err, auth.ErrUnauthorized) {
		return nil
	}
	return err
}

// ForgotPassword asks the backend to send a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", forgotPasswordRequest{Email: email}, nil, false)
}

// ListURLs returns the signed-in user's links.
func (c *Client) ListURLs(ctx context.Context) ([]ShortURL, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/urls", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.URLs, nil
}

// GetURL returns one link by ID.
func (c *Client) GetURL(ctx context.Context, id string) (*ShortURL, error) {
	var u ShortURL
	if err := c.do(ctx, http.MethodGet, "/urls/"+url.PathEscape(id), nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) credential(ctx context.Context) (credstore.Credential, error) {
	cred, err := c.creds.Get(ctx, c.sessionID)
	if errors.Is(err, credstore.ErrNotFound) {
		return credstore.Credential{}, auth.ErrUnauthorized
	}
	if err != nil {
		return credstore.Credential{}, fmt.Errorf("api: load credential: %w", err)
	}
	return cred, nil
}

func (c *Client) storeTokens(ctx context.Context, resp tokenResponse) error {
	if resp.AccessToken == "" {
		return &Error{Status: http.StatusBadGateway, Message: "missing access token"}
	}
	cred := credstore.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		cred.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if err := c.creds.Put(ctx, c.sessionID, cred); err != nil {
		return fmt.Errorf("api: store credential: %w", err)
	}
	return nil
}

func (c *Client) dropCredential(ctx context.Context) {
	if err := c.creds.Delete(context.WithoutCancel(ctx), c.sessionID); err != nil {
		c.logger.Warn("failed to drop credential", "session", c.sessionID, "error", err)
	}
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		cred, err := c.credential(ctx)
		if err != nil {
			return err
		}
		if cred.Expired(c.now()) {
			if err := c.Refresh(ctx); err != nil {
				return err
			}
			if cred, err = c.credential(ctx); err != nil {
				return err
			}
		}
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if err := auth.FromStatus(resp.StatusCode); err != nil {
			return err
		}
		var eb errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(data, &eb) != nil {
			eb.Message = strings.TrimSpace(string(data))
		}
		return &Error{Status: resp.StatusCode, Message: eb.text()}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

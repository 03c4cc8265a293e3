package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

const (
	// TOMLFileName is the preferred configuration file.
	TOMLFileName = "portal.toml"

	// JSONFileName is read when no TOML file exists.
	JSONFileName = "portal.json"

	// DotEnvFileName holds local environment overrides.
	DotEnvFileName = ".env"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "PORTAL_"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":8080"

	// DefaultAPIURL is the default shortener backend.
	DefaultAPIURL = "http://localhost:8000/api"

	// DefaultKeyPrefix prefixes credential keys in Redis.
	DefaultKeyPrefix = "linkportal:cred:"
)

// Credential backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// Duration is a time.Duration written as "10s" in files and variables.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration like "1m30s".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the portal configuration.
type Config struct {
	// AppName is appended to every document title.
	AppName string `json:"appName,omitempty" toml:"app_name" env:"APP_NAME"`

	// Address is the address to listen on.
	Address string `json:"address,omitempty" toml:"address" env:"ADDRESS"`

	// Language selects the guard's message catalog.
	Language string `json:"language,omitempty" toml:"language" env:"LANGUAGE"`

	// RedirectLimit caps chained guard redirects per navigation.
	RedirectLimit int `json:"redirectLimit,omitempty" toml:"redirect_limit" env:"REDIRECT_LIMIT"`

	// DevMode disables client caching and enables debug logging.
	DevMode bool `json:"devMode,omitempty" toml:"dev_mode" env:"DEV_MODE"`

	API         APIConfig         `json:"api" toml:"api" envPrefix:"API_"`
	Credentials CredentialsConfig `json:"credentials" toml:"credentials" envPrefix:"CREDENTIALS_"`
	WebSocket   WebSocketConfig   `json:"websocket" toml:"websocket" envPrefix:"WS_"`
	Metrics     MetricsConfig     `json:"metrics" toml:"metrics" envPrefix:"METRICS_"`

	path string
}

// APIConfig locates the shortener backend.
type APIConfig struct {
	BaseURL string   `json:"baseURL,omitempty" toml:"base_url" env:"BASE_URL"`
	Timeout Duration `json:"timeout,omitempty" toml:"timeout" env:"TIMEOUT"`
}

// CredentialsConfig selects where session tokens are kept.
type CredentialsConfig struct {
	// Backend is "memory" or "redis".
	Backend   string   `json:"backend,omitempty" toml:"backend" env:"BACKEND"`
	RedisURL  string   `json:"redisURL,omitempty" toml:"redis_url" env:"REDIS_URL"`
	KeyPrefix string   `json:"keyPrefix,omitempty" toml:"key_prefix" env:"KEY_PREFIX"`
	TTL       Duration `json:"ttl,omitempty" toml:"ttl" env:"TTL"`
}

// WebSocketConfig bounds client connections.
type WebSocketConfig struct {
	MaxSessions       int      `json:"maxSessions,omitempty" toml:"max_sessions" env:"MAX_SESSIONS"`
	MaxMessageSize    int64    `json:"maxMessageSize,omitempty" toml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	ReadTimeout       Duration `json:"readTimeout,omitempty" toml:"read_timeout" env:"READ_TIMEOUT"`
	HeartbeatInterval Duration `json:"heartbeatInterval,omitempty" toml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	ActionTimeout     Duration `json:"actionTimeout,omitempty" toml:"action_timeout" env:"ACTION_TIMEOUT"`
}

// MetricsConfig controls observability.
type MetricsConfig struct {
	Enabled bool `json:"enabled,omitempty" toml:"enabled" env:"ENABLED"`
	Tracing bool `json:"tracing,omitempty" toml:"tracing" env:"TRACING"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		AppName:       "Linkportal",
		Address:       DefaultAddress,
		Language:      "en",
		RedirectLimit: 8,
		API: APIConfig{
			BaseURL: DefaultAPIURL,
			Timeout: Duration{10 * time.Second},
		},
		Credentials: CredentialsConfig{
			Backend:   BackendMemory,
			KeyPrefix: DefaultKeyPrefix,
			TTL:       Duration{24 * time.Hour},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize:    64 * 1024,
			ReadTimeout:       Duration{60 * time.Second},
			HeartbeatInterval: Duration{30 * time.Second},
			ActionTimeout:     Duration{30 * time.Second},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the configuration from dir: portal.toml or portal.json when
// present, then .env, then the process environment. Missing files are
// not an error; the result is validated.
func Load(dir string) (*Config, error) {
	cfg := New()

	for _, name := range []string{TOMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		err := cfg.readFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	environ, err := Environ(filepath.Join(dir, DotEnvFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(environ); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a single configuration file without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
		}
	}
	c.path = path
	return nil
}

// Environ returns the process environment merged over the variables in
// the dotenv file at path. A missing file is ignored.
func Environ(path string) (map[string]string, error) {
	environ := make(map[string]string)
	if path != "" {
		vars, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", filepath.Base(path), err)
		}
		for k, v := range vars {
			environ[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return environ, nil
}

// ApplyEnv overrides fields from PORTAL_* variables in environ.
func (c *Config) ApplyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// applyDefaults fills in values cleared by files or the environment.
func (c *Config) applyDefaults() {
	defaults := New()
	if c.AppName == "" {
		c.AppName = defaults.AppName
	}
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.Language == "" {
		c.Language = defaults.Language
	}
	if c.Credentials.Backend == "" {
		c.Credentials.Backend = defaults.Credentials.Backend
	}
	if c.Credentials.KeyPrefix == "" {
		c.Credentials.KeyPrefix = defaults.Credentials.KeyPrefix
	}
	c.Credentials.Backend = strings.ToLower(c.Credentials.Backend)
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Address == "" {
		invalid("address is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		invalid("api.base_url %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout.Duration <= 0 {
		invalid("api.timeout must be positive")
	}
	if _, err := language.Parse(c.Language); err != nil {
		invalid("language %q: %v", c.Language, err)
	}
	if c.RedirectLimit < 1 {
		invalid("redirect_limit must be at least 1")
	}

	switch c.Credentials.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Credentials.RedisURL == "" {
			invalid("credentials.redis_url is required for the redis backend")
		}
	default:
		invalid("credentials.backend %q must be %q or %q", c.Credentials.Backend, BackendMemory, BackendRedis)
	}
	if c.Credentials.TTL.Duration < 0 {
		invalid("credentials.ttl must not be negative")
	}

	if c.WebSocket.MaxSessions < 0 {
		invalid("websocket.max_sessions must not be negative")
	}
	if c.WebSocket.MaxMessageSize < 0 {
		invalid("websocket.max_message_size must not be negative")
	}
	return errors.Join(errs...)
}

// Path returns the file the config was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// LanguageTag returns the parsed language, or English when it is invalid.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces credential keys.
const DefaultKeyPrefix = "linkportal:cred:"

// Connect parses a redis:// or rediss:// URL, creates a client, and
// verifies it with a ping.
func Connect(ctx context.Context, connectionURL string) (*redis.Client, error) {
	if connectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts, err := redis.ParseURL(connectionURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrNotReady, err)
	}
	return client, nil
}

// Healthcheck returns a function that pings client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrNotReady, err)
		}
		return nil
	}
}

// Redis is a Store backed by Redis. Credentials are stored as JSON with
// an idle TTL that is renewed on every read.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisTTL sets the idle TTL.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis creates a store using client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(key string) string {
	if strings.HasSuffix(r.prefix, ":") {
		return r.prefix + key
	}
	return r.prefix + ":" + key
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (Credential, error) {
	if key == "" {
		return Credential{}, ErrEmptyKey
	}
	data, err := r.client.GetEx(ctx, r.key(key), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, fmt.Errorf("credstore: get %s: %w", key, err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("credstore: decode %s: %w", key, err)
	}
	return cred, nil
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key string, cred Credential) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("credstore: encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("credstore: put %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("credstore: delete %s: %w", key, err)
	}
	return nil
}

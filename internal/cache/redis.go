// Package cache provides the read-through cache used to accelerate token
// issuance and password hashing. The cache is never authoritative: every
// failure degrades to a miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a best-effort string key/value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Delete(ctx context.Context, key string)
}

// ErrUnreachable marks a Redis server that did not answer the initial ping.
var ErrUnreachable = errors.New("redis unreachable")

// Dial connects to Redis and checks the connection. When only the ping fails
// the client is still returned with an ErrUnreachable error; it reconnects on
// its own once the server is back.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return client, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return client, nil
}

// RedisCache implements Cache on a shared Redis client.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps an existing client. A zero ttl stores keys without expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}
}

// WithPrefix returns a copy that namespaces every key.
func (c *RedisCache) WithPrefix(prefix string) *RedisCache {
	cp := *c
	cp.prefix = prefix
	return &cp
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// keyClass is the part of a key before the first colon. Keys may embed
// secrets after it, so logs carry only the class.
func keyClass(k string) string {
	class, _, _ := strings.Cut(k, ":")
	return class
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "cache get failed", "key_class", keyClass(key), "error", err)
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "key_class", keyClass(key), "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache delete failed", "key_class", keyClass(key), "error", err)
	}
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Nop is the disabled cache: every lookup misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, bool) { return "", false }
func (Nop) Set(context.Context, string, string)         {}
func (Nop) Delete(context.Context, string)              {}

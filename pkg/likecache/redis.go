package likecache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store. It is suitable when the like cache
// should be shared across devices signed into the same account.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	closed bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
}

// WithRedisPrefix sets the key prefix for cache keys.
// Default: "gathersync:likes:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	cfg := &redisStoreConfig{
		prefix: "gathersync:likes:",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.prefix,
	}
}

// key returns the Redis key for an event.
func (r *RedisStore) key(eventID string) string {
	return r.prefix + eventID
}

// Load retrieves the blob for an event.
func (r *RedisStore) Load(ctx context.Context, eventID string) ([]byte, error) {
	if r.closed {
		return nil, ErrStoreClosed{}
	}

	data, err := r.client.Get(ctx, r.key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save stores the blob for an event. Entries are monotonically refreshed and
// never deleted, so no TTL is set.
func (r *RedisStore) Save(ctx context.Context, eventID string, data []byte) error {
	if r.closed {
		return ErrStoreClosed{}
	}
	return r.client.Set(ctx, r.key(eventID), data, 0).Err()
}

// Close marks the store as closed.
// Note: This does not close the underlying Redis client,
// as it may be shared with other components.
func (r *RedisStore) Close() error {
	r.closed = true
	return nil
}

// Prefix returns the current key prefix.
// This is for testing/debugging purposes.
func (r *RedisStore) Prefix() string {
	return r.prefix
}

package savedviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces saved view keys in a shared Redis.
const DefaultRedisPrefix = "crm:savedviews:"

// RedisKV stores saved view lists as plain Redis strings without expiry.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV wraps client. An empty prefix selects DefaultRedisPrefix.
func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisKV{client: client, prefix: prefix}
}

// Get loads the value under key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("savedviews: redis get %s: %w", key, err)
	}
	return payload, nil
}

// Set writes value under key.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("savedviews: redis set %s: %w", key, err)
	}
	return nil
}

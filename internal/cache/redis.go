package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eve.evalgo.org/internal/obslog"
)

// RedisCache adapts Adapter to go-redis/v9, grounded on
// db/repository/redis.go's CacheRepository (key-prefixed get/set/delete)
// generalized with a cursor-based SCAN for pattern invalidation, the
// approach queue/redis/queue.go uses for its own key-space operations.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and returns a ready RedisCache. Keys
// are namespaced under prefix (e.g. "cache:") to share a Redis instance with
// the training dispatcher's job queue without collision.
func NewRedisCache(ctx context.Context, redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client, prefix: prefix}, nil
}

func (c *RedisCache) fullKey(key string) string {
	return c.prefix + key
}

// Get returns the cached value, or nil with a nil error on miss or any
// transport failure — the cache is never allowed to fail a prediction.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		obslog.Logger.WithError(err).Warn("cache get failed, treating as miss")
		return nil, nil
	}
	return val, nil
}

// Set stores value under key with the given TTL. Failures are logged and
// returned; callers in the prediction path log them and carry on.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	if err := c.client.Set(ctx, c.fullKey(key), value, ttl).Err(); err != nil {
		obslog.Logger.WithError(err).Warn("cache set failed")
		return err
	}
	return nil
}

// Delete removes a single key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.fullKey(key)).Err(); err != nil {
		obslog.Logger.WithError(err).Warn("cache delete failed")
		return err
	}
	return nil
}

// InvalidatePattern deletes every key matching pattern via cursor-based
// SCAN, in batches, rather than KEYS (which would block the server on a
// large keyspace). Best-effort: a failure partway through still removes
// whatever was scanned so far and is logged, never propagated as fatal.
func (c *RedisCache) InvalidatePattern(ctx context.Context, pattern string) error {
	fullPattern := c.fullKey(pattern)
	var cursor uint64
	var firstErr error

	for {
		keys, next, err := c.client.Scan(ctx, cursor, fullPattern, 200).Result()
		if err != nil {
			obslog.Logger.WithError(err).Warn("cache invalidate-pattern scan failed")
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				obslog.Logger.WithError(err).Warn("cache invalidate-pattern delete batch failed")
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return firstErr
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Adapter = (*RedisCache)(nil)

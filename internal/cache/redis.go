package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of Redis key expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache from a redis:// URL
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "accessible:",
	}, nil
}

// NewRedisCacheWithClient creates a cache from an existing Redis client
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "accessible:",
	}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// GetOrCompute returns the cached value for key, computing and storing it
// with the given TTL on a miss. A Redis read failure falls through to
// compute so a degraded cache never blocks resolution; a write failure after
// a successful compute is reported since the caller's staleness contract
// depends on entries actually landing.
func (c *RedisCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFn) ([]byte, error) {
	cached, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == nil {
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return nil, fmt.Errorf("store cache entry: %w", err)
	}

	return value, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

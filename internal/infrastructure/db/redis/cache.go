package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 10 * time.Minute

// QueryCache implements the service cache port on Redis. Entries expire
// after cacheTTL as a backstop; correctness comes from the generation
// counters the cached query layer bumps on every write.
type QueryCache struct {
	client *redis.Client
}

// NewQueryCache wraps the given Redis client.
func NewQueryCache(client *redis.Client) *QueryCache {
	return &QueryCache{client: client}
}

// Get returns the cached payload, or nil on a miss.
func (c *QueryCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return raw, nil
}

// Set stores a payload with the backstop TTL.
func (c *QueryCache) Set(ctx context.Context, key string, val []byte) error {
	return c.client.Set(ctx, key, val, cacheTTL).Err()
}

// Incr bumps and returns a generation counter. Generation keys do not
// expire; they are a handful of small integers per tenant.
func (c *QueryCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr: %w", err)
	}
	return n, nil
}

// Counter reads a generation counter; an absent counter reads as 0.
func (c *QueryCache) Counter(ctx context.Context, key string) (int64, error) {
	raw, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache counter: %w", err)
	}
	return raw, nil
}

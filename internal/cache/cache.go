// Package cache provides a small Redis-backed cache for dashboard responses.
//
// The dashboard UI polls on a fixed refresh interval, so identical windows
// are requested in bursts; a short TTL absorbs those without re-reading the
// record store. The cache is strictly best-effort: every method degrades to
// a miss on Redis failure.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encoded values with a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at url (redis:// form) and verifies the connection.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// DashboardKey builds the cache key for a dashboard window.
func DashboardKey(hours int) string {
	return fmt.Sprintf("kanshi:dashboard:%dh", hours)
}

// Get unmarshals the cached value for key into target, reporting whether it
// was present.
func (c *Cache) Get(ctx context.Context, key string, target any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		// A corrupt entry is a miss; it will be overwritten on the next Set.
		return false, nil
	}
	return true, nil
}

// Set stores v under key with the cache's TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

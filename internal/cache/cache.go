// internal/cache/cache.go
// Redis-backed cache with JSON helpers. Used for LiveStats and
// ConnectedPlayer snapshot caching, fixed-window rate limiting, and
// allocator backoff bookkeeping.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a redis client with JSON (de)serialization helpers.
type Cache struct {
	client *redis.Client
	logger *log.Logger
}

func New(client *redis.Client, logger *log.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("key not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get from cache: %w", err)
	}
	return json.Unmarshal(data, dest)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Increment bumps a counter and resets its TTL to window on every call,
// so the counter only expires once window passes with no further hits.
// The rate limiter uses it for per-IP request counting.
func (c *Cache) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment: %w", err)
	}
	return int(incr.Val()), nil
}

// SetNX stores value under key only if the key does not exist yet,
// reporting whether it was stored.
func (c *Cache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}
	ok, err := c.client.SetNX(ctx, key, data, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx: %w", err)
	}
	return ok, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// LiveStatsKey / ConnectedPlayersKey namespace the per-match derived
// caches the ingestor maintains.
func LiveStatsKey(matchSlug string) string {
	return "livestats:" + matchSlug
}

func ConnectedPlayersKey(matchSlug string) string {
	return "connected:" + matchSlug
}

package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Miss detection
	"time"          // Entry lifetime

	"github.com/redis/go-redis/v9" // Redis client
)

// DefaultTTL is used when New receives a non-positive ttl
const DefaultTTL = 60 * time.Second

// Cache is a JSON read-through cache on Redis. A nil *Cache is valid and
// behaves as an always-empty cache.
type Cache struct {
	rdb    *redis.Client // Redis connection
	prefix string        // Namespace for every key
	ttl    time.Duration // Lifetime of every entry
}

// New wraps rdb; keys are namespaced with prefix
func New(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get loads key into dest and reports whether it was present
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err // Corrupt entry counts as an error, not a hit
	}
	return true, nil
}

// Set stores value under key for the cache TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, b, c.ttl).Err()
}

// Delete removes keys; absent keys are ignored
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.prefix + key
	}
	return c.rdb.Del(ctx, full...).Err()
}

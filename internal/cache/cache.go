// internal/cache/cache.go

// Package cache implements the key-value side cache in front of the store.
// The cache is a pure latency optimization: every operation degrades to a
// miss or no-op when Redis is unreachable, and correctness never depends on
// an entry being present.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const invalidateScanCount = 100

type Cache struct {
	client *redis.Client
	logger logger.Logger
}

func New(client *redis.Client, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// Get returns the value for key and whether it was present. Store errors are
// reported as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.degrade("get", key, err)
		}
		metrics.CacheMisses.WithLabelValues(entityOf(key)).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(entityOf(key)).Inc()
	return val, true
}

// entityOf maps a cache key to its namespace label, the part before the first
// colon.
func entityOf(key string) string {
	if i := strings.Index(key, ":"); i > 0 {
		return key[:i]
	}
	return "unknown"
}

// Set stores value under key with the given TTL. Errors are swallowed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.degrade("set", key, err)
	}
}

// Delete removes the given keys. Errors are swallowed.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.degrade("delete", keys[0], err)
	}
}

// InvalidatePattern removes every key matching the glob pattern using an
// incremental SCAN, deleting in batches. Used by write paths to bust the
// opaque filtered-list keys for an entity type.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, invalidateScanCount).Result()
		if err != nil {
			c.degrade("scan", pattern, err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.degrade("delete", pattern, err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (c *Cache) degrade(op, key string, err error) {
	metrics.CacheErrors.Inc()
	c.logger.Warn("cache operation degraded to pass-through", map[string]interface{}{
		"op":    op,
		"key":   key,
		"error": err.Error(),
	})
}

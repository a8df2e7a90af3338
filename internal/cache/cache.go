// Package cache is a JSON response cache in redis. A nil *Cache is valid
// and caches nothing.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhcramos/urbix-api/internal/config"
	"github.com/jhcramos/urbix-api/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "urbix:"

// Cache stores JSON encoded values with a fixed TTL.
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// Open connects to redis when the cache is enabled, otherwise it returns nil.
func Open(cfg config.RedisConfig) *Cache {
	if !cfg.Enabled {
		return nil
	}
	return New(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.TTL)
}

// New wraps an existing client.
func New(rc *redis.Client, ttl time.Duration) *Cache {
	if rc == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{rc: rc, ttl: ttl}
}

// Key builds a namespaced key. Long parts are hashed to keep keys short.
func Key(namespace string, parts ...string) string {
	joined := strings.Join(parts, "|")
	if len(joined) > 120 {
		sum := sha1.Sum([]byte(joined))
		joined = hex.EncodeToString(sum[:])
	}
	return keyPrefix + namespace + ":" + joined
}

// GetJSON decodes the cached value for key into out. Any redis or decode
// failure is reported as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if c == nil {
		return false
	}
	s, err := c.rc.Get(ctx, key).Result()
	if err != nil || s == "" {
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		metrics.CacheMissesTotal.Inc()
		return false
	}
	metrics.CacheHitsTotal.Inc()
	return true
}

// SetJSON stores v under key. Failures are ignored; the cache is best effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rc.Set(ctx, key, string(b), c.ttl).Err()
}

// Ping checks the redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache not configured")
	}
	if err := c.rc.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rc.Close()
}

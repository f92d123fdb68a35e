// Package cache provides optional Redis caching for verification lookups.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

// InitRedis connects to Redis at addr. A missing or unreachable Redis is not
// fatal: the bot continues without a cache and hits Veyra directly.
func InitRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			slog.Warn("invalid REDIS_URL, continuing without cache", "error", err)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, continuing without cache", "error", err)
		return nil
	}

	slog.Info("redis connected")
	return client
}

// VerificationCache caches Veyra verification records by ckey. A nil cache
// (or a cache over a nil client) is a no-op on every method.
type VerificationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewVerificationCache creates a cache with the given TTL.
func NewVerificationCache(rdb *redis.Client, ttl time.Duration) *VerificationCache {
	if rdb == nil {
		return nil
	}
	return &VerificationCache{rdb: rdb, ttl: ttl}
}

func (c *VerificationCache) key(ckey string) string {
	return "veyra:verification:" + ckey
}

// Get returns the cached record for ckey, if present.
func (c *VerificationCache) Get(ctx context.Context, ckey string) (*models.Verification, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, c.key(ckey)).Bytes()
	if err != nil {
		return nil, false
	}

	var v models.Verification
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set stores a record for ckey. Failures are logged and swallowed; the
// cache is a courtesy, not a source of truth.
func (c *VerificationCache) Set(ctx context.Context, ckey string, v *models.Verification) {
	if c == nil || c.rdb == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(ckey), raw, c.ttl).Err(); err != nil {
		slog.Warn("verification cache write failed", "ckey", ckey, "error", err)
	}
}

// Invalidate drops the cached record for ckey.
func (c *VerificationCache) Invalidate(ctx context.Context, ckey string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(ckey)).Err(); err != nil {
		slog.Warn("verification cache invalidate failed", "ckey", ckey, "error", err)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/deepsearch-io/deepsearch/internal/search"
	pkgredis "github.com/deepsearch-io/deepsearch/pkg/redis"
)

// Tiered layers a shared Redis tier behind a Memory cache so multiple
// search replicas can reuse each other's results. Redis failures are
// logged and the cache fails open to the in-process tier.
type Tiered struct {
	l1     *Memory
	l2     *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewTiered wraps a Memory cache with a Redis second tier.
func NewTiered(l1 *Memory, l2 *pkgredis.Client, ttl time.Duration) *Tiered {
	return &Tiered{
		l1:     l1,
		l2:     l2,
		ttl:    ttl,
		logger: slog.Default().With("component", "result-cache"),
	}
}

// Get checks the in-process tier first and falls back to Redis.
// A Redis hit is promoted into the in-process tier.
func (c *Tiered) Get(ctx context.Context, key string) ([]search.SearchResult, bool) {
	if results, ok := c.l1.Get(ctx, key); ok {
		return results, true
	}
	data, err := c.l2.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("redis cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var results []search.SearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("redis cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	c.l1.Put(ctx, key, results)
	return results, true
}

// Put stores results in both tiers.
func (c *Tiered) Put(ctx context.Context, key string, results []search.SearchResult) {
	c.l1.Put(ctx, key, results)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("redis cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.l2.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("redis cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute mirrors Memory.GetOrCompute across both tiers.
func (c *Tiered) GetOrCompute(ctx context.Context, key string, compute func() ([]search.SearchResult, error)) ([]search.SearchResult, bool, error) {
	if results, ok := c.Get(ctx, key); ok {
		return results, true, nil
	}
	val, err, _ := c.l1.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, key); ok {
			return results, nil
		}
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]search.SearchResult), false, nil
}

// Clear drops the in-process tier and flushes the search keys from
// Redis.
func (c *Tiered) Clear(ctx context.Context) {
	c.l1.Clear(ctx)
	deleted, err := c.l2.FlushByPattern(ctx, "search:*")
	if err != nil {
		c.logger.Error("redis cache flush failed", "error", err)
		return
	}
	c.logger.Info("cache cleared", "redis_keys_deleted", deleted)
}

// Stats returns the in-process tier counters.
func (c *Tiered) Stats() Stats {
	return c.l1.Stats()
}

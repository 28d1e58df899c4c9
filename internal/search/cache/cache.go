// Package cache provides the query result cache: an in-process
// LRU+TTL tier, an optional Redis second tier, and singleflight
// suppression of duplicate computations.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/deepsearch-io/deepsearch/internal/search"
)

// Cache is the result cache contract the orchestrator depends on.
type Cache interface {
	Get(ctx context.Context, key string) ([]search.SearchResult, bool)
	Put(ctx context.Context, key string, results []search.SearchResult)
	GetOrCompute(ctx context.Context, key string, compute func() ([]search.SearchResult, error)) ([]search.SearchResult, bool, error)
	Clear(ctx context.Context)
}

// Stats is a point-in-time view of cache effectiveness counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// HitRate returns hits/(hits+misses), or 0 before any lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Key derives a stable cache key from the query, result count, and
// filters. Filter order does not affect the key.
func Key(query string, topK int, filters map[string]string) string {
	parts := make([]string, 0, len(filters))
	for k, v := range filters {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	raw := fmt.Sprintf("%s:topk=%d:%s", strings.ToLower(strings.TrimSpace(query)), topK, strings.Join(parts, ","))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("search:%x", hash[:16])
}

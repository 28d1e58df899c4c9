package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/pkg/metrics"
)

type entry struct {
	key       string
	results   []search.SearchResult
	createdAt time.Time
}

// Memory is a bounded in-process result cache. Capacity is enforced
// with LRU eviction on Put; staleness is enforced lazily, an expired
// entry is evicted by the Get that finds it.
type Memory struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	entries   map[string]*list.Element
	order     *list.List
	hits      int64
	misses    int64
	evictions int64

	group   singleflight.Group
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewMemory creates a Memory cache with the given capacity and TTL.
func NewMemory(capacity int, ttl time.Duration, m *metrics.Metrics) *Memory {
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		metrics:  m,
		now:      time.Now,
	}
}

// Get returns the cached results for key if present and fresh. Results
// keep their stored order. An expired entry is removed and counts as a
// miss and an eviction.
func (c *Memory) Get(_ context.Context, key string) ([]search.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}
	ent := elem.Value.(*entry)
	if c.ttl > 0 && c.now().Sub(ent.createdAt) > c.ttl {
		c.removeLocked(elem)
		c.evictions++
		if c.metrics != nil {
			c.metrics.CacheEvictionsTotal.Inc()
		}
		c.miss()
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return ent.results, true
}

// Put stores results under key, evicting the least recently used entry
// when the cache is full.
func (c *Memory) Put(_ context.Context, key string, results []search.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry)
		ent.results = results
		ent.createdAt = c.now()
		c.order.MoveToFront(elem)
		return
	}
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.removeLocked(oldest)
			c.evictions++
			if c.metrics != nil {
				c.metrics.CacheEvictionsTotal.Inc()
			}
		}
	}
	elem := c.order.PushFront(&entry{
		key:       key,
		results:   results,
		createdAt: c.now(),
	})
	c.entries[key] = elem
}

// GetOrCompute returns the cached results for key or runs compute once
// for all concurrent callers asking for the same key. The bool reports
// whether the value came from cache.
func (c *Memory) GetOrCompute(ctx context.Context, key string, compute func() ([]search.SearchResult, error)) ([]search.SearchResult, bool, error) {
	if results, ok := c.Get(ctx, key); ok {
		return results, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
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

// Clear drops every entry. Counters are preserved.
func (c *Memory) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of live entries, including any not yet
// lazily expired.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a consistent snapshot of the cache counters.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

func (c *Memory) miss() {
	c.misses++
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *Memory) removeLocked(elem *list.Element) {
	ent := elem.Value.(*entry)
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearch-io/deepsearch/internal/search"
)

func results(ids ...string) []search.SearchResult {
	out := make([]search.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = search.SearchResult{ChunkID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour, nil)

	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)

	c.Put(ctx, "k1", results("c1", "c2"))
	got, ok := c.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, results("c1", "c2"), got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour, nil)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put(ctx, "k1", results("c1"))

	now = now.Add(30 * time.Minute)
	_, ok := c.Get(ctx, "k1")
	assert.True(t, ok)

	now = now.Add(31 * time.Minute)
	_, ok = c.Get(ctx, "k1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(1000, time.Hour, nil)
	for i := 0; i < 1000; i++ {
		c.Put(ctx, fmt.Sprintf("k%d", i), results("c"))
	}
	assert.Equal(t, 1000, c.Len())

	// k0 is now the least recently used entry.
	c.Put(ctx, "k1000", results("c"))
	assert.Equal(t, 1000, c.Len())
	_, ok := c.Get(ctx, "k0")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "k1000")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryLRUOrderUpdatedByGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Hour, nil)
	c.Put(ctx, "a", results("c"))
	c.Put(ctx, "b", results("c"))

	_, ok := c.Get(ctx, "a")
	require.True(t, ok)

	c.Put(ctx, "c", results("c"))
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour, nil)
	c.Put(ctx, "k1", results("c1"))
	c.Clear(ctx)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryPreservesOrder(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour, nil)
	stored := results("c3", "c1", "c2")
	c.Put(ctx, "k1", stored)
	got, ok := c.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestGetOrComputeSingleflight(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour, nil)

	var computes atomic.Int64
	gate := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			got, _, err := c.GetOrCompute(ctx, "k1", func() ([]search.SearchResult, error) {
				computes.Add(1)
				time.Sleep(20 * time.Millisecond)
				return results("c1"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, results("c1"), got)
		}()
	}
	close(gate)
	wg.Wait()
	assert.LessOrEqual(t, computes.Load(), int64(2))

	got, cached, err := c.GetOrCompute(ctx, "k1", func() ([]search.SearchResult, error) {
		computes.Add(1)
		return nil, errors.New("should not run")
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, results("c1"), got)
}

func TestGetOrComputeError(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour, nil)
	wantErr := errors.New("backend down")
	_, _, err := c.GetOrCompute(ctx, "k1", func() ([]search.SearchResult, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len())
}

func TestKeyStableAcrossFilterOrder(t *testing.T) {
	a := Key("Füze Testi", 10, map[string]string{"year": "2024", "type": "report"})
	b := Key("füze testi  ", 10, map[string]string{"type": "report", "year": "2024"})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Key("füze testi", 20, map[string]string{"type": "report", "year": "2024"}))
	assert.NotEqual(t, a, Key("füze testi", 10, nil))
}

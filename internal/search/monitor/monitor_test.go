package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserveAggregates(t *testing.T) {
	mon := New(10, nil)
	mon.Observe(Record{
		Query:    "füze testi",
		Duration: 20 * time.Millisecond,
		CacheHit: false,
		Results:  3,
		Keyword:  BranchOutcome{Ran: true, Latency: 5 * time.Millisecond, Results: 3},
		Vector:   BranchOutcome{Ran: true, Latency: 15 * time.Millisecond, Results: 2},
	})
	mon.Observe(Record{
		Query:    "füze testi",
		Duration: 1 * time.Millisecond,
		CacheHit: true,
		Results:  3,
	})

	stats := mon.Stats()
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.InDelta(t, 0.5, stats.CacheHitRate, 1e-9)
	assert.Equal(t, int64(1), stats.KeywordSearches)
	assert.Equal(t, int64(1), stats.VectorSearches)
	assert.InDelta(t, 10.5, stats.AvgLatencyMs, 0.01)
}

func TestObserveDegraded(t *testing.T) {
	mon := New(10, nil)
	mon.Observe(Record{
		Query:    "radar",
		Duration: 5 * time.Millisecond,
		Keyword:  BranchOutcome{Ran: true, Results: 1},
		Vector:   BranchOutcome{Degraded: true, Reason: "encoder_unavailable"},
	})
	stats := mon.Stats()
	assert.Equal(t, int64(1), stats.DegradedVector)
	assert.Equal(t, int64(0), stats.DegradedKeyword)
}

func TestSlowestQueriesBounded(t *testing.T) {
	mon := New(3, nil)
	for i := 1; i <= 10; i++ {
		mon.Observe(Record{
			Query:    fmt.Sprintf("q%d", i),
			Duration: time.Duration(i) * time.Millisecond,
		})
	}
	stats := mon.Stats()
	assert.Len(t, stats.SlowestQueries, 3)
	assert.Equal(t, "q10", stats.SlowestQueries[0].Query)
	assert.Equal(t, "q9", stats.SlowestQueries[1].Query)
	assert.Equal(t, "q8", stats.SlowestQueries[2].Query)
}

func TestStatsEmpty(t *testing.T) {
	mon := New(0, nil)
	stats := mon.Stats()
	assert.Zero(t, stats.TotalSearches)
	assert.Zero(t, stats.AvgLatencyMs)
	assert.Zero(t, stats.CacheHitRate)
	assert.Empty(t, stats.SlowestQueries)
}

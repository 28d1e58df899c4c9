// Package monitor aggregates per-request search telemetry: totals,
// latency, cache effectiveness, per-branch outcomes, and the slowest
// queries seen so far.
package monitor

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepsearch-io/deepsearch/pkg/metrics"
)

const defaultSlowestSize = 10

// BranchOutcome describes one retrieval branch of a single request.
type BranchOutcome struct {
	Ran      bool
	Latency  time.Duration
	Results  int
	Degraded bool
	Reason   string
}

// Record is the telemetry for one completed search request.
type Record struct {
	Query    string
	Duration time.Duration
	CacheHit bool
	Results  int
	Keyword  BranchOutcome
	Vector   BranchOutcome
	Err      bool
}

// SlowQuery is one entry of the slowest-queries ranking.
type SlowQuery struct {
	Query      string    `json:"query"`
	DurationMs float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats is a point-in-time aggregate view.
type Stats struct {
	TotalSearches   int64       `json:"total_searches"`
	ErrorCount      int64       `json:"error_count"`
	AvgLatencyMs    float64     `json:"avg_latency_ms"`
	CacheHits       int64       `json:"cache_hits"`
	CacheMisses     int64       `json:"cache_misses"`
	CacheHitRate    float64     `json:"cache_hit_rate"`
	KeywordSearches int64       `json:"keyword_searches"`
	VectorSearches  int64       `json:"vector_searches"`
	DegradedVector  int64       `json:"degraded_vector"`
	DegradedKeyword int64       `json:"degraded_keyword"`
	SlowestQueries  []SlowQuery `json:"slowest_queries"`
}

// Monitor collects search telemetry. Counter updates are atomic; only
// the slowest-queries ranking takes a short lock.
type Monitor struct {
	totalSearches   atomic.Int64
	errorCount      atomic.Int64
	totalLatency    atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	keywordSearches atomic.Int64
	vectorSearches  atomic.Int64
	degradedVector  atomic.Int64
	degradedKeyword atomic.Int64

	mu      sync.Mutex
	slowest []SlowQuery
	size    int

	metrics *metrics.Metrics
}

// New creates a Monitor keeping the given number of slowest queries
// (default 10 when size <= 0).
func New(size int, m *metrics.Metrics) *Monitor {
	if size <= 0 {
		size = defaultSlowestSize
	}
	return &Monitor{size: size, metrics: m}
}

// Observe folds one request record into the aggregates and exports it
// to Prometheus.
func (mon *Monitor) Observe(rec Record) {
	mon.totalSearches.Add(1)
	mon.totalLatency.Add(int64(rec.Duration))
	if rec.Err {
		mon.errorCount.Add(1)
	}

	cacheStatus := "miss"
	if rec.CacheHit {
		cacheStatus = "hit"
		mon.cacheHits.Add(1)
	} else {
		mon.cacheMisses.Add(1)
	}

	if rec.Keyword.Ran {
		mon.keywordSearches.Add(1)
	}
	if rec.Vector.Ran {
		mon.vectorSearches.Add(1)
	}
	if rec.Keyword.Degraded {
		mon.degradedKeyword.Add(1)
	}
	if rec.Vector.Degraded {
		mon.degradedVector.Add(1)
	}

	if mon.metrics != nil {
		outcome := "ok"
		switch {
		case rec.Err:
			outcome = "error"
		case rec.Keyword.Degraded || rec.Vector.Degraded:
			outcome = "degraded"
		case rec.Results == 0:
			outcome = "empty"
		}
		mon.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
		mon.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(rec.Duration.Seconds())
		mon.observeBranch("keyword", rec.Keyword)
		mon.observeBranch("vector", rec.Vector)
	}

	mon.recordSlow(rec)
}

func (mon *Monitor) observeBranch(name string, b BranchOutcome) {
	if b.Ran {
		mon.metrics.BranchLatency.WithLabelValues(name).Observe(b.Latency.Seconds())
		mon.metrics.BranchResultsCount.WithLabelValues(name).Observe(float64(b.Results))
	}
	if b.Degraded {
		reason := b.Reason
		if reason == "" {
			reason = "unknown"
		}
		mon.metrics.BranchDegradedTotal.WithLabelValues(name, reason).Inc()
	}
}

func (mon *Monitor) recordSlow(rec Record) {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if len(mon.slowest) == mon.size &&
		rec.Duration.Seconds()*1000 <= mon.slowest[len(mon.slowest)-1].DurationMs {
		return
	}
	mon.slowest = append(mon.slowest, SlowQuery{
		Query:      rec.Query,
		DurationMs: rec.Duration.Seconds() * 1000,
		Timestamp:  time.Now(),
	})
	sort.Slice(mon.slowest, func(i, j int) bool {
		return mon.slowest[i].DurationMs > mon.slowest[j].DurationMs
	})
	if len(mon.slowest) > mon.size {
		mon.slowest = mon.slowest[:mon.size]
	}
}

// Stats returns a consistent snapshot of the aggregates.
func (mon *Monitor) Stats() Stats {
	mon.mu.Lock()
	slowest := make([]SlowQuery, len(mon.slowest))
	copy(slowest, mon.slowest)
	mon.mu.Unlock()

	total := mon.totalSearches.Load()
	stats := Stats{
		TotalSearches:   total,
		ErrorCount:      mon.errorCount.Load(),
		CacheHits:       mon.cacheHits.Load(),
		CacheMisses:     mon.cacheMisses.Load(),
		KeywordSearches: mon.keywordSearches.Load(),
		VectorSearches:  mon.vectorSearches.Load(),
		DegradedVector:  mon.degradedVector.Load(),
		DegradedKeyword: mon.degradedKeyword.Load(),
		SlowestQueries:  slowest,
	}
	if total > 0 {
		stats.AvgLatencyMs = float64(mon.totalLatency.Load()) / float64(total) / 1e6
	}
	lookups := stats.CacheHits + stats.CacheMisses
	if lookups > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(lookups)
	}
	return stats
}

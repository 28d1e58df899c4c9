// Package metrics defines the Prometheus metric collectors used by the
// search engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchesTotal        *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	BranchLatency        *prometheus.HistogramVec
	BranchResultsCount   *prometheus.HistogramVec
	BranchDegradedTotal  *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheEvictionsTotal  prometheus.Counter
	EncoderRequestsTotal *prometheus.CounterVec
	EncoderLatency       prometheus.Histogram
	PoolReloadsTotal     *prometheus.CounterVec
	SnapshotChunks       prometheus.Gauge
	SnapshotVectors      prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hybrid_searches_total",
				Help: "Total searches by outcome (ok, empty, degraded, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hybrid_search_latency_seconds",
				Help:    "End-to-end search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"cache_status"},
		),
		BranchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_branch_latency_seconds",
				Help:    "Per-branch search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"branch"},
		),
		BranchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_branch_results_count",
				Help:    "Number of partial results returned per branch.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"branch"},
		),
		BranchDegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_branch_degraded_total",
				Help: "Times a branch was skipped or failed and the request proceeded without it.",
			},
			[]string{"branch", "reason"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total result cache misses.",
			},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_evictions_total",
				Help: "Total result cache evictions (LRU or TTL).",
			},
		),
		EncoderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encoder_requests_total",
				Help: "Total encoder calls by status (success, error, cache_hit).",
			},
			[]string{"status"},
		),
		EncoderLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "encoder_latency_seconds",
				Help:    "Embedding encoder latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		PoolReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resource_pool_reloads_total",
				Help: "Total snapshot reloads by status (success, failure, stale_served).",
			},
			[]string{"status"},
		),
		SnapshotChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapshot_chunk_count",
				Help: "Number of chunks in the active lexical index snapshot.",
			},
		),
		SnapshotVectors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapshot_vector_count",
				Help: "Number of vectors in the active vector index snapshot.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchesTotal,
		m.SearchLatency,
		m.BranchLatency,
		m.BranchResultsCount,
		m.BranchDegradedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.EncoderRequestsTotal,
		m.EncoderLatency,
		m.PoolReloadsTotal,
		m.SnapshotChunks,
		m.SnapshotVectors,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package searchlog records completed searches off the request path.
// Events flow through Kafka so a slow or absent log store never adds
// latency to a search, and a Postgres store keeps the history that
// powers query suggestions and popularity rankings.
package searchlog

import "time"

// SearchEvent is the record emitted for every completed search.
type SearchEvent struct {
	Query       string            `json:"query"`
	ResultCount int               `json:"result_count"`
	LatencyMs   int64             `json:"latency_ms"`
	CacheHit    bool              `json:"cache_hit"`
	Degraded    bool              `json:"degraded"`
	Filters     map[string]string `json:"filters,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	RequestID   string            `json:"request_id"`
}

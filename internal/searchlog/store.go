package searchlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deepsearch-io/deepsearch/pkg/postgres"
)

// Store persists search history in PostgreSQL.
//
// It requires a `search_logs` table:
//
//	CREATE TABLE search_logs (
//	    id           BIGSERIAL PRIMARY KEY,
//	    query        TEXT NOT NULL,
//	    result_count INT NOT NULL,
//	    latency_ms   BIGINT NOT NULL,
//	    cache_hit    BOOLEAN NOT NULL,
//	    degraded     BOOLEAN NOT NULL,
//	    filters      JSONB,
//	    searched_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a search log store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "searchlog-store"),
	}
}

// QueryCount pairs a past query with how often it was issued.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Log appends one search event to the history.
func (s *Store) Log(ctx context.Context, event SearchEvent) error {
	var filters []byte
	if len(event.Filters) > 0 {
		data, err := json.Marshal(event.Filters)
		if err != nil {
			return fmt.Errorf("marshaling filters: %w", err)
		}
		filters = data
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO search_logs (query, result_count, latency_ms, cache_hit, degraded, filters, searched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Query, event.ResultCount, event.LatencyMs, event.CacheHit, event.Degraded, filters, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting search log: %w", err)
	}
	return nil
}

// Suggestions returns past queries starting with prefix, most frequent
// first.
func (s *Store) Suggestions(ctx context.Context, prefix string, limit int) ([]QueryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT query, COUNT(*) AS cnt
		 FROM search_logs
		 WHERE LOWER(query) LIKE LOWER($1) || '%'
		 GROUP BY query
		 ORDER BY cnt DESC, query ASC
		 LIMIT $2`,
		prefix, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions: %w", err)
	}
	defer rows.Close()
	return scanQueryCounts(rows)
}

// Popular returns the most frequent queries inside the given window.
func (s *Store) Popular(ctx context.Context, window time.Duration, limit int) ([]QueryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT query, COUNT(*) AS cnt
		 FROM search_logs
		 WHERE searched_at >= $1
		 GROUP BY query
		 ORDER BY cnt DESC, query ASC
		 LIMIT $2`,
		time.Now().UTC().Add(-window), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying popular searches: %w", err)
	}
	defer rows.Close()
	return scanQueryCounts(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanQueryCounts(rows rowScanner) ([]QueryCount, error) {
	var counts []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning query count: %w", err)
		}
		counts = append(counts, qc)
	}
	return counts, rows.Err()
}

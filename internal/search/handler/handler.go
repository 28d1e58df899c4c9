// Package handler exposes the search engine over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/cache"
	"github.com/deepsearch-io/deepsearch/internal/search/hybrid"
	"github.com/deepsearch-io/deepsearch/internal/search/monitor"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
	"github.com/deepsearch-io/deepsearch/internal/searchlog"
	apperrors "github.com/deepsearch-io/deepsearch/pkg/errors"
	"github.com/deepsearch-io/deepsearch/pkg/logger"
	"github.com/deepsearch-io/deepsearch/pkg/middleware"
)

// filterParamPrefix marks query parameters that become metadata
// filters: ?f.type=report&f.min:year=2023
const filterParamPrefix = "f."

// Handler serves the search API.
type Handler struct {
	engine    *hybrid.Engine
	pool      *pool.Pool
	cache     *cache.Memory
	monitor   *monitor.Monitor
	collector *searchlog.Collector
	store     *searchlog.Store
	logger    *slog.Logger
}

// Options bundles the handler dependencies. Collector and Store are
// optional.
type Options struct {
	Engine    *hybrid.Engine
	Pool      *pool.Pool
	Cache     *cache.Memory
	Monitor   *monitor.Monitor
	Collector *searchlog.Collector
	Store     *searchlog.Store
}

// New creates a Handler.
func New(opts Options) *Handler {
	return &Handler{
		engine:    opts.Engine,
		pool:      opts.Pool,
		cache:     opts.Cache,
		monitor:   opts.Monitor,
		collector: opts.Collector,
		store:     opts.Store,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

type searchResponse struct {
	Query   string                `json:"query"`
	Total   int                   `json:"total"`
	TookMs  int64                 `json:"took_ms"`
	Results []search.SearchResult `json:"results"`
}

// Search handles GET /api/v1/search?q=...&limit=...&f.<key>=<value>.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	filters := parseFilters(r.URL.Query())

	results, err := h.engine.Search(ctx, query, limit, filters)
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(searchlog.SearchEvent{
			Query:       query,
			ResultCount: len(results),
			LatencyMs:   latencyMs,
			Filters:     filters,
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(ctx),
		})
	}
	if results == nil {
		results = []search.SearchResult{}
	}
	h.writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Total:   len(results),
		TookMs:  latencyMs,
		Results: results,
	})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"search": h.monitor.Stats(),
	}
	if h.cache != nil {
		resp["cache"] = h.cache.Stats()
	}
	if snap := h.pool.Current(); snap != nil {
		vectors := 0
		if snap.Vector != nil {
			vectors = snap.Vector.Len()
		}
		resp["snapshot"] = map[string]any{
			"chunks":    snap.Lexical.Len(),
			"vectors":   vectors,
			"loaded_at": snap.LoadedAt,
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CacheInvalidate handles POST /api/v1/cache/invalidate. It clears the
// result cache and forces a snapshot reload on the next search.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.Clear(r.Context())
	}
	h.pool.Invalidate()
	h.logger.Info("cache invalidated via API")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Suggestions handles GET /api/v1/suggestions?prefix=...&limit=...
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "search history is disabled")
		return
	}
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'prefix' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	suggestions, err := h.store.Suggestions(r.Context(), prefix, limit)
	if err != nil {
		h.logger.Error("suggestions query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "suggestions unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// Popular handles GET /api/v1/popular?hours=...&limit=...
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "search history is disabled")
		return
	}
	hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))
	if hours <= 0 {
		hours = 24
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	popular, err := h.store.Popular(r.Context(), time.Duration(hours)*time.Hour, limit)
	if err != nil {
		h.logger.Error("popular query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "popular searches unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"popular": popular})
}

func parseFilters(params map[string][]string) map[string]string {
	var filters map[string]string
	for key, values := range params {
		if !strings.HasPrefix(key, filterParamPrefix) || len(values) == 0 {
			continue
		}
		if filters == nil {
			filters = make(map[string]string)
		}
		filters[key[len(filterParamPrefix):]] = values[0]
	}
	return filters
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

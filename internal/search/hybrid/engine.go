// Package hybrid fuses the lexical and vector retrieval branches into
// one ranked answer. Both branches run concurrently against the same
// immutable snapshot with independent deadlines; either branch may
// degrade without failing the request.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/cache"
	"github.com/deepsearch-io/deepsearch/internal/search/lexical"
	"github.com/deepsearch-io/deepsearch/internal/search/encoder"
	"github.com/deepsearch-io/deepsearch/internal/search/monitor"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
	"github.com/deepsearch-io/deepsearch/internal/search/tokenizer"
	"github.com/deepsearch-io/deepsearch/internal/search/vector"
	apperrors "github.com/deepsearch-io/deepsearch/pkg/errors"
	"github.com/deepsearch-io/deepsearch/pkg/logger"
	"github.com/deepsearch-io/deepsearch/pkg/resilience"
	"github.com/deepsearch-io/deepsearch/pkg/tracing"
)

// slowTraceThreshold is the uncached search duration above which the
// span tree for the request is logged.
const slowTraceThreshold = 250 * time.Millisecond

// Options tunes the fusion behaviour of an Engine.
type Options struct {
	BranchTimeout         time.Duration
	VectorScoreMultiplier float64
	MaxResultsPerBranch   int
	DefaultTopK           int
	MaxTopK               int
}

func (o *Options) fillDefaults() {
	if o.VectorScoreMultiplier <= 0 {
		o.VectorScoreMultiplier = 5.0
	}
	if o.MaxResultsPerBranch <= 0 {
		o.MaxResultsPerBranch = 50
	}
	if o.DefaultTopK <= 0 {
		o.DefaultTopK = 10
	}
	if o.MaxTopK <= 0 {
		o.MaxTopK = 100
	}
}

// Engine is the hybrid search orchestrator.
type Engine struct {
	pool    *pool.Pool
	encoder encoder.Encoder
	cache   cache.Cache
	monitor *monitor.Monitor
	opts    Options
	logger  *slog.Logger
}

// New creates an Engine. The encoder may be nil, in which case every
// request runs keyword-only.
func New(p *pool.Pool, enc encoder.Encoder, c cache.Cache, mon *monitor.Monitor, opts Options) *Engine {
	opts.fillDefaults()
	return &Engine{
		pool:    p,
		encoder: enc,
		cache:   c,
		monitor: mon,
		opts:    opts,
		logger:  slog.Default().With("component", "hybrid-engine"),
	}
}

type branchResult struct {
	results []search.SearchResult
	outcome monitor.BranchOutcome
}

// Search runs the query against both retrieval branches and returns
// the fused top-k results. A blank query returns no results and no
// error. ErrNoSearchBackend is returned only when neither branch could
// run.
func (e *Engine) Search(ctx context.Context, query string, topK int, filters map[string]string) ([]search.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = e.opts.DefaultTopK
	}
	if topK > e.opts.MaxTopK {
		topK = e.opts.MaxTopK
	}

	start := time.Now()
	log := logger.FromContext(ctx).With("component", "hybrid-engine", "query", query)

	var keyword, vec branchResult
	key := cache.Key(query, topK, filters)
	results, cached, err := e.cache.GetOrCompute(ctx, key, func() ([]search.SearchResult, error) {
		return e.search(ctx, log, query, topK, filters, &keyword, &vec)
	})

	rec := monitor.Record{
		Query:    query,
		Duration: time.Since(start),
		CacheHit: cached,
		Results:  len(results),
		Keyword:  keyword.outcome,
		Vector:   vec.outcome,
		Err:      err != nil,
	}
	if e.monitor != nil {
		e.monitor.Observe(rec)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("search completed",
		"results", len(results),
		"cache_hit", cached,
		"duration", rec.Duration,
	)
	return results, nil
}

func (e *Engine) search(ctx context.Context, log *slog.Logger, query string, topK int, filters map[string]string, keyword, vec *branchResult) ([]search.SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestIDFromContext(ctx))
	defer func() {
		span.End()
		if span.Duration > slowTraceThreshold {
			span.Log()
		}
	}()

	snap, release, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	terms := tokenizer.Tokenize(query)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		*keyword = e.keywordBranch(gctx, snap, query, terms)
		return nil
	})
	g.Go(func() error {
		*vec = e.vectorBranch(gctx, snap, query)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if keyword.outcome.Degraded && vec.outcome.Degraded {
		return nil, fmt.Errorf("%w: keyword: %s, vector: %s",
			apperrors.ErrNoSearchBackend, keyword.outcome.Reason, vec.outcome.Reason)
	}
	if keyword.outcome.Degraded {
		log.Warn("keyword branch degraded", "reason", keyword.outcome.Reason)
	}
	if vec.outcome.Degraded {
		log.Warn("vector branch degraded", "reason", vec.outcome.Reason)
	}

	merged := e.merge(keyword.results, vec.results, vec.outcome.Degraded)
	merged = applyFilters(merged, filters, snap)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	span.SetAttr("query", query)
	span.SetAttr("results", len(merged))
	return merged, nil
}

func (e *Engine) keywordBranch(ctx context.Context, snap *pool.Snapshot, query string, terms []string) branchResult {
	ctx, span := tracing.StartChildSpan(ctx, "keyword_branch")
	defer span.End()
	start := time.Now()
	var hits []lexical.Hit
	err := resilience.WithTimeout(ctx, e.opts.BranchTimeout, "keyword-branch", func(ctx context.Context) error {
		hits = snap.Lexical.Score(terms, e.opts.MaxResultsPerBranch)
		return ctx.Err()
	})
	out := branchResult{
		outcome: monitor.BranchOutcome{Ran: true, Latency: time.Since(start)},
	}
	if err != nil {
		out.outcome = monitor.BranchOutcome{
			Latency:  time.Since(start),
			Degraded: true,
			Reason:   "timeout",
		}
		return out
	}
	out.results = make([]search.SearchResult, 0, len(hits))
	for _, hit := range hits {
		out.results = append(out.results, search.SearchResult{
			ChunkID:          hit.Chunk.ID,
			DocumentPath:     hit.Chunk.DocumentPath,
			Snippet:          Snippet(hit.Chunk.Text, terms),
			Score:            hit.Score,
			RelevanceFactors: hit.Factors,
			SearchType:       search.SearchTypeKeyword,
		})
	}
	out.outcome.Results = len(out.results)
	return out
}

func (e *Engine) vectorBranch(ctx context.Context, snap *pool.Snapshot, query string) branchResult {
	ctx, span := tracing.StartChildSpan(ctx, "vector_branch")
	defer span.End()
	start := time.Now()
	degrade := func(reason string) branchResult {
		return branchResult{outcome: monitor.BranchOutcome{
			Latency:  time.Since(start),
			Degraded: true,
			Reason:   reason,
		}}
	}
	if e.encoder == nil {
		return degrade("encoder_unavailable")
	}
	if snap.Vector == nil || snap.Vector.Len() == 0 {
		return degrade("vector_index_unavailable")
	}

	var neighbors []vector.Neighbor
	err := resilience.WithTimeout(ctx, e.opts.BranchTimeout, "vector-branch", func(ctx context.Context) error {
		embedding, err := e.encoder.Encode(ctx, query)
		if err != nil {
			return err
		}
		neighbors, err = snap.Vector.Search(ctx, embedding, e.opts.MaxResultsPerBranch)
		return err
	})
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, apperrors.ErrEncoding):
			reason = "encoding_failed"
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		}
		return degrade(reason)
	}

	terms := tokenizer.Tokenize(query)
	out := branchResult{
		outcome: monitor.BranchOutcome{Ran: true, Latency: time.Since(start)},
	}
	out.results = make([]search.SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		chunk, ok := snap.ChunkByID(n.ID)
		if !ok {
			continue
		}
		out.results = append(out.results, search.SearchResult{
			ChunkID:      chunk.ID,
			DocumentPath: chunk.DocumentPath,
			Snippet:      Snippet(chunk.Text, terms),
			Score:        n.Score,
			RelevanceFactors: map[string]float64{
				search.FactorEmbeddingSimilarity: n.Score,
			},
			SearchType: search.SearchTypeVector,
		})
	}
	out.outcome.Results = len(out.results)
	return out
}

// merge fuses the branch results keyword-first: on a document path
// collision the keyword hit wins and absorbs the vector similarity as
// an extra relevance factor. Surviving vector hits have their score
// scaled up to be comparable with keyword scores.
func (e *Engine) merge(keyword, vec []search.SearchResult, vectorDegraded bool) []search.SearchResult {
	merged := make([]search.SearchResult, 0, len(keyword)+len(vec))
	byPath := make(map[string]int, len(keyword))
	for _, r := range keyword {
		if _, seen := byPath[r.DocumentPath]; seen {
			continue
		}
		if vectorDegraded {
			if r.RelevanceFactors == nil {
				r.RelevanceFactors = map[string]float64{}
			}
			r.RelevanceFactors["vector_degraded"] = 1
		}
		byPath[r.DocumentPath] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range vec {
		if i, seen := byPath[r.DocumentPath]; seen {
			existing := &merged[i]
			if existing.RelevanceFactors == nil {
				existing.RelevanceFactors = map[string]float64{}
			}
			existing.RelevanceFactors[search.FactorEmbeddingSimilarity] = r.Score
			existing.SearchType = search.SearchTypeHybrid
			continue
		}
		r.Score *= e.opts.VectorScoreMultiplier
		byPath[r.DocumentPath] = len(merged)
		merged = append(merged, r)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ChunkID < merged[j].ChunkID
	})
	return merged
}

// Package pool owns the lifecycle of search snapshots. A snapshot
// bundles the lexical and vector indexes built from one corpus
// version. Readers acquire refcounted handles, so a reload never
// disturbs searches in flight: the new snapshot is built off to the
// side and swapped in atomically while old handles drain.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/lexical"
	"github.com/deepsearch-io/deepsearch/internal/search/vector"
	apperrors "github.com/deepsearch-io/deepsearch/pkg/errors"
	"github.com/deepsearch-io/deepsearch/pkg/metrics"
)

// Snapshot is an immutable view of the indexed corpus. Vector may be
// nil when no embeddings are available; the engine then degrades to
// keyword-only retrieval.
type Snapshot struct {
	Lexical  *lexical.Index
	Vector   vector.Index
	Chunks   map[string]*search.Chunk
	LoadedAt time.Time
}

// ChunkByID resolves a chunk id from the vector branch back to its
// chunk.
func (s *Snapshot) ChunkByID(id string) (*search.Chunk, bool) {
	c, ok := s.Chunks[id]
	return c, ok
}

// Loader builds a fresh Snapshot. Implementations are free to take
// their time; the pool keeps serving the previous snapshot meanwhile.
type Loader func(ctx context.Context) (*Snapshot, error)

type handle struct {
	snap *Snapshot
	refs int
}

// Pool hands out refcounted snapshot handles and refreshes the
// snapshot when it grows older than the reload interval.
type Pool struct {
	mu          sync.Mutex
	loader      Loader
	interval    time.Duration
	current     *handle
	loadedAt    time.Time
	invalidated bool

	reloads singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// New creates a Pool. The first Acquire triggers the initial load.
func New(loader Loader, interval time.Duration, m *metrics.Metrics) *Pool {
	return &Pool{
		loader:      loader,
		interval:    interval,
		invalidated: true,
		metrics:     m,
		logger:      slog.Default().With("component", "snapshot-pool"),
		clock:       time.Now,
	}
}

// Acquire returns the current snapshot and a release function. The
// release function must be called, typically deferred, when the caller
// is done with the snapshot; it is safe to call more than once.
//
// A stale snapshot is handed out immediately while the reload runs in
// the background. Only the very first load blocks; if it fails,
// ErrIndexUnavailable is returned.
func (p *Pool) Acquire(ctx context.Context) (*Snapshot, func(), error) {
	p.mu.Lock()
	if !p.staleLocked() {
		snap, release := p.refLocked()
		p.mu.Unlock()
		return snap, release, nil
	}
	hasCurrent := p.current != nil
	p.mu.Unlock()

	ch := p.reloads.DoChan("reload", func() (interface{}, error) {
		return nil, p.reload(context.WithoutCancel(ctx))
	})
	if !hasCurrent {
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, res.Err)
			}
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil, fmt.Errorf("%w: no snapshot loaded", apperrors.ErrIndexUnavailable)
	}
	snap, release := p.refLocked()
	return snap, release, nil
}

// Invalidate forces a reload on the next Acquire.
func (p *Pool) Invalidate() {
	p.mu.Lock()
	p.invalidated = true
	p.mu.Unlock()
	p.logger.Info("snapshot invalidated")
}

// Current returns the active snapshot without taking a reference, or
// nil before the first successful load. Intended for stats endpoints.
func (p *Pool) Current() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.snap
}

func (p *Pool) staleLocked() bool {
	if p.invalidated || p.current == nil {
		return true
	}
	return p.interval > 0 && p.clock().Sub(p.loadedAt) >= p.interval
}

func (p *Pool) refLocked() (*Snapshot, func()) {
	h := p.current
	h.refs++
	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			h.refs--
			drained := h.refs == 0 && h != p.current
			p.mu.Unlock()
			if drained {
				p.logger.Debug("retired snapshot drained", "loaded_at", h.snap.LoadedAt)
			}
		})
	}
	return h.snap, release
}

func (p *Pool) reload(ctx context.Context) error {
	start := p.clock()
	snap, err := p.loader(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	// A failed attempt still resets the timer so a broken loader is
	// retried once per interval instead of on every request.
	p.loadedAt = p.clock()
	p.invalidated = false
	if err != nil {
		if p.current != nil {
			p.logger.Warn("reload failed, serving stale snapshot",
				"loaded_at", p.current.snap.LoadedAt,
				"error", err,
			)
			if p.metrics != nil {
				p.metrics.PoolReloadsTotal.WithLabelValues("stale_served").Inc()
			}
		}
		if p.metrics != nil {
			p.metrics.PoolReloadsTotal.WithLabelValues("failure").Inc()
		}
		return err
	}
	if snap.LoadedAt.IsZero() {
		snap.LoadedAt = p.clock()
	}
	p.current = &handle{snap: snap}
	if p.metrics != nil {
		p.metrics.PoolReloadsTotal.WithLabelValues("success").Inc()
		p.metrics.SnapshotChunks.Set(float64(snap.Lexical.Len()))
		if snap.Vector != nil {
			p.metrics.SnapshotVectors.Set(float64(snap.Vector.Len()))
		} else {
			p.metrics.SnapshotVectors.Set(0)
		}
	}
	p.logger.Info("snapshot loaded",
		"chunks", snap.Lexical.Len(),
		"duration", p.clock().Sub(start),
	)
	return nil
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/encoder"
	"github.com/deepsearch-io/deepsearch/internal/search/lexical"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
	"github.com/deepsearch-io/deepsearch/internal/search/vector"
)

// Pipeline turns a chunk Source into a search snapshot. Chunks missing
// an embedding are embedded through the encoder on a bounded worker
// pool; embedding failures leave the chunk keyword-only rather than
// failing the build.
type Pipeline struct {
	source  Source
	encoder encoder.Encoder
	workers int
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline. The encoder may be nil for a
// keyword-only build.
func NewPipeline(source Source, enc encoder.Encoder, workers int) *Pipeline {
	if workers <= 0 {
		workers = 8
	}
	return &Pipeline{
		source:  source,
		encoder: enc,
		workers: workers,
		logger:  slog.Default().With("component", "ingest-pipeline"),
	}
}

// Build reads every chunk, embeds where needed, and assembles an
// in-memory snapshot.
func (p *Pipeline) Build(ctx context.Context) (*pool.Snapshot, error) {
	var chunks []search.Chunk
	err := p.source.Each(ctx, func(chunk search.Chunk) error {
		if chunk.ID == "" {
			return fmt.Errorf("chunk with empty id (path %s)", chunk.DocumentPath)
		}
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("source yielded no chunks")
	}

	if p.encoder != nil {
		if err := p.embedMissing(ctx, chunks); err != nil {
			return nil, err
		}
	}

	ix := lexical.New()
	byID := make(map[string]*search.Chunk, len(chunks))
	var flat *vector.Flat
	for _, chunk := range chunks {
		if len(chunk.Embedding) > 0 {
			vector.Normalize(chunk.Embedding)
		}
		ix.AddChunk(chunk)
	}
	for i := 0; i < ix.Len(); i++ {
		chunk := ix.Chunk(i)
		byID[chunk.ID] = chunk
		if len(chunk.Embedding) == 0 {
			continue
		}
		if flat == nil {
			flat = vector.NewFlat(len(chunk.Embedding))
		}
		if err := flat.Add([]string{chunk.ID}, [][]float32{chunk.Embedding}); err != nil {
			p.logger.Warn("skipping vector for chunk", "chunk", chunk.ID, "error", err)
		}
	}

	snap := &pool.Snapshot{Lexical: ix, Chunks: byID}
	if flat != nil {
		snap.Vector = flat
	}
	vectors := 0
	if flat != nil {
		vectors = flat.Len()
	}
	p.logger.Info("snapshot built", "chunks", ix.Len(), "vectors", vectors)
	return snap, nil
}

func (p *Pipeline) embedMissing(ctx context.Context, chunks []search.Chunk) error {
	workerPool, err := ants.NewPool(p.workers)
	if err != nil {
		return fmt.Errorf("creating embed worker pool: %w", err)
	}
	defer workerPool.Release()

	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := range chunks {
		if len(chunks[i].Embedding) > 0 {
			continue
		}
		i := i
		wg.Add(1)
		if err := workerPool.Submit(func() {
			defer wg.Done()
			embedding, err := p.encoder.Encode(ctx, chunks[i].Text)
			if err != nil {
				failures.Add(1)
				p.logger.Warn("embedding failed, chunk stays keyword-only",
					"chunk", chunks[i].ID,
					"error", err,
				)
				return
			}
			chunks[i].Embedding = embedding
		}); err != nil {
			wg.Done()
			return fmt.Errorf("submitting embed task: %w", err)
		}
	}
	wg.Wait()
	if n := failures.Load(); n > 0 {
		p.logger.Warn("some chunks could not be embedded", "failed", n, "total", len(chunks))
	}
	return ctx.Err()
}

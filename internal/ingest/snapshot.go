package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/lexical"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
	"github.com/deepsearch-io/deepsearch/internal/search/vector"
)

// Snapshot file names inside the data directory.
const (
	VectorsFile = "vectors.dsvx"
	ChunksFile  = "chunks.meta.jsonl"
)

// InvalidateEvent is published to Kafka after a successful snapshot
// write so running search services drop their caches and reload.
type InvalidateEvent struct {
	Reason    string    `json:"reason"`
	Chunks    int       `json:"chunks"`
	Vectors   int       `json:"vectors"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteSnapshot persists a built snapshot into dir: the vector blob
// plus one JSON line per chunk (embeddings live in the blob, not the
// metadata file). The metadata file is written to a tmp file and
// renamed.
func WriteSnapshot(dir string, snap *pool.Snapshot) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	metaPath := filepath.Join(dir, ChunksFile)
	tmpPath := metaPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp metadata file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < snap.Lexical.Len(); i++ {
		chunk := *snap.Lexical.Chunk(i)
		chunk.Embedding = nil
		if err := enc.Encode(chunk); err != nil {
			return fmt.Errorf("writing chunk %s: %w", chunk.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing metadata file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing metadata file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, metaPath); err != nil {
		return fmt.Errorf("renaming metadata file: %w", err)
	}

	if flat, ok := snap.Vector.(*vector.Flat); ok && flat.Len() > 0 {
		if err := vector.WriteSnapshot(filepath.Join(dir, VectorsFile), flat); err != nil {
			return err
		}
	}
	return nil
}

// Loader returns a pool.Loader that reads the snapshot files from dir.
// A missing vectors file leaves the snapshot keyword-only.
func Loader(dir string) pool.Loader {
	return func(ctx context.Context) (*pool.Snapshot, error) {
		ix := lexical.New()
		err := JSONLSource{Path: filepath.Join(dir, ChunksFile)}.Each(ctx, func(chunk search.Chunk) error {
			ix.AddChunk(chunk)
			return nil
		})
		if err != nil {
			return nil, err
		}

		byID := make(map[string]*search.Chunk, ix.Len())
		for i := 0; i < ix.Len(); i++ {
			chunk := ix.Chunk(i)
			byID[chunk.ID] = chunk
		}
		snap := &pool.Snapshot{Lexical: ix, Chunks: byID, LoadedAt: time.Now()}

		vectorsPath := filepath.Join(dir, VectorsFile)
		if _, err := os.Stat(vectorsPath); err == nil {
			flat, err := vector.OpenSnapshot(vectorsPath)
			if err != nil {
				return nil, err
			}
			snap.Vector = flat
		}
		return snap, nil
	}
}

// Package ingest builds search snapshots from chunk corpora: it
// tokenises chunks, embeds them through the encoder on a worker pool,
// and writes the snapshot files the search service loads.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/pkg/postgres"
)

// Source yields the chunks of one corpus version.
type Source interface {
	Each(ctx context.Context, fn func(search.Chunk) error) error
}

// JSONLSource reads chunks from a JSON-lines file, one chunk object
// per line.
type JSONLSource struct {
	Path string
}

// Each streams the chunks in file order.
func (s JSONLSource) Each(ctx context.Context, fn func(search.Chunk) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("opening chunks file %s: %w", s.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var chunk search.Chunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("parsing chunk at line %d: %w", line, err)
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading chunks file %s: %w", s.Path, err)
	}
	return nil
}

// PostgresSource reads chunks from a `chunks` table.
type PostgresSource struct {
	DB *postgres.Client
}

// Each streams every chunk row.
func (s PostgresSource) Each(ctx context.Context, fn func(search.Chunk) error) error {
	rows, err := s.DB.DB.QueryContext(ctx,
		`SELECT id, document_path, text, start_offset, end_offset, COALESCE(metadata, '{}'::jsonb)
		 FROM chunks ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk search.Chunk
		var metadata []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentPath, &chunk.Text,
			&chunk.StartOffset, &chunk.EndOffset, &metadata); err != nil {
			return fmt.Errorf("scanning chunk row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
				return fmt.Errorf("parsing metadata for chunk %s: %w", chunk.ID, err)
			}
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return rows.Err()
}

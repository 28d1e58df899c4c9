package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/encoder"
)

func writeChunksFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestJSONLSource(t *testing.T) {
	path := writeChunksFile(t,
		`{"id":"c1","document_path":"a.pdf","text":"füze güvenlik testi"}`,
		``,
		`{"id":"c2","document_path":"b.pdf","text":"radar sistem analizi","metadata":{"type":"report"}}`,
	)
	var got []search.Chunk
	err := JSONLSource{Path: path}.Each(context.Background(), func(c search.Chunk) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "report", got[1].Metadata["type"])
}

func TestJSONLSourceBadLine(t *testing.T) {
	path := writeChunksFile(t, `{"id":"c1"`, `{"id":"c2"}`)
	err := JSONLSource{Path: path}.Each(context.Background(), func(search.Chunk) error {
		return nil
	})
	assert.Error(t, err)
}

func TestPipelineBuildEmbedsChunks(t *testing.T) {
	path := writeChunksFile(t,
		`{"id":"c1","document_path":"a.pdf","text":"füze güvenlik testi raporu"}`,
		`{"id":"c2","document_path":"b.pdf","text":"radar sistem analizi raporu"}`,
	)
	p := NewPipeline(JSONLSource{Path: path}, encoder.NewStatic(8, nil), 2)
	snap, err := p.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Lexical.Len())
	require.NotNil(t, snap.Vector)
	assert.Equal(t, 2, snap.Vector.Len())
	assert.Equal(t, 8, snap.Vector.Dim())
	assert.Contains(t, snap.Chunks, "c1")
	assert.Contains(t, snap.Chunks, "c2")
}

func TestPipelineBuildKeywordOnly(t *testing.T) {
	path := writeChunksFile(t,
		`{"id":"c1","document_path":"a.pdf","text":"füze güvenlik testi raporu"}`,
	)
	p := NewPipeline(JSONLSource{Path: path}, nil, 2)
	snap, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Vector)
	assert.Equal(t, 1, snap.Lexical.Len())
}

func TestPipelineBuildEmptySource(t *testing.T) {
	path := writeChunksFile(t)
	p := NewPipeline(JSONLSource{Path: path}, nil, 2)
	_, err := p.Build(context.Background())
	assert.Error(t, err)
}

func TestSnapshotWriteAndLoad(t *testing.T) {
	path := writeChunksFile(t,
		`{"id":"c1","document_path":"a.pdf","text":"füze güvenlik testi raporu"}`,
		`{"id":"c2","document_path":"b.pdf","text":"radar sistem analizi raporu"}`,
	)
	p := NewPipeline(JSONLSource{Path: path}, encoder.NewStatic(8, nil), 2)
	snap, err := p.Build(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteSnapshot(dir, snap))
	assert.FileExists(t, filepath.Join(dir, ChunksFile))
	assert.FileExists(t, filepath.Join(dir, VectorsFile))

	loaded, err := Loader(dir)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Lexical.Len())
	require.NotNil(t, loaded.Vector)
	assert.Equal(t, 2, loaded.Vector.Len())
	assert.WithinDuration(t, time.Now(), loaded.LoadedAt, time.Minute)

	// Term stats survive the round trip, so keyword scoring agrees.
	hits := loaded.Lexical.Score([]string{"radar"}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].Chunk.ID)
}

func TestLoaderMissingVectorsIsKeywordOnly(t *testing.T) {
	path := writeChunksFile(t,
		`{"id":"c1","document_path":"a.pdf","text":"füze güvenlik testi raporu"}`,
	)
	p := NewPipeline(JSONLSource{Path: path}, nil, 2)
	snap, err := p.Build(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteSnapshot(dir, snap))
	loaded, err := Loader(dir)(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded.Vector)
}

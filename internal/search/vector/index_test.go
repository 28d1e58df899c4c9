package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatAddDimensionMismatch(t *testing.T) {
	ix := NewFlat(3)
	err := ix.Add([]string{"c1"}, [][]float32{{1, 0}})
	assert.Error(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestFlatAddLengthMismatch(t *testing.T) {
	ix := NewFlat(2)
	err := ix.Add([]string{"c1", "c2"}, [][]float32{{1, 0}})
	assert.Error(t, err)
}

func TestFlatSearchOrdersBySimilarity(t *testing.T) {
	ix := NewFlat(2)
	require.NoError(t, ix.Add(
		[]string{"east", "north", "diag"},
		[][]float32{{1, 0}, {0, 1}, {0.7071, 0.7071}},
	))
	got, err := ix.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "east", got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, "diag", got[1].ID)
	assert.Equal(t, "north", got[2].ID)
}

func TestFlatSearchTopK(t *testing.T) {
	ix := NewFlat(2)
	require.NoError(t, ix.Add(
		[]string{"a", "b", "c"},
		[][]float32{{1, 0}, {0.9, 0.1}, {0, 1}},
	))
	got, err := ix.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFlatSearchQueryDimensionMismatch(t *testing.T) {
	ix := NewFlat(3)
	_, err := ix.Search(context.Background(), []float32{1, 0}, 5)
	assert.Error(t, err)
}

func TestFlatSearchDeterministicTieBreak(t *testing.T) {
	ix := NewFlat(2)
	require.NoError(t, ix.Add(
		[]string{"b", "a"},
		[][]float32{{1, 0}, {1, 0}},
	))
	got, err := ix.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestFlatSearchEmptyIndex(t *testing.T) {
	ix := NewFlat(2)
	got, err := ix.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNormalize(t *testing.T) {
	vec := []float32{3, 4}
	Normalize(vec)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := NewFlat(3)
	require.NoError(t, ix.Add(
		[]string{"c1", "c2"},
		[][]float32{{1, 0, 0}, {0, 1, 0}},
	))
	path := filepath.Join(t.TempDir(), "vectors.dsvx")
	require.NoError(t, WriteSnapshot(path, ix))

	loaded, err := OpenSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, 3, loaded.Dim())

	got, err := loaded.Search(context.Background(), []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)
}

func TestOpenSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dsvx")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))
	_, err := OpenSnapshot(path)
	assert.Error(t, err)
}

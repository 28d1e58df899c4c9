// Package vector provides the approximate-neighbour retrieval side of
// the engine: a brute-force inner-product index over unit-normalised
// embeddings and binary snapshot persistence for it.
package vector

import (
	"context"
	"fmt"
	"sort"
)

// Neighbor is a single nearest-neighbour hit.
type Neighbor struct {
	ID    string
	Score float64
}

// Index is the retrieval contract the orchestrator depends on.
type Index interface {
	Add(ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Dim() int
	Len() int
}

// Flat is an exact inner-product index. Vectors are expected to be
// unit-normalised so inner product equals cosine similarity. A Flat is
// built by a single writer and read-only afterwards.
type Flat struct {
	dim     int
	ids     []string
	vectors [][]float32
}

// NewFlat creates an empty Flat index for vectors of the given
// dimensionality.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Add appends vectors with their chunk ids. Lengths must match and
// every vector must have the index dimensionality.
func (f *Flat) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != f.dim {
			return fmt.Errorf("vector %q has dimension %d, index expects %d", ids[i], len(vec), f.dim)
		}
	}
	f.ids = append(f.ids, ids...)
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Search returns the k most similar vectors by inner product, ordered
// by descending similarity with ascending id as tie-break.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}

	neighbors := make([]Neighbor, 0, len(f.vectors))
	for i, vec := range f.vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		neighbors = append(neighbors, Neighbor{
			ID:    f.ids[i],
			Score: dot(query, vec),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].ID < neighbors[j].ID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Dim returns the vector dimensionality.
func (f *Flat) Dim() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.ids)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

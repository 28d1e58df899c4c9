package encoder

import (
	"context"

	"github.com/deepsearch-io/deepsearch/internal/search/vector"
)

// Static is a deterministic encoder for tests and offline development.
// Known texts map to fixed vectors; unknown texts get a pseudo-random
// unit vector seeded by the text so repeated calls agree.
type Static struct {
	dim   int
	fixed map[string][]float32
}

// NewStatic creates a Static encoder. The fixed table may be nil.
func NewStatic(dim int, fixed map[string][]float32) *Static {
	return &Static{dim: dim, fixed: fixed}
}

// Dim returns the configured dimensionality.
func (s *Static) Dim() int {
	return s.dim
}

// Encode returns the fixed vector for text if registered, otherwise a
// deterministic pseudo-random unit vector.
func (s *Static) Encode(_ context.Context, text string) ([]float32, error) {
	if vec, ok := s.fixed[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	seed := uint64(14695981039346656037)
	for _, b := range []byte(text) {
		seed ^= uint64(b)
		seed *= 1099511628211
	}
	vec := make([]float32, s.dim)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33))/float32(1<<30) - 1
	}
	vector.Normalize(vec)
	return vec, nil
}

package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/deepsearch-io/deepsearch/pkg/errors"
)

type countingEncoder struct {
	dim   int
	calls int
}

func (c *countingEncoder) Dim() int { return c.dim }

func (c *countingEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return make([]float32, c.dim), nil
}

func TestStaticDeterministic(t *testing.T) {
	enc := NewStatic(8, nil)
	a, err := enc.Encode(context.Background(), "füze güvenlik testi")
	require.NoError(t, err)
	b, err := enc.Encode(context.Background(), "füze güvenlik testi")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)

	other, err := enc.Encode(context.Background(), "radar sistem analizi")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestStaticFixedTable(t *testing.T) {
	enc := NewStatic(2, map[string][]float32{"radar": {1, 0}})
	vec, err := enc.Encode(context.Background(), "radar")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestCachedHitsSkipInner(t *testing.T) {
	inner := &countingEncoder{dim: 4}
	cached, err := NewCached(inner, 16, nil)
	require.NoError(t, err)

	_, err = cached.Encode(context.Background(), "radar")
	require.NoError(t, err)
	_, err = cached.Encode(context.Background(), "radar")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	_, err = cached.Encode(context.Background(), "füze")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestOpenAIEncode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.6, 0.8}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	enc := NewOpenAI(OpenAIOptions{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "test",
		Model:      "test-model",
		Dimensions: 2,
	})
	vec, err := enc.Encode(context.Background(), "radar")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
}

func TestOpenAIEncodeDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	enc := NewOpenAI(OpenAIOptions{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "test",
		Model:      "test-model",
		Dimensions: 2,
	})
	_, err := enc.Encode(context.Background(), "radar")
	assert.True(t, errors.Is(err, apperrors.ErrEncoding))
}

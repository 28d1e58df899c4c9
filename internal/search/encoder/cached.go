package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deepsearch-io/deepsearch/pkg/metrics"
)

// Cached wraps an Encoder with a content-hash LRU so repeated queries
// and re-embedded chunks skip the backend.
type Cached struct {
	inner   Encoder
	cache   *lru.Cache[string, []float32]
	metrics *metrics.Metrics
}

// NewCached creates a caching wrapper with the given capacity.
func NewCached(inner Encoder, size int, m *metrics.Metrics) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache, metrics: m}, nil
}

// Dim returns the inner encoder's dimensionality.
func (c *Cached) Dim() int {
	return c.inner.Dim()
}

// Encode returns a cached embedding when available, otherwise delegates
// to the inner encoder and caches the result.
func (c *Cached) Encode(ctx context.Context, text string) ([]float32, error) {
	key := hashText(text)
	if vec, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.EncoderRequestsTotal.WithLabelValues("cache_hit").Inc()
		}
		return vec, nil
	}
	vec, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

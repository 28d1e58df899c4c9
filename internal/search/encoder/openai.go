package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/deepsearch-io/deepsearch/pkg/errors"
	"github.com/deepsearch-io/deepsearch/pkg/metrics"
	"github.com/deepsearch-io/deepsearch/pkg/resilience"
)

// OpenAI encodes text through an OpenAI-compatible embeddings API.
// Calls are retried with backoff and guarded by a circuit breaker so a
// dead encoder backend degrades the vector branch instead of stalling
// every request.
type OpenAI struct {
	client  *openai.Client
	model   string
	dim     int
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// OpenAIOptions configures an OpenAI encoder.
type OpenAIOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Metrics    *metrics.Metrics
}

// NewOpenAI creates an encoder backed by the given endpoint.
func NewOpenAI(opts OpenAIOptions) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		dim:     opts.Dimensions,
		timeout: opts.Timeout,
		breaker: resilience.NewCircuitBreaker("encoder", resilience.CircuitBreakerConfig{}),
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "encoder"),
	}
}

// Dim returns the embedding dimensionality the encoder is configured
// for.
func (e *OpenAI) Dim() int {
	return e.dim
}

// Encode requests an embedding for text. The response vector must be
// non-empty and match the configured dimensionality, otherwise
// ErrEncoding is returned.
func (e *OpenAI) Encode(ctx context.Context, text string) ([]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	var embedding []float32
	err := e.breaker.Execute(func() error {
		return resilience.Retry(ctx, "encode", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
				Input: []string{text},
				Model: openai.EmbeddingModel(e.model),
			})
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
				return fmt.Errorf("%w: empty embedding response", apperrors.ErrEncoding)
			}
			embedding = resp.Data[0].Embedding
			return nil
		})
	})
	if e.metrics != nil {
		e.metrics.EncoderLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if e.metrics != nil {
			e.metrics.EncoderRequestsTotal.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEncoding, err)
	}
	if len(embedding) != e.dim {
		if e.metrics != nil {
			e.metrics.EncoderRequestsTotal.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("%w: got dimension %d, expected %d", apperrors.ErrEncoding, len(embedding), e.dim)
	}
	if e.metrics != nil {
		e.metrics.EncoderRequestsTotal.WithLabelValues("success").Inc()
	}
	return embedding, nil
}

// Package encoder turns query and chunk text into embedding vectors.
// The OpenAI provider talks to any OpenAI-compatible embeddings
// endpoint; Cached adds a content-hash LRU in front of a provider;
// Static is a deterministic in-process encoder for tests and local
// development.
package encoder

import "context"

// Encoder produces an embedding vector for a piece of text.
// Implementations must be safe for concurrent use.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

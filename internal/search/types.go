// Package search defines the data model shared by the search engine
// components: chunks, search results, and relevance factors.
package search

// SearchType identifies which retrieval branch produced a result.
const (
	SearchTypeKeyword = "keyword"
	SearchTypeVector  = "vector"
	SearchTypeHybrid  = "hybrid"
)

// Relevance factor keys reported on each result.
const (
	FactorKeywordMatch        = "keyword_match"
	FactorEmbeddingSimilarity = "embedding_similarity"
	FactorProximity           = "proximity"
	FactorFilenameMatch       = "filename_match"
)

// Chunk is an indexed fragment of a source document.
type Chunk struct {
	ID           string            `json:"id"`
	DocumentPath string            `json:"document_path"`
	Text         string            `json:"text"`
	TermFreqs    map[string]int    `json:"term_freqs,omitempty"`
	TokenCount   int               `json:"token_count"`
	Embedding    []float32         `json:"embedding,omitempty"`
	StartOffset  int               `json:"start_offset"`
	EndOffset    int               `json:"end_offset"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a single ranked hit returned to callers.
type SearchResult struct {
	ChunkID          string             `json:"chunk_id"`
	DocumentPath     string             `json:"document_path"`
	Snippet          string             `json:"snippet"`
	Score            float64            `json:"score"`
	RelevanceFactors map[string]float64 `json:"relevance_factors,omitempty"`
	SearchType       string             `json:"search_type"`
}

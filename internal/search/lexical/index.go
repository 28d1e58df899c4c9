// Package lexical implements the in-memory inverted index and the
// keyword relevance scorer. An Index is built once by a single writer
// and treated as read-only afterwards; rebuilds produce a fresh Index
// that is swapped in whole.
package lexical

import (
	"math"
	"sort"
	"strings"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/tokenizer"
)

const (
	phraseBonus     = 10.0
	tfIdfWeight     = 2.0
	proximityWindow = 5
	filenameWeight  = 0.5
	coverageWeight  = 1.5
	exactPathScore  = 2.0
)

type posting struct {
	chunk     int
	count     int
	positions []int
}

// Index is an inverted index over chunks.
type Index struct {
	chunks  []search.Chunk
	byTerm  map[string][]posting
	docFreq map[string]int
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byTerm:  make(map[string][]posting),
		docFreq: make(map[string]int),
	}
}

// AddChunk tokenises the chunk text and adds it to the index. If the
// chunk carries no precomputed term frequencies they are derived here.
func (ix *Index) AddChunk(chunk search.Chunk) {
	tokens := tokenizer.TokenizePositions(chunk.Text)
	if chunk.TermFreqs == nil {
		chunk.TermFreqs = make(map[string]int, len(tokens))
		for _, tok := range tokens {
			chunk.TermFreqs[tok.Term]++
		}
	}
	if chunk.TokenCount == 0 {
		chunk.TokenCount = len(tokens)
	}

	idx := len(ix.chunks)
	ix.chunks = append(ix.chunks, chunk)

	perTerm := make(map[string][]int)
	for _, tok := range tokens {
		perTerm[tok.Term] = append(perTerm[tok.Term], tok.Position)
	}
	for term, positions := range perTerm {
		ix.byTerm[term] = append(ix.byTerm[term], posting{
			chunk:     idx,
			count:     chunk.TermFreqs[term],
			positions: positions,
		})
		ix.docFreq[term]++
	}
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Chunk returns the chunk at the given ordinal.
func (ix *Index) Chunk(i int) *search.Chunk {
	return &ix.chunks[i]
}

// Hit is a scored chunk from the keyword branch.
type Hit struct {
	Chunk   *search.Chunk
	Score   float64
	Factors map[string]float64
}

// Score ranks chunks against the query terms. It combines an exact
// phrase bonus, TF-IDF per term, term proximity within a window,
// document path matches, and a coverage bonus for multi-term queries.
// An empty query yields no hits.
func (ix *Index) Score(queryTerms []string, maxResults int) []Hit {
	if len(queryTerms) == 0 || len(ix.chunks) == 0 {
		return nil
	}

	type candidate struct {
		found     map[string]struct{}
		tfidf     float64
		positions map[string][]int
	}
	candidates := make(map[int]*candidate)
	totalChunks := float64(len(ix.chunks))

	for _, term := range queryTerms {
		postings, ok := ix.byTerm[term]
		if !ok {
			continue
		}
		idf := math.Log(totalChunks / float64(ix.docFreq[term]))
		for _, p := range postings {
			c := candidates[p.chunk]
			if c == nil {
				c = &candidate{
					found:     make(map[string]struct{}),
					positions: make(map[string][]int),
				}
				candidates[p.chunk] = c
			}
			if _, seen := c.found[term]; seen {
				continue
			}
			c.found[term] = struct{}{}
			c.positions[term] = p.positions
			chunk := &ix.chunks[p.chunk]
			if chunk.TokenCount > 0 {
				tf := float64(p.count) / float64(chunk.TokenCount)
				c.tfidf += tf * idf * tfIdfWeight
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	phrase := strings.Join(queryTerms, " ")
	hits := make([]Hit, 0, len(candidates))
	for idx, c := range candidates {
		chunk := &ix.chunks[idx]
		factors := map[string]float64{
			search.FactorKeywordMatch: c.tfidf,
		}
		score := c.tfidf

		if strings.Contains(strings.ToLower(chunk.Text), phrase) {
			score += phraseBonus
		}

		prox := proximityScore(queryTerms, c.positions)
		if prox > 0 {
			score += prox
			factors[search.FactorProximity] = prox
		}

		if fn := pathScore(queryTerms, phrase, chunk.DocumentPath); fn > 0 {
			score += fn * filenameWeight
			factors[search.FactorFilenameMatch] = fn
		}

		if len(queryTerms) >= 2 {
			score += float64(len(c.found)) / float64(len(queryTerms)) * coverageWeight
		}

		hits = append(hits, Hit{Chunk: chunk, Score: score, Factors: factors})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits
}

// proximityScore rewards query term pairs that occur near each other.
// Each pair within the window contributes 1/(minDistance+1).
func proximityScore(terms []string, positions map[string][]int) float64 {
	var score float64
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			a, okA := positions[terms[i]]
			b, okB := positions[terms[j]]
			if !okA || !okB {
				continue
			}
			min := minDistance(a, b)
			if min >= 0 && min <= proximityWindow {
				score += 1.0 / float64(min+1)
			}
		}
	}
	return score
}

func minDistance(a, b []int) int {
	min := -1
	for _, pa := range a {
		for _, pb := range b {
			d := pa - pb
			if d < 0 {
				d = -d
			}
			if min < 0 || d < min {
				min = d
			}
		}
	}
	return min
}

// pathScore scores query terms against the document path. An exact
// phrase match in the path dominates; otherwise the fraction of terms
// present in the path is used.
func pathScore(terms []string, phrase, path string) float64 {
	lower := strings.ToLower(path)
	if strings.Contains(lower, phrase) {
		return exactPathScore
	}
	matches := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	return float64(matches) / float64(len(terms))
}

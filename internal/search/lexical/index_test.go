package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/tokenizer"
)

func buildIndex(chunks ...search.Chunk) *Index {
	ix := New()
	for _, c := range chunks {
		ix.AddChunk(c)
	}
	return ix
}

func TestScoreEmptyQuery(t *testing.T) {
	ix := buildIndex(search.Chunk{ID: "c1", Text: "radar sistemi analizi"})
	assert.Nil(t, ix.Score(nil, 10))
	assert.Nil(t, ix.Score([]string{}, 10))
}

func TestScoreNoMatches(t *testing.T) {
	ix := buildIndex(search.Chunk{ID: "c1", Text: "radar sistemi analizi"})
	assert.Nil(t, ix.Score([]string{"helikopter"}, 10))
}

func TestScoreSingleTermRanksByTFIDF(t *testing.T) {
	ix := buildIndex(
		search.Chunk{ID: "c1", DocumentPath: "a.pdf", Text: "füze füze füze denemesi hakkında rapor"},
		search.Chunk{ID: "c2", DocumentPath: "b.pdf", Text: "füze bakımı hakkında uzun rapor metni burada devam ediyor"},
		search.Chunk{ID: "c3", DocumentPath: "c.pdf", Text: "tamamen alakasız içerik"},
	)
	hits := ix.Score(tokenizer.Tokenize("füze"), 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Equal(t, "c2", hits[1].Chunk.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Contains(t, hits[0].Factors, search.FactorKeywordMatch)
}

func TestScorePhraseBonus(t *testing.T) {
	ix := buildIndex(
		search.Chunk{ID: "c1", Text: "güvenlik testi sonuçları açıklandı"},
		search.Chunk{ID: "c2", Text: "testi geçen güvenlik birimi vardı ama arada başka kelimeler var"},
	)
	hits := ix.Score([]string{"güvenlik", "testi"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score+phraseBonus-2)
}

func TestScoreProximity(t *testing.T) {
	ix := buildIndex(
		search.Chunk{ID: "near", Text: "radar analizi raporu hazırlandı sonra başka konular geldi"},
		search.Chunk{ID: "far", Text: "radar bulundu sonra birçok farklı kelime geldi arada uzun metin vardı sonunda analizi yapıldı"},
	)
	hits := ix.Score([]string{"radar", "analizi"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Chunk.ID)
	assert.Contains(t, hits[0].Factors, search.FactorProximity)
}

func TestScoreFilenameMatch(t *testing.T) {
	ix := buildIndex(
		search.Chunk{ID: "c1", DocumentPath: "docs/radar_kilavuzu.pdf", Text: "genel bilgiler radar hakkında"},
		search.Chunk{ID: "c2", DocumentPath: "docs/diger.pdf", Text: "genel bilgiler radar hakkında"},
	)
	hits := ix.Score([]string{"radar"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Contains(t, hits[0].Factors, search.FactorFilenameMatch)
}

func TestScoreCoverageBonus(t *testing.T) {
	ix := buildIndex(
		search.Chunk{ID: "both", Text: "füze sonra uzun bir ara verildi burada güvenlik konusu geçti ama uzakta"},
		search.Chunk{ID: "one", Text: "füze konusu burada tek başına geçiyor sadece"},
	)
	hits := ix.Score([]string{"füze", "güvenlik"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "both", hits[0].Chunk.ID)
}

func TestScoreDeterministicTieBreak(t *testing.T) {
	ix := buildIndex(
		search.Chunk{ID: "b", Text: "radar sistemi"},
		search.Chunk{ID: "a", Text: "radar sistemi"},
	)
	hits := ix.Score([]string{"radar"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.Equal(t, "b", hits[1].Chunk.ID)
}

func TestScoreMaxResults(t *testing.T) {
	ix := New()
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		ix.AddChunk(search.Chunk{ID: id, Text: "radar raporu " + id})
	}
	hits := ix.Score([]string{"radar"}, 3)
	assert.Len(t, hits, 3)
}

func TestAddChunkDerivesTermStats(t *testing.T) {
	ix := buildIndex(search.Chunk{ID: "c1", Text: "radar radar sistemi"})
	chunk := ix.Chunk(0)
	assert.Equal(t, 3, chunk.TokenCount)
	assert.Equal(t, 2, chunk.TermFreqs["radar"])
	assert.Equal(t, 1, ix.Len())
}

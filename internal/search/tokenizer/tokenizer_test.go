package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	terms := Tokenize("Radar Sistem-Analizi 2024!")
	assert.Equal(t, []string{"radar", "sistem", "analizi", "2024"}, terms)
}

func TestTokenizeDropsShortTokensAndStopwords(t *testing.T) {
	terms := Tokenize("füze ve bir test için sistem")
	assert.Equal(t, []string{"füze", "test", "sistem"}, terms)
}

func TestTokenizeTurkishCharacters(t *testing.T) {
	terms := Tokenize("GÜVENLİK Çalışması")
	assert.Len(t, terms, 2)
	assert.Equal(t, "çalışması", terms[1])
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  ,.!  "))
	assert.Empty(t, Tokenize("ve de bu"))
}

func TestTokenizePositionsCountSurvivors(t *testing.T) {
	tokens := TokenizePositions("radar ve füze sistemi")
	assert.Equal(t, []Token{
		{Term: "radar", Position: 0},
		{Term: "füze", Position: 1},
		{Term: "sistemi", Position: 2},
	}, tokens)
}

func TestTokenizeDeterministic(t *testing.T) {
	a := Tokenize("füze güvenlik testi raporu")
	b := Tokenize("füze güvenlik testi raporu")
	assert.Equal(t, a, b)
}

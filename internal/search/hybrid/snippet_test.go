package hybrid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippetShortTextReturnedWhole(t *testing.T) {
	text := "Kısa bir metin."
	assert.Equal(t, text, Snippet(text, []string{"metin"}))
}

func TestSnippetPicksDensestWindow(t *testing.T) {
	padding := strings.Repeat("dolgu kelimeleri burada ", 30)
	text := padding + "radar sistemi ve radar menzili hakkında önemli bulgular" + padding
	got := Snippet(text, []string{"radar"})

	assert.Contains(t, got, "radar")
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), snippetWindow+6)
}

func TestSnippetNoTermsFallsBackToStart(t *testing.T) {
	text := strings.Repeat("sıradan içerik ", 50)
	got := Snippet(text, []string{"bulunamayan"})
	assert.NotEmpty(t, got)
	assert.True(t, strings.HasSuffix(got, "..."))
}

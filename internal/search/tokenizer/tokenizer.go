// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input with full Unicode handling, splits on
// non-alphanumeric boundaries, and removes Turkish stop-words and
// very short tokens.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"ve": {}, "bir": {}, "bu": {}, "da": {}, "de": {}, "ile": {},
	"için": {}, "olan": {}, "olarak": {}, "ama": {}, "ancak": {},
	"gibi": {}, "daha": {}, "çok": {}, "her": {}, "mi": {}, "ne": {},
	"o": {}, "şu": {}, "ki": {}, "ya": {}, "veya": {}, "ise": {},
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {},
}

// Token is a single normalised term and its position in the text.
// Positions count surviving tokens, not raw words, so proximity
// distances are measured between terms the index actually stores.
type Token struct {
	Term     string
	Position int
}

// Tokenize returns the normalised terms of text in order.
func Tokenize(text string) []string {
	tokens := TokenizePositions(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// TokenizePositions returns normalised terms with their positions for
// proximity scoring.
func TokenizePositions(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if runeLen(word) <= 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
		pos++
	}
	return tokens
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

package hybrid

import "strings"

const (
	snippetWindow = 300
	snippetStep   = 50
)

// Snippet extracts a display excerpt from text: the 300-character
// window containing the most query terms, scanned in 50-character
// steps, with ellipses marking truncation on either side.
func Snippet(text string, terms []string) string {
	runes := []rune(text)
	if len(runes) <= snippetWindow {
		return strings.TrimSpace(text)
	}
	lower := strings.ToLower(text)
	lowerRunes := []rune(lower)

	bestStart, bestCount := 0, -1
	for start := 0; start < len(lowerRunes); start += snippetStep {
		end := start + snippetWindow
		if end > len(lowerRunes) {
			end = len(lowerRunes)
		}
		window := string(lowerRunes[start:end])
		count := 0
		for _, term := range terms {
			count += strings.Count(window, term)
		}
		if count > bestCount {
			bestStart, bestCount = start, count
		}
		if end == len(lowerRunes) {
			break
		}
	}

	end := bestStart + snippetWindow
	if end > len(runes) {
		end = len(runes)
	}
	snippet := strings.TrimSpace(string(runes[bestStart:end]))
	if bestStart > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

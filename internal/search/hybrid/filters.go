package hybrid

import (
	"strconv"
	"strings"

	"github.com/deepsearch-io/deepsearch/internal/search"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
)

// applyFilters drops results whose chunk metadata does not satisfy the
// filter map. Plain keys require exact equality; keys prefixed with
// "min:" or "max:" bound a numeric metadata value. A chunk missing a
// filtered key, or holding a non-numeric value for a range filter, is
// excluded.
func applyFilters(results []search.SearchResult, filters map[string]string, snap *pool.Snapshot) []search.SearchResult {
	if len(filters) == 0 {
		return results
	}
	filtered := results[:0:0]
	for _, r := range results {
		chunk, ok := snap.ChunkByID(r.ChunkID)
		if !ok {
			continue
		}
		if matchesFilters(chunk.Metadata, filters) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func matchesFilters(metadata map[string]string, filters map[string]string) bool {
	for key, want := range filters {
		switch {
		case strings.HasPrefix(key, "min:"):
			if !numericBound(metadata[key[len("min:"):]], want, false) {
				return false
			}
		case strings.HasPrefix(key, "max:"):
			if !numericBound(metadata[key[len("max:"):]], want, true) {
				return false
			}
		default:
			if metadata[key] != want {
				return false
			}
		}
	}
	return true
}

func numericBound(have, bound string, upper bool) bool {
	haveN, err := strconv.ParseFloat(have, 64)
	if err != nil {
		return false
	}
	boundN, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return false
	}
	if upper {
		return haveN <= boundN
	}
	return haveN >= boundN
}

package normalize

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TokenSortRatio scores two already-normalized strings by sorting each
// string's whitespace tokens alphabetically, rejoining, and scoring the
// result with a Levenshtein-based ratio in [0,100], so token order never
// affects the score.
func TokenSortRatio(a, b string) float64 {
	return levenshteinRatio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// levenshteinRatio returns 100*(1 - distance/maxLen), matching the
// normalized-ratio convention most token-sort-ratio implementations use.
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(maxLen))
}

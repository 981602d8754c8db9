// Package similarity provides normalized string-similarity ratios used by
// destination resolution and inbound matching.
package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio returns an edit-distance similarity in [0,1]. Inputs are compared
// case-insensitively with surrounding whitespace ignored. Two empty strings
// are not similar; absence of data must never score as a match.
func Ratio(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

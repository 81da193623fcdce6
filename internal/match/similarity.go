// Package match implements the multi-signal fuzzy matching engine that links
// extracted receipts to candidate ledger entries.
package match

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Normalize lowercases a string and strips everything but letters and digits.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity returns a normalized similarity score in [0,1] between two short
// text strings. Checks run cheapest first: exact match, substring containment,
// then full edit distance only when needed.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)

	if na == nb {
		if na == "" {
			return 0
		}
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		shorter, longer := len(na), len(nb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	ra, rb := []rune(na), []rune(nb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	if dist >= maxLen {
		return 0
	}
	return float64(maxLen-dist) / float64(maxLen)
}

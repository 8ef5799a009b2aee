// Package similarity scores how alike two names are.
package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the Ratcliff/Obershelp matching ratio of a and b in [0, 1], ignoring case.
// It is 2*M/T where M is the number of matched characters and T the combined length,
// two empty strings are identical and score 1.
func Ratio(a, b string) float64 {
	m := difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b)))
	return m.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

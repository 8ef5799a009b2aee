package report

import (
	"sort"
	"strings"
	"unicode"

	"hmis-autoentry/internal/outreach"

	"github.com/antzucaro/matchr"
)

// ItemToken is a word seen in the items column.
type ItemToken struct {
	Token string
	// Known is true when the token is an item code that is tallied.
	Known    bool
	Category outreach.ServiceCode
	// Suggestion is the most similar known item code of an unknown token.
	Suggestion string
	Similarity float64
}

func knownItems() map[string]outreach.ServiceCode {
	out := map[string]outreach.ServiceCode{}
	for _, category := range itemCategories {
		for _, item := range category.items {
			out[item] = category.code
		}
	}
	return out
}

// ListItems returns every distinct alphabetic word of the items column, sorted, with the
// category it is tallied into or the closest known item code.
func ListItems(s *Sheet) []ItemToken {
	known := knownItems()
	seen := map[string]struct{}{}
	for _, row := range s.Rows {
		for _, word := range strings.Split(s.Cell(row, COLUMN_ITEMS), " ") {
			word = strings.TrimSpace(word)
			if word == "" || strings.IndexFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
				continue
			}
			seen[word] = struct{}{}
		}
	}

	out := make([]ItemToken, 0, len(seen))
	for word := range seen {
		if code, ok := known[word]; ok {
			out = append(out, ItemToken{Token: word, Known: true, Category: code, Similarity: 1})
			continue
		}
		out = append(out, SuggestItemCode(word))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Token < out[j].Token
	})
	return out
}

// SuggestItemCode finds the known item code most similar to token.
func SuggestItemCode(token string) ItemToken {
	result := ItemToken{Token: token}
	for code, category := range knownItems() {
		sim := matchr.JaroWinkler(strings.ToUpper(token), strings.ToUpper(code), false)
		if sim > result.Similarity || (sim == result.Similarity && code < result.Suggestion) {
			result.Similarity = sim
			result.Suggestion = code
			result.Category = category
		}
	}
	return result
}

package hmis

import (
	"strings"

	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/similarity"
)

const (
	// idThreshold is the minimum summed first+last name similarity accepted for a search by id.
	idThreshold = 0.80
	// pairThreshold is the minimum summed similarity of the name pairing tiers.
	pairThreshold = 1.4
	// threeNameThreshold is the minimum summed similarity of a three name assignment.
	threeNameThreshold = 2.0
)

// MatchCandidate is a single birthdate search result.
type MatchCandidate struct {
	FirstName  string
	LastName   string
	MiddleName string
	Row        browser.Element
}

// IDMatches reports whether the name shown on a profile found by id belongs to the client,
// either as given or with first and last name swapped. The scores of both pairings are
// returned for diagnostics.
func IDMatches(profileFirst, profileLast, first, last string) (bool, float64, float64) {
	direct := similarity.Ratio(profileFirst, first) + similarity.Ratio(profileLast, last)
	if direct >= idThreshold {
		return true, direct, 0
	}
	swapped := similarity.Ratio(profileFirst, last) + similarity.Ratio(profileLast, first)
	return swapped >= idThreshold, direct, swapped
}

// SelectCandidate picks the search result that best matches the client's name and returns its
// index and score.
//
// Candidates are scored in tiers, a later tier only runs when no candidate clears an earlier
// one:
//  1. first/last against first/last, and swapped, threshold 1.4.
//  2. when the client has two names, the middle name is scored as well, threshold 1.4.
//  3. when the last name holds two names, every assignment of the three names over
//     first/middle/last is scored, threshold 2.0.
//
// Within a tier the highest score wins and ties go to the earliest candidate.
func SelectCandidate(candidates []MatchCandidate, first, last string) (int, float64, bool) {
	ratio := similarity.Ratio

	best := 0.0
	idx := -1
	consider := func(i int, score, threshold float64) {
		if score >= threshold && score > best {
			best = score
			idx = i
		}
	}

	for i, c := range candidates {
		consider(i, ratio(c.FirstName, first)+ratio(c.LastName, last), pairThreshold)
		consider(i, ratio(c.FirstName, last)+ratio(c.LastName, first), pairThreshold)
	}
	if idx >= 0 {
		return idx, best, true
	}

	names := append(strings.SplitN(last, " ", 2), first)
	for i, c := range candidates {
		if len(names) <= 2 {
			mid := max(ratio(first, c.MiddleName), ratio(last, c.MiddleName))
			firstScore := max(ratio(first, c.FirstName), ratio(last, c.FirstName))
			lastScore := max(ratio(first, c.LastName), ratio(last, c.LastName))
			consider(i, max(firstScore+mid, lastScore+mid), pairThreshold)
			continue
		}

		for _, name := range names {
			remaining := withoutFirst(names, name)
			firstScore := ratio(c.FirstName, name)
			for k := 0; k < 2; k++ {
				mid := ratio(c.MiddleName, remaining[k%2])
				lastScore := ratio(c.LastName, remaining[(k+1)%2])
				consider(i, firstScore+mid+lastScore, threeNameThreshold)
			}
		}
	}
	if idx >= 0 {
		return idx, best, true
	}
	return -1, 0, false
}

// withoutFirst returns names with the first occurrence of name removed.
func withoutFirst(names []string, name string) []string {
	out := make([]string, 0, len(names)-1)
	removed := false
	for _, n := range names {
		if !removed && n == name {
			removed = true
			continue
		}
		out = append(out, n)
	}
	return out
}

package hmis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDMatches(t *testing.T) {
	cases := []struct {
		name                      string
		profileFirst, profileLast string
		first, last               string
		ok                        bool
		direct, swapped           float64
	}{
		{
			name:         "exact",
			profileFirst: "Maria", profileLast: "Garcia",
			first: "Maria", last: "Garcia",
			ok: true, direct: 2,
		},
		{
			name:         "misspelled",
			profileFirst: "Jon", profileLast: "Smyth",
			first: "John", last: "Smith",
			ok: true, direct: 6.0/7.0 + 0.8,
		},
		{
			name:         "swapped on the report",
			profileFirst: "Maria", profileLast: "Garcia",
			first: "Garcia", last: "Maria",
			ok: true, direct: 1.4545454545,
		},
		{
			name:         "only the swapped pairing passes",
			profileFirst: "Xu", profileLast: "Li",
			first: "Li", last: "Xu",
			ok: true, direct: 0, swapped: 2,
		},
		{
			name:         "someone else",
			profileFirst: "Peter", profileLast: "Parker",
			first: "Maria", last: "Garcia",
			ok: false, direct: 0.5333333333, swapped: 0.5454545454,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, direct, swapped := IDMatches(c.profileFirst, c.profileLast, c.first, c.last)
			require.Equal(t, c.ok, ok)
			require.InDelta(t, c.direct, direct, 1e-6)
			require.InDelta(t, c.swapped, swapped, 1e-6)
		})
	}
}

func TestSelectCandidate(t *testing.T) {
	cases := []struct {
		name        string
		candidates  []MatchCandidate
		first, last string
		idx         int
		score       float64
	}{
		{
			name: "exact name beats close spellings",
			candidates: []MatchCandidate{
				{FirstName: "Jon", LastName: "Smith"},
				{FirstName: "John", LastName: "Smith"},
				{FirstName: "John", LastName: "Smyth"},
			},
			first: "John", last: "Smith",
			idx: 1, score: 2,
		},
		{
			name: "first and last swapped in HMIS",
			candidates: []MatchCandidate{
				{FirstName: "Smith", LastName: "John"},
			},
			first: "John", last: "Smith",
			idx: 0, score: 2,
		},
		{
			name: "first name recorded as middle name",
			candidates: []MatchCandidate{
				{FirstName: "Maria", LastName: "Lopez"},
				{FirstName: "Ana", LastName: "Lopez", MiddleName: "Maria"},
			},
			first: "Maria", last: "Garcia",
			idx: 1, score: 1.5,
		},
		{
			name: "three names spread over first middle and last",
			candidates: []MatchCandidate{
				{FirstName: "Jane", LastName: "Gates"},
				{FirstName: "Baxton", LastName: "Yates", MiddleName: "James"},
			},
			first: "James", last: "Baxton Yates",
			idx: 1, score: 3,
		},
		{
			name: "ties go to the first result",
			candidates: []MatchCandidate{
				{FirstName: "John", LastName: "Smith"},
				{FirstName: "John", LastName: "Smith"},
			},
			first: "John", last: "Smith",
			idx: 0, score: 2,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			idx, score, ok := SelectCandidate(c.candidates, c.first, c.last)
			require.True(t, ok)
			require.Equal(t, c.idx, idx)
			require.InDelta(t, c.score, score, 1e-9)
		})
	}
}

func TestSelectCandidateRejects(t *testing.T) {
	idx, _, ok := SelectCandidate([]MatchCandidate{{FirstName: "Peter", LastName: "Parker"}}, "John", "Smith")
	require.False(t, ok)
	require.Equal(t, -1, idx)

	_, _, ok = SelectCandidate(nil, "John", "Smith")
	require.False(t, ok)
}

func TestWithoutFirst(t *testing.T) {
	require.Equal(t, []string{"b", "a"}, withoutFirst([]string{"a", "b", "a"}, "a"))
	require.Equal(t, []string{"a", "b"}, withoutFirst([]string{"a", "b"}, "c"))
}

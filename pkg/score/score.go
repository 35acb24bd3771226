// Package score implements the pronunciation similarity scorer: a pure
// function that compares a reference sentence against a recognized transcript
// and produces an integer score in [0, 100].
//
// Both inputs are normalized first ([Normalize]), then compared with
// Levenshtein edit distance (unit insert/delete/substitute costs, via matchr).
// The distance is mapped onto the 0–100 range relative to the longer of the
// two normalized strings, so identical sentences score 100 and entirely
// unrelated ones approach 0.
//
// The scorer is stateless and deterministic: repeated calls with identical
// inputs always yield identical scores.
package score

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Normalize lowercases s, strips every character that is neither a letter nor
// whitespace, collapses whitespace runs into single spaces, and trims the
// result. Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores how closely candidate matches reference, as an integer
// in [0, 100]. Both inputs are normalized before comparison.
//
// The score is round(max(0, (maxLen-distance)/maxLen) * 100) where distance
// is the Levenshtein edit distance between the normalized strings and maxLen
// is the rune length of the longer one (minimum 1, so an empty pair is
// well-defined). Callers that want to treat an empty candidate as "no speech"
// rather than a zero score must check emptiness before calling.
func Similarity(reference, candidate string) int {
	ref := Normalize(reference)
	cand := Normalize(candidate)

	maxLen := utf8.RuneCountInString(ref)
	if n := utf8.RuneCountInString(cand); n > maxLen {
		maxLen = n
	}
	if maxLen < 1 {
		maxLen = 1
	}

	distance := matchr.Levenshtein(ref, cand)

	s := math.Round(float64(maxLen-distance) / float64(maxLen) * 100)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return int(s)
}

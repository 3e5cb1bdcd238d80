// Package names resolves user-supplied identifiers (command types, building
// types, species, resources) against a fixed vocabulary and suggests the
// closest match when an identifier is unknown.
package names

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how different a suggestion may be from the input.
const maxSuggestDistance = 3

// Normalize lowercases and turns spaces and dashes into underscores.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// Suggest returns the candidate closest to input by edit distance. Ties keep
// the earlier candidate. ok is false when nothing is close enough.
func Suggest(input string, candidates []string) (best string, ok bool) {
	input = Normalize(input)
	bestDist := maxSuggestDistance + 1
	for _, cand := range candidates {
		dist := levenshtein.ComputeDistance(input, cand)
		if dist < bestDist {
			bestDist = dist
			best = cand
		}
	}
	return best, bestDist <= maxSuggestDistance
}

// Hint formats a " (did you mean %q?)" suffix, or "" when there is no
// suggestion.
func Hint(input string, candidates []string) string {
	best, ok := Suggest(input, candidates)
	if !ok {
		return ""
	}
	return ` (did you mean "` + best + `"?)`
}

package snapshot

import (
	"fmt"
	"slices"
)

// ValidationResult contains the problems found in a snapshot document.
// Only shapes that no save or merge can produce are problems: a live
// capture may hold repeated or empty URLs (two new-tab pages, a tab still
// loading), so those are accepted.
type ValidationResult struct {
	Valid           bool
	DuplicateTitles []string // group titles appearing more than once
	UnknownColors   []string // group colors outside the palette
}

// Problems returns a human-readable line per problem, in a stable order.
func (r *ValidationResult) Problems() []string {
	var out []string
	for _, t := range r.DuplicateTitles {
		out = append(out, fmt.Sprintf("duplicate group title %q", t))
	}
	for _, c := range r.UnknownColors {
		out = append(out, fmt.Sprintf("unknown group color %q", c))
	}
	return out
}

// Validate checks an imported document. Merges key groups by title, so a
// repeated title would make later saves and restores ambiguous.
func Validate(s *SavedState) *ValidationResult {
	result := &ValidationResult{Valid: true}
	if s == nil {
		return result
	}

	result.DuplicateTitles = duplicates(len(s.Groups), func(i int) string { return s.Groups[i].Title })
	for _, g := range s.Groups {
		if g.Color != "" && !slices.Contains(Colors, g.Color) && !slices.Contains(result.UnknownColors, string(g.Color)) {
			result.UnknownColors = append(result.UnknownColors, string(g.Color))
		}
	}

	if len(result.DuplicateTitles) > 0 || len(result.UnknownColors) > 0 {
		result.Valid = false
	}
	return result
}

// duplicates returns keys seen more than once, each reported once, in first-seen order.
func duplicates(n int, key func(int) string) []string {
	seen := make(map[string]int, n)
	var dups []string
	for i := 0; i < n; i++ {
		k := key(i)
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// SPDX-License-Identifier: MPL-2.0

package tui

import "github.com/sahilm/fuzzy"

// Suggest returns up to limit candidates that fuzzily match pattern, best
// first. A non-positive limit returns every match.
func Suggest(pattern string, candidates []string, limit int) []string {
	if pattern == "" {
		return nil
	}
	matches := fuzzy.Find(pattern, candidates)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

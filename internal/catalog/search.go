// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"os"
	"regexp"
	"slices"
)

// lineTokenPattern accepts a line holding exactly one identifier, with
// surrounding whitespace ignored.
var lineTokenPattern = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_.-]*)\s*$`)

type (
	// Match is one line returned by a Searcher.
	Match struct {
		// File is the base name of the candidate file.
		File string
		// Line is 1-based.
		Line int
		// Text is the full line without its newline.
		Text string
	}

	// Searcher finds lines in the regular files of dir containing any of terms
	// as a fixed string. Matches are returned grouped by file, lines ascending.
	// The resolver takes them in the order returned.
	Searcher interface {
		Search(ctx context.Context, terms []string, dir string) ([]Match, error)
	}
)

// LineToken returns the identifier a line consists of, or "" when the line
// holds anything else.
func LineToken(text string) string {
	m := lineTokenPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// candidateFiles lists the regular files of dir in name order.
func candidateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

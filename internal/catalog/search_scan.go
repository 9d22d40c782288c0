// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScanSearcher searches candidate files in-process.
type ScanSearcher struct{}

// NewScanSearcher creates an in-process searcher.
func NewScanSearcher() *ScanSearcher { return &ScanSearcher{} }

// Search implements Searcher.
func (s *ScanSearcher) Search(ctx context.Context, terms []string, dir string) ([]Match, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	names, err := candidateFiles(dir)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := scanFile(filepath.Join(dir, name), name, terms)
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	return matches, nil
}

func scanFile(path, name string, terms []string) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		for _, term := range terms {
			if strings.Contains(line, term) {
				matches = append(matches, Match{File: name, Line: lineNum, Text: line})
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return matches, nil
}

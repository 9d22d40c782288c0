// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultGrepPath is the grep binary used when none is configured.
const DefaultGrepPath = "grep"

// GrepSearcher delegates the search to an external grep. Terms are staged
// in a temporary pattern file that is removed before Search returns.
type GrepSearcher struct {
	// Path is the grep binary; DefaultGrepPath when empty.
	Path string
	// TempDir holds the pattern file; os.TempDir() when empty.
	TempDir string
}

// NewGrepSearcher creates a searcher running the grep at path.
func NewGrepSearcher(path string) *GrepSearcher {
	return &GrepSearcher{Path: path}
}

// Search implements Searcher.
func (s *GrepSearcher) Search(ctx context.Context, terms []string, dir string) (matches []Match, err error) {
	if len(terms) == 0 {
		return nil, nil
	}
	names, err := candidateFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	patterns, err := os.CreateTemp(s.TempDir, "fnlbuild-terms-*.txt")
	if err != nil {
		return nil, fmt.Errorf("staging search terms: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(patterns.Name()); rmErr != nil && err == nil {
			err = fmt.Errorf("removing pattern file: %w", rmErr)
		}
	}()
	_, writeErr := patterns.WriteString(strings.Join(terms, "\n") + "\n")
	closeErr := patterns.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return nil, fmt.Errorf("staging search terms: %w", err)
	}

	bin := s.Path
	if bin == "" {
		bin = DefaultGrepPath
	}
	args := []string{"-n", "-H", "-Z", "-F", "-f", patterns.Name(), "--"}
	for _, name := range names {
		args = append(args, filepath.Join(dir, name))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if runErr := cmd.Run(); runErr != nil {
		var exitErr *exec.ExitError
		// Exit status 1 means no line matched.
		if !errors.As(runErr, &exitErr) || exitErr.ExitCode() != 1 || stdout.Len() > 0 {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("%s: %w: %s", bin, runErr, msg)
			}
			return nil, fmt.Errorf("%s: %w", bin, runErr)
		}
		return nil, nil
	}
	return parseGrepOutput(stdout.Bytes())
}

// parseGrepOutput reads "path\x00line:text" records. The NUL after the
// path keeps colons in directory names from splitting the record.
func parseGrepOutput(out []byte) ([]Match, error) {
	var matches []Match
	for raw := range bytes.Lines(out) {
		record := strings.TrimRight(string(raw), "\n")
		path, rest, ok := strings.Cut(record, "\x00")
		if !ok {
			return nil, fmt.Errorf("malformed grep output %q", record)
		}
		num, text, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("malformed grep output %q", record)
		}
		line, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("malformed line number in %q: %w", record, err)
		}
		matches = append(matches, Match{File: filepath.Base(path), Line: line, Text: text})
	}
	return matches, nil
}

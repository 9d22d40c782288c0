// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultSupportDir is the results subdirectory for non-top-level binaries.
const DefaultSupportDir = "support_binaries"

// buildNumber matches the "c<digits>" tag the build appends to binary names.
var buildNumber = regexp.MustCompile(`(\S+)c\d+`)

// Link is one symlink created by LinkBinaries.
type Link struct {
	Path   string
	Target string
	// Top reports whether the binary belongs to a top-level handle.
	Top bool
}

// PrepareResults empties dir and creates dir/support. It returns the path
// of the support directory. Nothing is removed when dir is, or lies above,
// one of the protected paths; an *UnsafeDirError is returned instead.
func PrepareResults(dir, support string, protected ...string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for _, p := range protected {
		absP, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		if within(absDir, absP) {
			return "", &UnsafeDirError{Dir: dir, Protected: p}
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing results directory: %w", err)
	}
	supportDir := filepath.Join(dir, support)
	if err := os.MkdirAll(supportDir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}
	return supportDir, nil
}

// within reports whether p is dir or lies below it. Both are absolute.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// BinaryRef strips the build number tag from a binary name.
func BinaryRef(name string) string {
	return buildNumber.ReplaceAllString(name, "${1}")
}

// LinkBinaries creates a relative symlink for every binary. Binaries whose
// reference name is one of tops are linked into results; the rest go into
// support. An existing entry with the same name is replaced.
func LinkBinaries(results, support string, binaries []Binary, tops []string) ([]Link, error) {
	links := make([]Link, 0, len(binaries))
	for _, b := range binaries {
		top := slices.Contains(tops, BinaryRef(b.Name))
		dst := support
		if top {
			dst = results
		}
		absDst, err := filepath.Abs(dst)
		if err != nil {
			return links, err
		}
		absBin, err := filepath.Abs(filepath.Join(b.Dir, b.Name))
		if err != nil {
			return links, err
		}
		target, err := filepath.Rel(absDst, absBin)
		if err != nil {
			return links, fmt.Errorf("linking %s: %w", b.Name, err)
		}

		path := filepath.Join(dst, b.Name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return links, fmt.Errorf("replacing %s: %w", path, err)
		}
		if err := os.Symlink(target, path); err != nil {
			return links, fmt.Errorf("linking %s: %w", b.Name, err)
		}
		links = append(links, Link{Path: path, Target: target, Top: top})
	}
	return links, nil
}

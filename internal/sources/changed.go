// SPDX-License-Identifier: MPL-2.0

package sources

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
)

// Changed collects the files of the git worktree containing dir that differ
// from HEAD, staged or not. Untracked files are included; ignored files are
// not. Exclude patterns apply as in Collect, with directory patterns matched
// against each file's directory relative to the worktree root.
func Changed(dir string, opts Options) (*Collection, error) {
	f, err := compile(opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}

	var changed []string
	for file, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		changed = append(changed, file)
	}
	slices.Sort(changed)

	root := wt.Filesystem.Root()
	c := &Collection{}
	seenDirs := make(map[string]bool)
	for _, file := range changed {
		rel := filepath.ToSlash(filepath.Dir(file))
		if f.skipDir(rel) {
			if !seenDirs[rel] {
				seenDirs[rel] = true
				c.ExcludedDirs++
			}
			logger.Debug("excluded changed file by directory", "file", file)
			c.ExcludedFiles++
			continue
		}
		if !seenDirs[rel] {
			seenDirs[rel] = true
			c.IncludedDirs++
		}
		c.addFile(filepath.Join(root, file), f, logger)
	}
	return c, nil
}

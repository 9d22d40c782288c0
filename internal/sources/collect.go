// SPDX-License-Identifier: MPL-2.0

package sources

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/log"
)

type (
	// Options controls which files Collect keeps.
	Options struct {
		// ExcludeDirs are regular expressions matched against a directory's
		// path relative to the walked argument. A match skips the directory
		// and everything below it.
		ExcludeDirs []string
		// ExcludeFiles are regular expressions matched against file base names.
		ExcludeFiles []string
		Logger       *log.Logger
	}

	// Collection is the result of Collect.
	Collection struct {
		// Sources holds base names in walk order.
		Sources []string
		// Paths holds the path of each entry in Sources.
		Paths []string

		IncludedFiles int
		ExcludedFiles int
		IncludedDirs  int
		ExcludedDirs  int
	}

	// filter holds compiled exclude patterns.
	filter struct {
		dirs  []*regexp.Regexp
		files []*regexp.Regexp
	}
)

// TotalFiles returns the number of files seen, kept or not.
func (c *Collection) TotalFiles() int { return c.IncludedFiles + c.ExcludedFiles }

// TotalDirs returns the number of directories seen, kept or not.
func (c *Collection) TotalDirs() int { return c.IncludedDirs + c.ExcludedDirs }

// Collect gathers source identifiers from files and directory trees.
func Collect(paths []string, opts Options) (*Collection, error) {
	f, err := compile(opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Collection{}
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &PathNotFoundError{Path: p}
		case err != nil:
			return nil, fmt.Errorf("inspecting %s: %w", p, err)
		case info.IsDir():
			if err := c.walk(p, f, logger); err != nil {
				return nil, err
			}
		default:
			c.addFile(p, f, logger)
		}
	}
	return c, nil
}

func (c *Collection) walk(base string, f *filter, logger *log.Logger) error {
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			if d.Type().IsRegular() {
				c.addFile(path, f, logger)
			}
			return nil
		}

		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			rel = path
		}
		if f.skipDir(filepath.ToSlash(rel)) {
			logger.Debug("excluded directory", "dir", path)
			c.ExcludedDirs++
			return filepath.SkipDir
		}
		c.IncludedDirs++
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", base, err)
	}
	return nil
}

func (c *Collection) addFile(path string, f *filter, logger *log.Logger) {
	name := filepath.Base(path)
	if f.skipFile(name) {
		logger.Debug("excluded file", "file", path)
		c.ExcludedFiles++
		return
	}
	c.IncludedFiles++
	c.Sources = append(c.Sources, name)
	c.Paths = append(c.Paths, path)
}

func compile(opts Options) (*filter, error) {
	f := &filter{}
	var err error
	if f.dirs, err = compileAll(opts.ExcludeDirs); err != nil {
		return nil, err
	}
	if f.files, err = compileAll(opts.ExcludeFiles); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &InvalidPatternError{Pattern: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}

func (f *filter) skipDir(rel string) bool {
	if rel == "." {
		return false
	}
	return matchAny(f.dirs, rel)
}

func (f *filter) skipFile(name string) bool { return matchAny(f.files, name) }

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

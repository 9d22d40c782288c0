// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/log"
)

// fnlName matches a build-description file name in list output.
var fnlName = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_-]*\.fnl`)

type (
	// Fetcher populates a directory with the build-description files the
	// version control system knows about.
	Fetcher struct {
		// ListCommand prints the available files; every *.fnl name in its
		// output is fetched.
		ListCommand string
		// FetchCommand is run once per name, with the name appended, inside
		// the target directory.
		FetchCommand string
		Env          []string
		Logger       *log.Logger
		// OnFetched is called after each successful fetch.
		OnFetched func(name string)
	}
)

// ListNames returns the unique *.fnl names in out, in order of appearance.
func ListNames(out []byte) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range fnlName.FindAll(out, -1) {
		name := string(m)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// ClearDescriptions removes the regular *.fnl files directly inside dir,
// creating dir when it is missing. Everything else in dir is left alone.
func ClearDescriptions(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ".fnl" {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("clearing %s: %w", dir, err)
		}
	}
	return nil
}

// Fetch lists the available files and fetches each into dir. It returns the
// fetched names.
func (f *Fetcher) Fetch(ctx context.Context, dir string) ([]string, error) {
	logger := f.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	list, err := SplitCommand(f.ListCommand, f.Env)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, list[0], list[1:]...)
	cmd.Dir = dir
	cmd.Env = f.Env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	logger.Debug("listing build-description files", "cmd", list)
	if err := cmd.Run(); err != nil {
		return nil, &FetchError{Err: withStderr(err, stderr.Bytes())}
	}

	names := ListNames(stdout.Bytes())
	fetch, err := SplitCommand(f.FetchCommand, f.Env)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stderr.Reset()
		cmd := exec.CommandContext(ctx, fetch[0], append(fetch[1:], name)...)
		cmd.Dir = dir
		cmd.Env = f.Env
		cmd.Stdout = io.Discard
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, &FetchError{Name: name, Err: withStderr(err, stderr.Bytes())}
		}
		logger.Debug("fetched", "file", name)
		if f.OnFetched != nil {
			f.OnFetched(name)
		}
	}
	return names, nil
}

func withStderr(err error, stderr []byte) error {
	msg := bytes.TrimSpace(stderr)
	if len(msg) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

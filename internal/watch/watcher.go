// SPDX-License-Identifier: MPL-2.0

// Package watch reruns work when source files change.
//
// A Watcher observes files and directory trees and calls back once per
// quiet period with every changed path seen since the previous call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Options.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrInvalidPattern is the sentinel wrapped by InvalidPatternError.
	ErrInvalidPattern = errors.New("invalid watch pattern")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// defaultIgnores cover VCS metadata, fnlbuild's own output and editor
	// scratch files.
	defaultIgnores = []string{
		"**/.git/**",
		"**/.fnl_files/**",
		"**/build_results/**",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Options configures a Watcher.
	Options struct {
		// Roots are the files and directories to watch. Directories are
		// watched recursively, including directories created later.
		Roots []string
		// Patterns select which files inside a watched directory count as
		// changes, as doublestar globs relative to that directory. Empty
		// means every file. Files named directly in Roots always count.
		Patterns []string
		// Ignore adds doublestar globs to the built-in ignore list.
		Ignore   []string
		Debounce time.Duration
		// OnChange receives the changed paths, sorted. Calls never overlap;
		// changes seen during a call are delivered by the next one.
		OnChange func(ctx context.Context, changed []string) error
		Logger   *log.Logger
	}

	// InvalidPatternError reports a malformed glob.
	InvalidPatternError struct {
		Pattern string
		Err     error
	}

	// Watcher delivers debounced change sets. Run may be called once.
	Watcher struct {
		opts    Options
		fsw     *fsnotify.Watcher
		logger  *log.Logger
		ignores []string
		dirs    []string
		files   map[string]bool
		started atomic.Bool
	}

	// batch accumulates changed paths until its timer fires.
	batch struct {
		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		busy    atomic.Bool
	}
)

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid watch pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns both ErrInvalidPattern and the glob error.
func (e *InvalidPatternError) Unwrap() []error { return []error{ErrInvalidPattern, e.Err} }

// DefaultIgnores returns the built-in ignore globs.
func DefaultIgnores() []string { return slices.Clone(defaultIgnores) }

// New validates opts and registers every root with the file system
// notifier.
func New(opts Options) (*Watcher, error) {
	for _, pat := range slices.Concat(opts.Patterns, opts.Ignore) {
		if !doublestar.ValidatePattern(pat) {
			return nil, &InvalidPatternError{Pattern: pat, Err: doublestar.ErrBadPattern}
		}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		opts:    opts,
		fsw:     fsw,
		logger:  logger,
		ignores: slices.Concat(defaultIgnores, opts.Ignore),
		files:   make(map[string]bool),
	}
	if err := w.addRoots(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRoots() error {
	for _, root := range w.opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		if !info.IsDir() {
			w.files[abs] = true
			if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			continue
		}
		w.dirs = append(w.dirs, abs)
		if err := w.addTree(abs, abs); err != nil {
			return err
		}
	}
	return nil
}

// addTree registers base and every directory below it that is not ignored.
// Unreadable directories are skipped.
func (w *Watcher) addTree(root, base string) error {
	return filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("not watching unreadable path", "path", path, "err", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil && w.ignored(rel, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers change sets until ctx is done. It returns nil on
// cancellation and an error when the notifier breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	b := &batch{pending: make(map[string]struct{})}
	defer func() {
		b.stop()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing file watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher closed its event channel")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if !w.accept(evt.Name) {
				continue
			}
			w.logger.Debug("change", "path", evt.Name, "op", evt.Op.String())
			b.add(evt.Name, w.opts.Debounce, func() { w.fire(ctx, b) })

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher closed its error channel")
			}
			if brokenWatcher(err) {
				return fmt.Errorf("file watcher failed: %w", err)
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

// fire runs OnChange with the pending paths. A fire that finds a previous
// call still running reschedules itself instead of overlapping it.
func (w *Watcher) fire(ctx context.Context, b *batch) {
	if ctx.Err() != nil {
		return
	}
	if !b.busy.CompareAndSwap(false, true) {
		w.logger.Debug("previous run still in progress; deferring changes")
		b.reschedule(w.opts.Debounce)
		return
	}
	defer b.busy.Store(false)

	changed := b.drain()
	if len(changed) == 0 || w.opts.OnChange == nil {
		return
	}
	if err := w.opts.OnChange(ctx, changed); err != nil {
		w.logger.Error("rerun failed", "err", err)
	}
}

// accept reports whether an event on path counts as a change.
func (w *Watcher) accept(path string) bool {
	if w.files[path] {
		return true
	}
	for _, dir := range w.dirs {
		rel, ok := within(dir, path)
		if !ok {
			continue
		}
		if w.ignored(rel, false) {
			return false
		}
		return w.matches(rel)
	}
	return false
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for _, dir := range w.dirs {
		rel, ok := within(dir, path)
		if !ok {
			continue
		}
		if !w.ignored(rel, true) {
			if err := w.addTree(dir, path); err != nil {
				w.logger.Warn("not watching new directory", "dir", path, "err", err)
			}
		}
		return
	}
}

// within returns path relative to dir when path lies strictly below dir.
func within(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) ignored(rel string, isDir bool) bool {
	p := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matchGlob(pat, p) || isDir && matchGlob(pat, p+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) matches(rel string) bool {
	if len(w.opts.Patterns) == 0 {
		return true
	}
	p := filepath.ToSlash(rel)
	for _, pat := range w.opts.Patterns {
		if matchGlob(pat, p) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func (b *batch) add(path string, debounce time.Duration, fire func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[path] = struct{}{}
	if b.timer == nil {
		b.timer = time.AfterFunc(debounce, fire)
		return
	}
	b.timer.Reset(debounce)
}

func (b *batch) reschedule(debounce time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Reset(debounce)
	}
}

func (b *batch) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := make([]string, 0, len(b.pending))
	for p := range b.pending {
		changed = append(changed, p)
	}
	clear(b.pending)
	slices.Sort(changed)
	return changed
}

func (b *batch) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}

// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fnlbuild/fnlbuild/internal/dag"
	"github.com/fnlbuild/fnlbuild/internal/tree"
)

const (
	// RootID is the synthetic root every source and branch hangs from.
	RootID = "catalog"
	// DefaultMaxPasses bounds the number of search passes.
	DefaultMaxPasses = 64
)

var errNotDirectory = errors.New("not a directory")

type (
	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolver runs the cataloging algorithm. A Resolver keeps no state
	// between calls and may be reused.
	Resolver struct {
		searcher     Searcher
		headerMarker string
		endMarker    string
		maxPasses    int
		timeout      time.Duration
		keepSources  bool
		policy       tree.DuplicatePolicy
		observer     Observer
		logger       *log.Logger
	}

	// run is the mutable state of a single Resolve call.
	run struct {
		r       *Resolver
		tree    *tree.Tree
		root    string
		headers map[string]Header
		// records is keyed by tree node; order keeps creation order.
		records map[string]*Record
		order   []*Record
		handles map[string]*Record
		graph   *dag.Graph
		dropped []string
		pass    int
	}
)

// WithHeaderMarker sets the word that opens a description header.
func WithHeaderMarker(marker string) Option {
	return func(r *Resolver) { r.headerMarker = marker }
}

// WithEndMarker sets the prefix of the line that closes a header block.
func WithEndMarker(marker string) Option {
	return func(r *Resolver) { r.endMarker = marker }
}

// WithMaxPasses bounds the number of search passes. Values below 1 are ignored.
func WithMaxPasses(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

// WithTimeout bounds the wall-clock time of a Resolve call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithSources controls whether source leaves stay in the result tree.
func WithSources(keep bool) Option {
	return func(r *Resolver) { r.keepSources = keep }
}

// WithDuplicatePolicy sets how the result tree handles identifier collisions.
func WithDuplicatePolicy(p tree.DuplicatePolicy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithObserver registers a progress callback.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver searching with s.
func NewResolver(s Searcher, opts ...Option) *Resolver {
	r := &Resolver{
		searcher:     s,
		headerMarker: DefaultHeaderMarker,
		endMarker:    DefaultEndMarker,
		maxPasses:    DefaultMaxPasses,
		keepSources:  true,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve catalogs sources against the candidate files in dir.
//
// Every file in dir is opened and its header parsed before the first search,
// so an unusable directory or file fails with a ConfigurationError and no
// search is made. Sources no description owns are not an error; they are
// listed in Result.Dropped.
func (r *Resolver) Resolve(ctx context.Context, sources []string, dir string) (*Result, error) {
	headers, err := r.preflight(dir)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rn := &run{
		r:       r,
		tree:    tree.New(tree.WithDuplicatePolicy(r.policy)),
		headers: headers,
		records: make(map[string]*Record),
		handles: make(map[string]*Record),
		graph:   dag.New(),
	}
	if rn.root, err = rn.tree.AddNode(RootID, ""); err != nil {
		return nil, err
	}
	for _, src := range sources {
		if _, err := rn.add(src, KindSource, ""); err != nil {
			return nil, fmt.Errorf("loading source %q: %w", src, err)
		}
	}

	for {
		pending := rn.pending()
		if len(pending) == 0 {
			break
		}
		if rn.pass >= r.maxPasses {
			return nil, &NotConvergedError{Passes: rn.pass, Pending: terms(pending)}
		}
		rn.pass++
		if err := rn.step(ctx, dir, pending); err != nil {
			return nil, err
		}
	}

	if !r.keepSources {
		if err := rn.pruneSources(); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("resolution converged", "passes", rn.pass, "handles", len(rn.handles), "dropped", len(rn.dropped))
	return rn.result()
}

func (r *Resolver) preflight(dir string) (map[string]Header, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &ConfigurationError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigurationError{Path: dir, Err: errNotDirectory}
	}
	names, err := candidateFiles(dir)
	if err != nil {
		return nil, &ConfigurationError{Path: dir, Err: err}
	}

	headers := make(map[string]Header, len(names))
	declared := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		h, ok, err := ParseHeaderFile(path, r.headerMarker, r.endMarker)
		if err != nil {
			return nil, &ConfigurationError{Path: path, Err: err}
		}
		if !ok {
			r.logger.Debug("no header declaration, matches ignored", "file", name)
			continue
		}
		// The first file in name order keeps the handle; later ones are
		// treated like header-less files.
		if first, dup := declared[h.Handle]; dup {
			r.logger.Warn("handle declared by more than one file, ignoring later file",
				"handle", h.Handle, "file", name, "kept", first)
			continue
		}
		declared[h.Handle] = name
		headers[name] = h
	}
	return headers, nil
}

func (r *Resolver) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}

// add creates a record and its node under the synthetic root.
func (rn *run) add(term string, kind Kind, file string) (*Record, error) {
	id, err := rn.tree.AddNode(term, rn.root)
	if err != nil {
		return nil, err
	}
	rec := &Record{Node: id, Term: term, Kind: kind, File: file}
	rn.records[id] = rec
	rn.order = append(rn.order, rec)
	if kind == KindDescription {
		rn.handles[term] = rec
	}
	return rec, nil
}

func (rn *run) pending() []*Record {
	var out []*Record
	for _, rec := range rn.order {
		if !rec.locked {
			out = append(out, rec)
		}
	}
	return out
}

// step runs one search pass over the records pending at its start.
// Descriptions discovered during the pass wait for the next one.
func (rn *run) step(ctx context.Context, dir string, pending []*Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("resolution pass %d: %w", rn.pass, err)
	}

	byTerm := make(map[string][]*Record, len(pending))
	for _, rec := range pending {
		byTerm[rec.Term] = append(byTerm[rec.Term], rec)
	}
	searchTerms := terms(pending)
	rn.r.logger.Debug("searching", "pass", rn.pass, "terms", len(searchTerms))

	matches, err := rn.r.searcher.Search(ctx, searchTerms, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("resolution pass %d: %w", rn.pass, ctxErr)
		}
		return fmt.Errorf("%w: pass %d: %w", ErrSearch, rn.pass, err)
	}

	for _, m := range matches {
		recs := unlocked(byTerm[LineToken(m.Text)])
		if len(recs) == 0 {
			continue
		}
		h, ok := rn.headers[m.File]
		if !ok || m.Line <= h.Line {
			continue
		}
		if err := rn.claim(recs, h, m.File); err != nil {
			return err
		}
	}

	for _, rec := range pending {
		if rec.locked {
			continue
		}
		if rec.Kind == KindDescription {
			if err := rn.lock(rec); err != nil {
				return err
			}
			rn.r.emit(Event{Kind: EventTopLevel, Pass: rn.pass, Term: rec.Term})
			continue
		}
		if err := rn.drop(rec); err != nil {
			return err
		}
	}
	rn.order = slices.DeleteFunc(rn.order, func(rec *Record) bool {
		_, kept := rn.records[rec.Node]
		return !kept
	})
	return nil
}

// claim places every record in recs under the description declared by h.
func (rn *run) claim(recs []*Record, h Header, file string) error {
	owner, known := rn.handles[h.Handle]
	if !known {
		var err error
		if owner, err = rn.add(h.Handle, KindDescription, file); err != nil {
			return fmt.Errorf("adding handle %q: %w", h.Handle, err)
		}
		rn.r.logger.Debug("handle added", "handle", h.Handle, "file", file)
		rn.r.emit(Event{Kind: EventHandleAdded, Pass: rn.pass, Term: h.Handle})
	}

	for _, rec := range recs {
		if err := rn.tree.AdoptSubtree(owner.Node, rec.Node); err != nil {
			if errors.Is(err, tree.ErrCycle) {
				return rn.cycle(rec.Term, owner.Term)
			}
			return fmt.Errorf("placing %q under %q: %w", rec.Term, owner.Term, err)
		}
		rec.Owner = owner.Term
		if err := rn.tree.SetHandle(rec.Node, owner.Term); err != nil {
			return err
		}
		if err := rn.lock(rec); err != nil {
			return err
		}

		kind := EventCataloged
		if rec.Kind == KindDescription {
			rn.graph.AddEdge(rec.Term, owner.Term)
			kind = EventNested
		}
		rn.r.emit(Event{Kind: kind, Pass: rn.pass, Term: rec.Term, Owner: owner.Term})
	}
	return nil
}

func (rn *run) lock(rec *Record) error {
	rec.locked = true
	return rn.tree.Lock(rec.Node)
}

func (rn *run) drop(rec *Record) error {
	if err := rn.tree.DeleteLeaf(rec.Node); err != nil {
		return fmt.Errorf("dropping %q: %w", rec.Term, err)
	}
	delete(rn.records, rec.Node)
	rn.dropped = append(rn.dropped, rec.Term)
	rn.r.logger.Debug("no owner found, dropped", "source", rec.Term)
	rn.r.emit(Event{Kind: EventDropped, Pass: rn.pass, Term: rec.Term})
	return nil
}

// cycle reports the loop closed by making owner own child.
func (rn *run) cycle(child, owner string) error {
	rn.graph.AddEdge(child, owner)
	if _, err := rn.graph.TopologicalSort(); err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return &CycleError{Cycle: cycleErr.Cycle}
		}
	}
	return &CycleError{Cycle: []string{child, owner, child}}
}

func (rn *run) pruneSources() error {
	for _, rec := range rn.order {
		if rec.Kind != KindSource {
			continue
		}
		if err := rn.tree.DeleteLeaf(rec.Node); err != nil {
			return fmt.Errorf("pruning source %q: %w", rec.Term, err)
		}
		delete(rn.records, rec.Node)
	}
	rn.order = slices.DeleteFunc(rn.order, func(rec *Record) bool { return rec.Kind == KindSource })
	return nil
}

func unlocked(recs []*Record) []*Record {
	var out []*Record
	for _, rec := range recs {
		if !rec.locked {
			out = append(out, rec)
		}
	}
	return out
}

// terms returns the distinct terms of recs in order.
func terms(recs []*Record) []string {
	seen := make(map[string]bool, len(recs))
	var out []string
	for _, rec := range recs {
		if !seen[rec.Term] {
			seen[rec.Term] = true
			out = append(out, rec.Term)
		}
	}
	return out
}

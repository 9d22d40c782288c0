// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fnlbuild/fnlbuild/internal/catalog"
	"github.com/fnlbuild/fnlbuild/internal/config"
	"github.com/fnlbuild/fnlbuild/internal/issue"
	"github.com/fnlbuild/fnlbuild/internal/sources"
	"github.com/fnlbuild/fnlbuild/internal/toolchain"
	"github.com/fnlbuild/fnlbuild/internal/tree"
)

type (
	// resolveOptions are the flags shared by resolve and build.
	resolveOptions struct {
		showSource     bool
		showSourceSet  bool
		follow         bool
		readFnls       bool
		writeFnls      bool
		catalogSymbols bool
		changed        bool
		fnlDir         string
		search         string
	}

	// session is one pass of collection and resolution. Close removes the
	// temporary candidate directory.
	session struct {
		app     *App
		cfg     *config.Config
		opts    resolveOptions
		workDir string

		collection *sources.Collection
		followed   *sources.Followed
		ids        []string
		// dir holds the candidate build-description files.
		dir    string
		result *catalog.Result

		env     []string
		cleanup []func()
	}
)

func addResolveFlags(cmd *cobra.Command, o *resolveOptions) {
	f := cmd.Flags()
	f.BoolVarP(&o.showSource, "show-source", "s", false, "show source files as leaves of the printed trees (default from config)")
	f.BoolVarP(&o.follow, "follow", "f", false, "also resolve files that include the given sources")
	f.BoolVarP(&o.readFnls, "read-fnls", "r", false, "use the local build-description directory instead of fetching")
	f.BoolVarP(&o.writeFnls, "write-fnls", "w", false, "fetch into the local build-description directory and keep it")
	f.BoolVarP(&o.catalogSymbols, "catalog-symbols", "C", false, "print one symbol per resolution event (-#+@^)")
	f.BoolVar(&o.changed, "changed", false, "use files changed in the git worktree as sources")
	f.StringVar(&o.fnlDir, "fnl-dir", "", "local build-description directory (default from config)")
	f.StringVar(&o.search, "search", "", "search backend: builtin or grep (default from config)")
	cmd.MarkFlagsMutuallyExclusive("read-fnls", "write-fnls")
}

// bind records flag state that cobra only exposes through the command.
func (o *resolveOptions) bind(cmd *cobra.Command) {
	o.showSourceSet = cmd.Flags().Changed("show-source")
}

// newSession collects sources, readies the candidate directory and
// resolves. On error everything created so far is removed.
func (a *App) newSession(ctx context.Context, cfg *config.Config, o resolveOptions, paths []string) (s *session, err error) {
	s = &session{app: a, cfg: cfg, opts: o}
	defer func() {
		if err != nil {
			s.Close()
			s = nil
		}
	}()

	if s.workDir, err = os.Getwd(); err != nil {
		return nil, err
	}
	if err = s.collect(ctx, paths); err != nil {
		return nil, err
	}
	if err = s.candidates(ctx); err != nil {
		return nil, err
	}
	if err = s.resolve(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the session's temporary files.
func (s *session) Close() {
	for _, fn := range s.cleanup {
		fn()
	}
	s.cleanup = nil
}

func (s *session) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.workDir, p)
}

func (s *session) collect(ctx context.Context, paths []string) error {
	logger := s.app.logger
	opts := sources.Options{
		ExcludeDirs:  s.cfg.ExcludeDirs,
		ExcludeFiles: s.cfg.ExcludeFiles,
		Logger:       logger,
	}

	var err error
	if s.opts.changed {
		root := s.workDir
		if len(paths) > 0 {
			root = s.abs(paths[0])
		}
		s.collection, err = sources.Changed(root, opts)
	} else {
		if len(paths) == 0 {
			paths = []string{"."}
		}
		s.collection, err = sources.Collect(paths, opts)
	}
	if err != nil {
		return issue.WrapWithContext(err, "collect sources", strings.Join(paths, " "))
	}
	c := s.collection
	logger.Debug("collected sources",
		"files", c.IncludedFiles, "excludedFiles", c.ExcludedFiles,
		"dirs", c.IncludedDirs, "excludedDirs", c.ExcludedDirs)
	if len(c.Sources) == 0 {
		return errNoSources
	}
	s.ids = c.Sources

	if !s.opts.follow {
		return nil
	}
	indexPath := s.abs(s.cfg.Follow.IncludesFile)
	idx, err := sources.LoadIncludeIndex(indexPath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read includes index").
			WithResource(indexPath).
			WithSuggestion("Set follow.includes_file to an index of \"file:#include\" lines").
			Wrap(err).
			BuildError()
	}
	if s.followed, err = sources.Follow(ctx, s.ids, idx); err != nil {
		return err
	}
	logger.Debug("followed includes", "added", s.followed.Added, "rounds", s.followed.Rounds)
	s.ids = s.followed.Sources
	return nil
}

func (s *session) candidates(ctx context.Context) error {
	local := s.cfg.FnlDir
	if s.opts.fnlDir != "" {
		local = s.opts.fnlDir
	}
	local = s.abs(local)

	switch {
	case s.opts.readFnls:
		info, err := os.Stat(local)
		if err != nil || !info.IsDir() {
			return issue.NewErrorContext().
				WithOperation("read build descriptions").
				WithResource(local).
				WithIssue(issue.FnlDirMissingId).
				WithSuggestion("Populate it with --write-fnls").
				Wrap(errFnlDirMissing).
				BuildError()
		}
		s.dir = local
		return nil

	case s.opts.writeFnls:
		if err := toolchain.ClearDescriptions(local); err != nil {
			return err
		}
		s.dir = local

	default:
		tmp, err := os.MkdirTemp("", "fnlbuild-*")
		if err != nil {
			return fmt.Errorf("creating temporary directory: %w", err)
		}
		s.cleanup = append(s.cleanup, func() {
			if err := os.RemoveAll(tmp); err != nil {
				s.app.logger.Warn("removing temporary directory", "dir", tmp, "err", err)
			}
		})
		s.dir = tmp
	}
	return s.fetch(ctx)
}

func (s *session) fetch(ctx context.Context) error {
	env, err := s.environment(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	names, err := s.app.NewFetcher(s.cfg, env, s.app.logger).Fetch(ctx, s.dir)
	if err != nil {
		return issue.WrapWithContext(err, "fetch build descriptions", s.dir)
	}
	s.app.logger.Info("fetched build descriptions", "count", len(names), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// environment prepares the build environment once per session.
func (s *session) environment(ctx context.Context) ([]string, error) {
	if s.env != nil {
		return s.env, nil
	}
	e := &toolchain.Environment{
		Vars:        s.cfg.Env.Vars,
		EnvFiles:    s.cfg.Env.EnvFiles,
		SetupScript: s.cfg.Env.SetupScript,
		Capture:     s.cfg.Env.Capture,
		Dir:         s.workDir,
		Stdout:      s.app.stderr,
		Stderr:      s.app.stderr,
		Logger:      s.app.logger,
	}
	env, err := e.Prepare(ctx)
	if err != nil {
		return nil, issue.WrapWithContext(err, "prepare build environment", s.workDir)
	}
	s.env = env
	return env, nil
}

func (s *session) resolve(ctx context.Context) error {
	srch, err := searcher(s.cfg, s.opts.search)
	if err != nil {
		return err
	}
	cat := s.cfg.Catalog
	showSources := cat.ShowSources
	if s.opts.showSourceSet {
		showSources = s.opts.showSource
	}
	policy := tree.DuplicateRename
	if cat.DuplicateIDs == config.DuplicateReject {
		policy = tree.DuplicateReject
	}

	opts := []catalog.Option{
		catalog.WithHeaderMarker(cat.HeaderMarker),
		catalog.WithEndMarker(cat.EndMarker),
		catalog.WithMaxPasses(cat.MaxPasses),
		catalog.WithTimeout(time.Duration(cat.TimeoutSeconds) * time.Second),
		catalog.WithSources(showSources),
		catalog.WithDuplicatePolicy(policy),
		catalog.WithLogger(s.app.logger),
	}
	marks := 0
	if s.opts.catalogSymbols || s.cfg.UI.CatalogSymbols {
		opts = append(opts, catalog.WithObserver(func(ev catalog.Event) {
			fmt.Fprint(s.app.stderr, ev.Kind.Symbol())
			marks++
		}))
	}

	s.result, err = catalog.NewResolver(srch, opts...).Resolve(ctx, s.ids, s.dir)
	if marks > 0 {
		fmt.Fprintln(s.app.stderr)
	}
	if err != nil {
		return issue.WrapWithContext(err, "resolve build handles", s.dir)
	}
	for _, src := range s.result.Dropped {
		s.app.logger.Debug("no build description owns source", "source", src)
	}
	if n := len(s.result.Dropped); n > 0 {
		s.app.logger.Warn("sources without a build description were dropped", "count", n)
	}
	s.app.logger.Debug("resolved", "handles", len(s.result.Files), "branches", len(s.result.Branches), "passes", s.result.Passes)
	return nil
}

// label renders a result node for the printed trees.
func (s *session) label(n tree.Node) string {
	rec, ok := s.result.Record(n.ID)
	switch {
	case !ok:
		return SubtitleStyle.Render(n.ID)
	case rec.Kind == catalog.KindDescription:
		return HandleStyle.Render(rec.Term) + SubtitleStyle.Render(": "+rec.File)
	default:
		return rec.Term
	}
}

func (s *session) printTrees(w io.Writer) error {
	if s.followed != nil && s.app.verbose {
		fmt.Fprintln(w, TitleStyle.Render("Included by:"))
		fmt.Fprintln(w, branchBoxStyle.Render(strings.TrimRight(s.followed.Tree.String(), "\n")))
	}
	for _, b := range s.result.Branches {
		out, err := s.result.Tree.RenderFunc(b.Node, s.label)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, branchBoxStyle.Render(strings.TrimRight(out, "\n")))
	}
	return nil
}

func (s *session) printSummary(w io.Writer) {
	fmt.Fprintf(w, "%s %d sources, %d handles in %d branches, %d dropped (%d passes)\n",
		TitleStyle.Render("Resolved:"),
		len(s.ids), len(s.result.Files), len(s.result.Branches), len(s.result.Dropped), s.result.Passes)
}

func (s *session) printOrder(w io.Writer) {
	fmt.Fprintln(w, TitleStyle.Render("Build order:"))
	n := 0
	for _, b := range s.result.Branches {
		for _, h := range b.Order {
			n++
			fmt.Fprintf(w, "%3d. %s %s\n", n, HandleStyle.Render(h), SubtitleStyle.Render(s.result.Files[h]))
		}
	}
}

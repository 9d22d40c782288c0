// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fnlbuild/fnlbuild/internal/config"
	"github.com/fnlbuild/fnlbuild/internal/issue"
	"github.com/fnlbuild/fnlbuild/internal/toolchain"
	"github.com/fnlbuild/fnlbuild/internal/tui"
	"github.com/fnlbuild/fnlbuild/internal/watch"
)

// RunLogName is the file in the results directory that receives all build
// output.
const RunLogName = "stdout.log"

type buildOptions struct {
	resolveOptions
	list    bool
	logOnly bool
	watch   bool
	pick    bool
	only    []string
}

func newBuildCommand(app *App) *cobra.Command {
	var o buildOptions
	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Resolve and build the handles affected by the given sources",
		Long: `Resolve the given sources like 'fnlbuild resolve', then run the build
tool once per handle, leaves first, and link the produced binaries into
the results directory. Binaries of top-level handles are linked at the
top of the results directory, all others under its support directory.`,
		Example: `  fnlbuild build src/core
  fnlbuild build -r --only core.x
  fnlbuild build --watch src`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.bind(cmd)
			err := app.runBuild(cmd, o, args)
			if err != nil {
				return &ExitError{Code: exitCode(err), Err: asServiceError(err)}
			}
			return nil
		},
	}
	addResolveFlags(cmd, &o.resolveOptions)
	f := cmd.Flags()
	f.BoolVarP(&o.list, "list", "l", false, "print the trees and build order without building")
	f.BoolVarP(&o.logOnly, "log-only", "L", false, "write build output only to the run log (default from config)")
	f.BoolVar(&o.watch, "watch", false, "rebuild whenever a watched source changes")
	f.BoolVar(&o.pick, "pick", false, "choose the handles to build interactively")
	f.StringSliceVar(&o.only, "only", nil, "build only these handles")
	cmd.MarkFlagsMutuallyExclusive("pick", "only")
	cmd.MarkFlagsMutuallyExclusive("pick", "watch")
	cmd.MarkFlagsMutuallyExclusive("list", "watch")
	return cmd
}

func (a *App) runBuild(cmd *cobra.Command, o buildOptions, paths []string) error {
	ctx := cmd.Context()
	loaded, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	if !cmd.Flags().Changed("log-only") {
		o.logOnly = cfg.UI.LogOnly
	}
	if o.pick && !a.interactive() {
		return errNotTerminal
	}

	err = a.buildOnce(ctx, cfg, o, paths)
	if !o.watch {
		return err
	}
	if err != nil {
		a.reportError(err)
	}
	return a.watchAndBuild(ctx, cfg, o, paths)
}

// buildOnce runs one full resolve and build.
func (a *App) buildOnce(ctx context.Context, cfg *config.Config, o buildOptions, paths []string) error {
	s, err := a.newSession(ctx, cfg, o.resolveOptions, paths)
	if err != nil {
		return err
	}
	defer s.Close()

	if a.verbose || o.list {
		if err := s.printTrees(a.stdout); err != nil {
			return err
		}
	}
	if o.list {
		s.printOrder(a.stdout)
		s.printSummary(a.stdout)
		return nil
	}

	targets, err := a.selectHandles(cfg, s, o)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		a.logger.Warn("nothing to build")
		return nil
	}
	return a.runTargets(ctx, s, o, targets)
}

// selectHandles applies --only and --pick to the build order.
func (a *App) selectHandles(cfg *config.Config, s *session, o buildOptions) ([]string, error) {
	order := s.result.BuildOrder()
	if len(o.only) > 0 {
		for _, h := range o.only {
			if slices.Contains(order, h) {
				continue
			}
			ec := issue.NewErrorContext().
				WithOperation("select handles").
				WithResource(h).
				WithIssue(issue.UnknownHandleId)
			if near := tui.Suggest(h, order, 3); len(near) > 0 {
				ec.WithSuggestion("Did you mean: " + strings.Join(near, ", "))
			}
			return nil, ec.Wrap(errUnknownHandle).BuildError()
		}
		order = slices.DeleteFunc(order, func(h string) bool { return !slices.Contains(o.only, h) })
	}

	if o.pick {
		choices := make([]tui.Choice, len(order))
		for i, h := range order {
			choices[i] = tui.Choice{Value: h, Label: h + "  " + s.result.Files[h]}
		}
		picked, err := a.Pick("Handles to build", choices, a.tuiConfig(cfg))
		if err != nil {
			return nil, err
		}
		order = picked
	}
	return order, nil
}

// runTargets builds targets in order, logging all output to the run log,
// then links the produced binaries.
func (a *App) runTargets(ctx context.Context, s *session, o buildOptions, targets []string) error {
	cfg := s.cfg
	env, err := s.environment(ctx)
	if err != nil {
		return err
	}
	results := s.abs(cfg.ResultsDir)
	protected := append([]string{s.workDir}, s.collection.Paths...)
	support, err := toolchain.PrepareResults(results, cfg.SupportDir, protected...)
	if errors.Is(err, toolchain.ErrUnsafeDir) {
		return issue.NewErrorContext().
			WithOperation("prepare results directory").
			WithResource(results).
			WithSuggestion("Point results_dir at a dedicated directory such as build_results").
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return issue.WrapWithContext(err, "prepare results directory", results)
	}
	logPath := filepath.Join(results, RunLogName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			a.logger.Warn("closing run log", "path", logPath, "err", err)
		}
	}()

	builder := a.NewBuilder(cfg, s.workDir, a.verbose, a.logger)
	scanner := toolchain.NewOutputScanner()
	for i, h := range targets {
		target := h
		if cfg.Build.PassFileName {
			target = filepath.Join(s.dir, s.result.Files[h])
		}
		fmt.Fprintf(a.stdout, "%s %s\n", TitleStyle.Render(fmt.Sprintf("[%d/%d]", i+1, len(targets))), HandleStyle.Render(h))
		fmt.Fprintf(logFile, "==> %s (%s)\n", h, time.Now().Format(time.RFC3339))

		scanner.Start(h)
		err := builder.Build(ctx, target, env, func(line string) {
			fmt.Fprintln(logFile, line)
			scanner.Scan(line)
			if !o.logOnly {
				a.printBuildLine(a.stdout, line)
			}
		})
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("build").
				WithResource(h).
				WithSuggestion("See " + logPath + " for the full build output").
				Wrap(err).
				BuildError()
		}
	}

	links, err := toolchain.LinkBinaries(results, support, scanner.Binaries(), s.result.Tops())
	if err != nil {
		return issue.WrapWithContext(err, "link binaries", results)
	}
	for _, l := range links {
		a.logger.Debug("linked binary", "link", l.Path, "target", l.Target, "top", l.Top)
	}
	fmt.Fprintln(a.stdout, SuccessStyle.Render(fmt.Sprintf("Built %d handles, linked %d binaries into %s", len(targets), len(links), cfg.ResultsDir)))
	return nil
}

func (a *App) printBuildLine(w io.Writer, line string) {
	if strings.HasPrefix(strings.TrimSpace(line), "BUILDING") {
		line = buildingLineStyle.Render(line)
	}
	fmt.Fprintln(w, line)
}

// reportError prints err without ending the process, as watch mode keeps
// running after a failed build.
func (a *App) reportError(err error) {
	var svcErr *ServiceError
	if !errors.As(asServiceError(err), &svcErr) {
		return
	}
	renderServiceError(a.stderr, svcErr, a.verbose, a.logger)
}

func (a *App) watchAndBuild(ctx context.Context, cfg *config.Config, o buildOptions, paths []string) error {
	roots := paths
	if len(roots) == 0 {
		roots = []string{"."}
	}
	w, err := watch.New(watch.Options{
		Roots:    roots,
		Patterns: cfg.Watch.Patterns,
		Ignore:   cfg.Watch.Ignore,
		Debounce: time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond,
		Logger:   a.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			a.logger.Info("change detected, rebuilding", "files", len(changed))
			if err := a.buildOnce(ctx, cfg, o, paths); err != nil {
				a.reportError(err)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	a.logger.Info("watching for changes", "roots", roots)
	return w.Run(ctx)
}

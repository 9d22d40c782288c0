// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/fnlbuild/fnlbuild/internal/catalog"
	"github.com/fnlbuild/fnlbuild/internal/config"
	"github.com/fnlbuild/fnlbuild/internal/issue"
	"github.com/fnlbuild/fnlbuild/internal/toolchain"
	"github.com/fnlbuild/fnlbuild/internal/tui"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and
	// reaches configuration, the toolchain and the terminal through it.
	App struct {
		Config     ConfigProvider
		NewFetcher FetcherFactory
		NewBuilder BuilderFactory
		Pick       Picker
		Page       Pager

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		logger *log.Logger

		// global flags
		cfgFile string
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     ConfigProvider
		NewFetcher FetcherFactory
		NewBuilder BuilderFactory
		Pick       Picker
		Page       Pager
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	// Fetcher populates a directory with build-description files.
	Fetcher interface {
		Fetch(ctx context.Context, dir string) ([]string, error)
	}

	// Builder runs the build tool for one target.
	Builder interface {
		Build(ctx context.Context, target string, env []string, onLine func(string)) error
	}

	// FetcherFactory creates the Fetcher for a run.
	FetcherFactory func(cfg *config.Config, env []string, logger *log.Logger) Fetcher

	// BuilderFactory creates the Builder for a run. verbose selects the
	// verbose build command line.
	BuilderFactory func(cfg *config.Config, workDir string, verbose bool, logger *log.Logger) Builder

	// Picker asks the user to select handles.
	Picker func(title string, choices []tui.Choice, cfg tui.Config) ([]string, error)

	// Pager shows long text to the user.
	Pager func(title, content string, cfg tui.Config) error
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:     deps.Config,
		NewFetcher: deps.NewFetcher,
		NewBuilder: deps.NewBuilder,
		Pick:       deps.Pick,
		Page:       deps.Page,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.NewFetcher == nil {
		app.NewFetcher = defaultFetcher
	}
	if app.NewBuilder == nil {
		app.NewBuilder = defaultBuilder
	}
	if app.Pick == nil {
		app.Pick = tui.PickMany
	}
	if app.Page == nil {
		app.Page = tui.Page
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	app.logger = log.NewWithOptions(app.stderr, log.Options{
		Prefix: "fnlbuild",
		Level:  log.InfoLevel,
	})
	return app
}

func defaultFetcher(cfg *config.Config, env []string, logger *log.Logger) Fetcher {
	return &toolchain.Fetcher{
		ListCommand:  cfg.Fetch.ListCommand,
		FetchCommand: cfg.Fetch.FetchCommand,
		Env:          env,
		Logger:       logger,
	}
}

func defaultBuilder(cfg *config.Config, workDir string, verbose bool, logger *log.Logger) Builder {
	command := cfg.Build.Command
	if verbose {
		command = cfg.Build.VerboseCommand
	}
	return &toolchain.Builder{
		Command: command,
		UsePTY:  cfg.Build.UsePTY,
		Dir:     workDir,
		Logger:  logger,
	}
}

// loadConfig loads the configuration selected by --config and applies the
// ui.verbose default.
func (a *App) loadConfig(ctx context.Context) (*config.Loaded, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.cfgFile, WorkDir: wd})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	if loaded.Config.UI.Verbose {
		a.verbose = true
	}
	if a.verbose {
		a.logger.SetLevel(log.DebugLevel)
	}
	if loaded.Path != "" {
		a.logger.Debug("loaded configuration", "path", loaded.Path)
	}
	return loaded, nil
}

// searcher picks the catalog searcher; override replaces the configured
// backend when set.
func searcher(cfg *config.Config, override string) (catalog.Searcher, error) {
	backend := cfg.Catalog.SearchBackend
	if override != "" {
		backend = config.SearchBackend(override)
	}
	if ok, errs := backend.IsValid(); !ok {
		return nil, errs[0]
	}
	if backend == config.SearchGrep {
		return catalog.NewGrepSearcher(cfg.Catalog.GrepPath), nil
	}
	return catalog.NewScanSearcher(), nil
}

func (a *App) tuiConfig(cfg *config.Config) tui.Config {
	tc := tui.DefaultConfig()
	tc.Theme = tui.Theme(cfg.UI.Theme)
	tc.Input = a.stdin
	tc.Output = a.stderr
	if f, ok := a.stderr.(*os.File); ok {
		tc.Width = tui.TerminalWidth(f)
	}
	return tc
}

// interactive reports whether prompts can be shown.
func (a *App) interactive() bool {
	in, ok := a.stdin.(*os.File)
	if !ok || !tui.IsTerminal(in) {
		return false
	}
	out, ok := a.stderr.(*os.File)
	return ok && tui.IsTerminal(out)
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand creates the fnlbuild command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fnlbuild",
		Short: "Find and build the legacy build descriptions affected by source changes",
		Long: TitleStyle.Render("fnlbuild") + SubtitleStyle.Render(" - find and build what your changes touch") + `

fnlbuild searches the build-description (fnl) files for the source files
you changed, follows descriptions that list other descriptions up to the
top-level ones, and runs the build tool over them, leaves first.

` + SubtitleStyle.Render("Examples:") + `
  fnlbuild resolve src/core      Print the affected handles as trees
  fnlbuild build src/core        Build them and link the binaries
  fnlbuild build --changed       Build what the git worktree changed
  fnlbuild log                   Page through the last run log
  fnlbuild config show           Show the effective configuration`,
	}
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/fnlbuild/config.cue, then ./fnlbuild.cue)")

	rootCmd.AddCommand(newResolveCommand(app))
	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newLogCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's exit code.
func Execute() {
	os.Exit(Run(context.Background(), NewApp(Dependencies{})))
}

// Run executes the command tree for app with os.Args and returns the exit
// code.
func Run(ctx context.Context, app *App) int {
	err := fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.errorHandler),
	)
	if err == nil {
		return 0
	}
	// Errors that never reached a handler come from flag or argument parsing.
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return ExitUsage
	}
	return exitCode(err)
}

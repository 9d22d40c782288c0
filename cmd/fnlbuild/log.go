// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fnlbuild/fnlbuild/internal/issue"
)

func newLogCommand(app *App) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the run log of the last build",
		Long: `Show the run log that 'fnlbuild build' appends to in the results
directory. On a terminal the log opens in a pager scrolled to the end;
otherwise, or with --plain, it is written to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return asServiceError(app.runLog(cmd, plain))
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "write the log to stdout instead of paging it")
	return cmd
}

func (a *App) runLog(cmd *cobra.Command, plain bool) error {
	loaded, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	path := filepath.Join(loaded.Config.ResultsDir, RunLogName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return issue.NewErrorContext().
			WithOperation("read run log").
			WithResource(path).
			WithSuggestion("Run 'fnlbuild build' first").
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return fmt.Errorf("reading run log: %w", err)
	}

	if plain || !a.interactive() {
		_, err := a.stdout.Write(data)
		return err
	}
	return a.Page(path, string(data), a.tuiConfig(loaded.Config))
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fnlbuild/fnlbuild/internal/config"
)

// newConfigCommand creates the `fnlbuild config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fnlbuild configuration",
		Long: `Manage fnlbuild configuration.

Configuration is read from the first of:
  - the file given with --config
  - config.cue in the config directory
      Linux: ~/.config/fnlbuild/config.cue
      macOS: ~/Library/Application Support/fnlbuild/config.cue
      Windows: %APPDATA%\fnlbuild\config.cue
  - fnlbuild.cue in the current directory

FNLBUILD_* environment variables override file values, for example
FNLBUILD_BUILD_COMMAND or FNLBUILD_CATALOG_SEARCH_BACKEND.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asServiceError(showConfig(cmd, app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.loadConfig(cmd.Context())
			if err != nil {
				return asServiceError(err)
			}
			if loaded.Path != "" {
				fmt.Fprintln(app.stdout, loaded.Path)
				return nil
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return asServiceError(err)
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("(not created)"), dir)
			return nil
		},
	})

	var initDir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.CreateDefault(initDir)
			if err != nil {
				return asServiceError(err)
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Configuration file: ")+p)
			return nil
		},
	}
	initCmd.Flags().StringVar(&initDir, "dir", "", "directory to create config.cue in (default: the config directory)")
	cfgCmd.AddCommand(initCmd)

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asServiceError(dumpConfig(cmd, app, format))
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", "cue", "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func dumpConfig(cmd *cobra.Command, app *App, format string) error {
	loaded, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	switch format {
	case "cue":
		fmt.Fprint(app.stdout, config.GenerateCUE(loaded.Config))
	case "toml":
		out, err := config.DumpTOML(loaded.Config)
		if err != nil {
			return err
		}
		fmt.Fprint(app.stdout, out)
	default:
		return fmt.Errorf("unknown format %q (valid: cue, toml)", format)
	}
	return nil
}

func showConfig(cmd *cobra.Command, app *App) error {
	loaded, err := app.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	cfg := loaded.Config
	source := loaded.Path
	if source == "" {
		source = "(defaults)"
	}

	w := app.stdout
	row := func(k string, v any) {
		fmt.Fprintf(w, "  %-22s %v\n", k, v)
	}
	fmt.Fprintln(w, TitleStyle.Render("Configuration"), SubtitleStyle.Render(source))
	fmt.Fprintln(w)
	row("fnl_dir", cfg.FnlDir)
	row("results_dir", cfg.ResultsDir)
	row("support_dir", cfg.SupportDir)
	row("exclude_dirs", cfg.ExcludeDirs)
	row("exclude_files", cfg.ExcludeFiles)
	fmt.Fprintln(w, SubtitleStyle.Render("catalog"))
	row("header_marker", cfg.Catalog.HeaderMarker)
	row("end_marker", cfg.Catalog.EndMarker)
	row("max_passes", cfg.Catalog.MaxPasses)
	row("timeout_seconds", cfg.Catalog.TimeoutSeconds)
	row("show_sources", cfg.Catalog.ShowSources)
	row("duplicate_ids", cfg.Catalog.DuplicateIDs)
	row("search_backend", cfg.Catalog.SearchBackend)
	fmt.Fprintln(w, SubtitleStyle.Render("fetch"))
	row("list_command", cfg.Fetch.ListCommand)
	row("fetch_command", cfg.Fetch.FetchCommand)
	fmt.Fprintln(w, SubtitleStyle.Render("build"))
	row("command", cfg.Build.Command)
	row("verbose_command", cfg.Build.VerboseCommand)
	row("pass_file_name", cfg.Build.PassFileName)
	row("use_pty", cfg.Build.UsePTY)
	fmt.Fprintln(w, SubtitleStyle.Render("env"))
	row("vars", len(cfg.Env.Vars))
	row("env_files", cfg.Env.EnvFiles)
	row("setup_script", cfg.Env.SetupScript != "")
	row("capture", cfg.Env.Capture)
	return nil
}

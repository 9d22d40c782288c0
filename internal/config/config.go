// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/fnlbuild/fnlbuild/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "fnlbuild"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is looked up in the working directory when the config
	// directory has no file.
	LocalConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment variable overrides, e.g.
	// FNLBUILD_BUILD_COMMAND.
	EnvPrefix = "FNLBUILD"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the fnlbuild configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions reads defaults, the first config file found, and
// FNLBUILD_* environment overrides, in increasing precedence.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	defaults := DefaultConfig()
	setDefaults(v, defaults)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, required, err := findConfigFile(opts)
	if err != nil {
		return nil, "", err
	}

	var vars map[string]string
	switch {
	case path == "":
	case required && !fileExists(path):
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			WithSuggestion("Use 'fnlbuild config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	default:
		vars, err = loadCUEIntoViper(v, path)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'fnlbuild config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	// Viper lower-cases map keys, so env.vars bypasses it.
	cfg.Env.Vars = maps.Clone(defaults.Env.Vars)
	maps.Copy(cfg.Env.Vars, vars)

	if ok, errs := cfg.IsValid(); !ok {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check FNLBUILD_* environment variables for invalid values").
			Wrap(errors.Join(errs...)).
			BuildError()
	}
	return &cfg, path, nil
}

// findConfigFile returns the file to load and whether it must exist.
func findConfigFile(opts LoadOptions) (string, bool, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, true, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", false, err
		}
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, false, nil
	}
	if p := filepath.Join(opts.WorkDir, LocalConfigFile); fileExists(p) {
		return p, false, nil
	}
	return "", false, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("fnl_dir", d.FnlDir)
	v.SetDefault("results_dir", d.ResultsDir)
	v.SetDefault("support_dir", d.SupportDir)
	v.SetDefault("exclude_dirs", d.ExcludeDirs)
	v.SetDefault("exclude_files", d.ExcludeFiles)
	v.SetDefault("catalog.header_marker", d.Catalog.HeaderMarker)
	v.SetDefault("catalog.end_marker", d.Catalog.EndMarker)
	v.SetDefault("catalog.max_passes", d.Catalog.MaxPasses)
	v.SetDefault("catalog.timeout_seconds", d.Catalog.TimeoutSeconds)
	v.SetDefault("catalog.show_sources", d.Catalog.ShowSources)
	v.SetDefault("catalog.duplicate_ids", string(d.Catalog.DuplicateIDs))
	v.SetDefault("catalog.search_backend", string(d.Catalog.SearchBackend))
	v.SetDefault("catalog.grep_path", d.Catalog.GrepPath)
	v.SetDefault("follow.includes_file", d.Follow.IncludesFile)
	v.SetDefault("fetch.list_command", d.Fetch.ListCommand)
	v.SetDefault("fetch.fetch_command", d.Fetch.FetchCommand)
	v.SetDefault("env.env_files", d.Env.EnvFiles)
	v.SetDefault("env.setup_script", d.Env.SetupScript)
	v.SetDefault("env.capture", d.Env.Capture)
	v.SetDefault("build.command", d.Build.Command)
	v.SetDefault("build.verbose_command", d.Build.VerboseCommand)
	v.SetDefault("build.pass_file_name", d.Build.PassFileName)
	v.SetDefault("build.use_pty", d.Build.UsePTY)
	v.SetDefault("watch.patterns", d.Watch.Patterns)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMillis)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.log_only", d.UI.LogOnly)
	v.SetDefault("ui.catalog_symbols", d.UI.CatalogSymbols)
	v.SetDefault("ui.theme", d.UI.Theme)
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. The env.vars map is returned separately.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, formatCUEError(err, path)
	}

	var vars map[string]string
	if env, ok := configMap["env"].(map[string]any); ok {
		if raw, ok := env["vars"].(map[string]any); ok {
			vars = make(map[string]string, len(raw))
			for k, val := range raw {
				vars[k] = fmt.Sprint(val)
			}
			delete(env, "vars")
		}
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return vars, nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefault writes the default config into dir (ConfigDir when empty)
// unless a config file is already there. It returns the file path.
func CreateDefault(dir string) (string, error) {
	cfgPath, err := configFilePath(dir)
	if err != nil {
		return "", err
	}
	if fileExists(cfgPath) {
		return cfgPath, nil
	}
	return cfgPath, writeCUE(cfgPath, DefaultConfig())
}

// Save writes cfg into dir (ConfigDir when empty) and returns the file path.
func Save(cfg *Config, dir string) (string, error) {
	cfgPath, err := configFilePath(dir)
	if err != nil {
		return "", err
	}
	return cfgPath, writeCUE(cfgPath, cfg)
}

func configFilePath(dir string) (string, error) {
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

func writeCUE(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DumpTOML renders cfg as TOML.
func DumpTOML(cfg *Config) (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return buf.String(), nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// fnlbuild configuration file\n\n")
	fmt.Fprintf(&sb, "fnl_dir:     %q\n", cfg.FnlDir)
	fmt.Fprintf(&sb, "results_dir: %q\n", cfg.ResultsDir)
	fmt.Fprintf(&sb, "support_dir: %q\n", cfg.SupportDir)
	writeCUEList(&sb, "", "exclude_dirs", cfg.ExcludeDirs)
	writeCUEList(&sb, "", "exclude_files", cfg.ExcludeFiles)

	sb.WriteString("\ncatalog: {\n")
	fmt.Fprintf(&sb, "\theader_marker: %q\n", cfg.Catalog.HeaderMarker)
	fmt.Fprintf(&sb, "\tend_marker: %q\n", cfg.Catalog.EndMarker)
	fmt.Fprintf(&sb, "\tmax_passes: %d\n", cfg.Catalog.MaxPasses)
	fmt.Fprintf(&sb, "\ttimeout_seconds: %d\n", cfg.Catalog.TimeoutSeconds)
	fmt.Fprintf(&sb, "\tshow_sources: %v\n", cfg.Catalog.ShowSources)
	fmt.Fprintf(&sb, "\tduplicate_ids: %q\n", cfg.Catalog.DuplicateIDs)
	fmt.Fprintf(&sb, "\tsearch_backend: %q\n", cfg.Catalog.SearchBackend)
	fmt.Fprintf(&sb, "\tgrep_path: %q\n", cfg.Catalog.GrepPath)
	sb.WriteString("}\n")

	sb.WriteString("\nfollow: {\n")
	fmt.Fprintf(&sb, "\tincludes_file: %q\n", cfg.Follow.IncludesFile)
	sb.WriteString("}\n")

	sb.WriteString("\nfetch: {\n")
	fmt.Fprintf(&sb, "\tlist_command: %q\n", cfg.Fetch.ListCommand)
	fmt.Fprintf(&sb, "\tfetch_command: %q\n", cfg.Fetch.FetchCommand)
	sb.WriteString("}\n")

	sb.WriteString("\nenv: {\n")
	if len(cfg.Env.Vars) > 0 {
		sb.WriteString("\tvars: {\n")
		for _, k := range slices.Sorted(maps.Keys(cfg.Env.Vars)) {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", k, cfg.Env.Vars[k])
		}
		sb.WriteString("\t}\n")
	}
	writeCUEList(&sb, "\t", "env_files", cfg.Env.EnvFiles)
	if cfg.Env.SetupScript != "" {
		fmt.Fprintf(&sb, "\tsetup_script: %q\n", cfg.Env.SetupScript)
	}
	writeCUEList(&sb, "\t", "capture", cfg.Env.Capture)
	sb.WriteString("}\n")

	sb.WriteString("\nbuild: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Build.Command)
	fmt.Fprintf(&sb, "\tverbose_command: %q\n", cfg.Build.VerboseCommand)
	fmt.Fprintf(&sb, "\tpass_file_name: %v\n", cfg.Build.PassFileName)
	fmt.Fprintf(&sb, "\tuse_pty: %v\n", cfg.Build.UsePTY)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	writeCUEList(&sb, "\t", "patterns", cfg.Watch.Patterns)
	writeCUEList(&sb, "\t", "ignore", cfg.Watch.Ignore)
	fmt.Fprintf(&sb, "\tdebounce_ms: %d\n", cfg.Watch.DebounceMillis)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tlog_only: %v\n", cfg.UI.LogOnly)
	fmt.Fprintf(&sb, "\tcatalog_symbols: %v\n", cfg.UI.CatalogSymbols)
	fmt.Fprintf(&sb, "\ttheme: %q\n", cfg.UI.Theme)
	sb.WriteString("}\n")

	return sb.String()
}

func writeCUEList(sb *strings.Builder, indent, key string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s%s: []\n", indent, key)
		return
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, key)
	for _, it := range items {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, it)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}

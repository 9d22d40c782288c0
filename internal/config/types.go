// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
)

const (
	// DuplicateRename disambiguates colliding node IDs by appending ".".
	DuplicateRename DuplicatePolicy = "rename"
	// DuplicateReject fails on colliding node IDs.
	DuplicateReject DuplicatePolicy = "reject"

	// SearchBuiltin scans candidate files in-process.
	SearchBuiltin SearchBackend = "builtin"
	// SearchGrep runs an external grep.
	SearchGrep SearchBackend = "grep"

	// ColorSchemeAuto detects the terminal background.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces the dark palette.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces the light palette.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidDuplicatePolicy is the sentinel wrapped by InvalidDuplicatePolicyError.
	ErrInvalidDuplicatePolicy = errors.New("invalid duplicate policy")
	// ErrInvalidSearchBackend is the sentinel wrapped by InvalidSearchBackendError.
	ErrInvalidSearchBackend = errors.New("invalid search backend")
	// ErrInvalidColorScheme is the sentinel wrapped by InvalidColorSchemeError.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidCatalogConfig is the sentinel wrapped by InvalidCatalogConfigError.
	ErrInvalidCatalogConfig = errors.New("invalid catalog config")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// DuplicatePolicy selects how the catalog tree treats colliding IDs.
	DuplicatePolicy string

	// InvalidDuplicatePolicyError is returned for an unknown DuplicatePolicy.
	InvalidDuplicatePolicyError struct {
		Value DuplicatePolicy
	}

	// SearchBackend selects the candidate file searcher.
	SearchBackend string

	// InvalidSearchBackendError is returned for an unknown SearchBackend.
	InvalidSearchBackendError struct {
		Value SearchBackend
	}

	// ColorScheme sets the output palette.
	ColorScheme string

	// InvalidColorSchemeError is returned for an unknown ColorScheme.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidCatalogConfigError collects CatalogConfig field errors.
	InvalidCatalogConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects Config field errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// FnlDir is the local directory for build-description files used by
		// --read-fnls and --write-fnls.
		FnlDir string `json:"fnl_dir" mapstructure:"fnl_dir" toml:"fnl_dir"`
		// ResultsDir receives links to the built binaries.
		ResultsDir string `json:"results_dir" mapstructure:"results_dir" toml:"results_dir"`
		// SupportDir is the results subdirectory for non-top-level binaries.
		SupportDir string `json:"support_dir" mapstructure:"support_dir" toml:"support_dir"`
		// ExcludeDirs are regular expressions for directories to skip.
		ExcludeDirs []string `json:"exclude_dirs" mapstructure:"exclude_dirs" toml:"exclude_dirs"`
		// ExcludeFiles are regular expressions for file names to skip.
		ExcludeFiles []string      `json:"exclude_files" mapstructure:"exclude_files" toml:"exclude_files"`
		Catalog      CatalogConfig `json:"catalog" mapstructure:"catalog" toml:"catalog"`
		Follow       FollowConfig  `json:"follow" mapstructure:"follow" toml:"follow"`
		Fetch        FetchConfig   `json:"fetch" mapstructure:"fetch" toml:"fetch"`
		Env          EnvConfig     `json:"env" mapstructure:"env" toml:"env"`
		Build        BuildConfig   `json:"build" mapstructure:"build" toml:"build"`
		Watch        WatchConfig   `json:"watch" mapstructure:"watch" toml:"watch"`
		UI           UIConfig      `json:"ui" mapstructure:"ui" toml:"ui"`
	}

	// CatalogConfig configures handle resolution.
	CatalogConfig struct {
		HeaderMarker string `json:"header_marker" mapstructure:"header_marker" toml:"header_marker"`
		EndMarker    string `json:"end_marker" mapstructure:"end_marker" toml:"end_marker"`
		MaxPasses    int    `json:"max_passes" mapstructure:"max_passes" toml:"max_passes"`
		// TimeoutSeconds bounds a whole resolution; zero means no limit.
		TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" toml:"timeout_seconds"`
		// ShowSources keeps source files as leaves of the printed trees.
		ShowSources   bool            `json:"show_sources" mapstructure:"show_sources" toml:"show_sources"`
		DuplicateIDs  DuplicatePolicy `json:"duplicate_ids" mapstructure:"duplicate_ids" toml:"duplicate_ids"`
		SearchBackend SearchBackend   `json:"search_backend" mapstructure:"search_backend" toml:"search_backend"`
		GrepPath      string          `json:"grep_path" mapstructure:"grep_path" toml:"grep_path"`
	}

	// FollowConfig configures --follow.
	FollowConfig struct {
		// IncludesFile is an index of "file:#include" lines.
		IncludesFile string `json:"includes_file" mapstructure:"includes_file" toml:"includes_file"`
	}

	// FetchConfig names the version control commands used to populate the
	// fnl directory.
	FetchConfig struct {
		ListCommand  string `json:"list_command" mapstructure:"list_command" toml:"list_command"`
		FetchCommand string `json:"fetch_command" mapstructure:"fetch_command" toml:"fetch_command"`
	}

	// EnvConfig describes the environment handed to the build binary.
	EnvConfig struct {
		Vars     map[string]string `json:"vars" mapstructure:"vars" toml:"vars"`
		EnvFiles []string          `json:"env_files" mapstructure:"env_files" toml:"env_files"`
		// SetupScript is shell source run before the first build; the
		// variables named in Capture are copied from it.
		SetupScript string   `json:"setup_script" mapstructure:"setup_script" toml:"setup_script"`
		Capture     []string `json:"capture" mapstructure:"capture" toml:"capture"`
	}

	// BuildConfig configures the build binary.
	BuildConfig struct {
		Command        string `json:"command" mapstructure:"command" toml:"command"`
		VerboseCommand string `json:"verbose_command" mapstructure:"verbose_command" toml:"verbose_command"`
		// PassFileName passes the build-description file name instead of
		// the handle.
		PassFileName bool `json:"pass_file_name" mapstructure:"pass_file_name" toml:"pass_file_name"`
		UsePTY       bool `json:"use_pty" mapstructure:"use_pty" toml:"use_pty"`
	}

	// WatchConfig configures build --watch.
	WatchConfig struct {
		Patterns       []string `json:"patterns" mapstructure:"patterns" toml:"patterns"`
		Ignore         []string `json:"ignore" mapstructure:"ignore" toml:"ignore"`
		DebounceMillis int      `json:"debounce_ms" mapstructure:"debounce_ms" toml:"debounce_ms"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme    ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		Verbose        bool        `json:"verbose" mapstructure:"verbose" toml:"verbose"`
		LogOnly        bool        `json:"log_only" mapstructure:"log_only" toml:"log_only"`
		CatalogSymbols bool        `json:"catalog_symbols" mapstructure:"catalog_symbols" toml:"catalog_symbols"`
		// Theme is the prompt theme for --pick.
		Theme string `json:"theme" mapstructure:"theme" toml:"theme"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		FnlDir:     ".fnl_files",
		ResultsDir: "build_results",
		SupportDir: "support_binaries",
		ExcludeDirs: []string{
			"SPARC_SOL", "WRSGNUPPC604", "MERCURY", "GEN_TGT", `\.fnl_files`, "build_results",
		},
		ExcludeFiles: []string{"~$", "all_includes"},
		Catalog: CatalogConfig{
			HeaderMarker:  "HANDLE",
			EndMarker:     "**",
			MaxPasses:     64,
			ShowSources:   true,
			DuplicateIDs:  DuplicateRename,
			SearchBackend: SearchBuiltin,
			GrepPath:      "grep",
		},
		Follow: FollowConfig{IncludesFile: "all_includes"},
		Fetch: FetchConfig{
			ListCommand:  "progress",
			FetchCommand: "fetch",
		},
		Env: EnvConfig{
			Vars:     map[string]string{},
			EnvFiles: []string{".fnlbuild.env?"},
			Capture:  []string{"CSCI", "CSC", "LEVEL", "pdir", "PSLPROJECT", "PWD"},
		},
		Build: BuildConfig{
			Command:        "build -L",
			VerboseCommand: "build -Lv",
		},
		Watch: WatchConfig{
			Patterns:       []string{"**/*.c", "**/*.h", "**/*.cpp", "**/*.hpp", "**/*.s"},
			Ignore:         []string{},
			DebounceMillis: 500,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Theme:       "default",
		},
	}
}

// String returns the policy name.
func (p DuplicatePolicy) String() string { return string(p) }

// IsValid reports whether p is a known policy.
func (p DuplicatePolicy) IsValid() (bool, []error) {
	switch p {
	case DuplicateRename, DuplicateReject:
		return true, nil
	default:
		return false, []error{&InvalidDuplicatePolicyError{Value: p}}
	}
}

func (e *InvalidDuplicatePolicyError) Error() string {
	return fmt.Sprintf("invalid duplicate policy %q (valid: rename, reject)", e.Value)
}

// Unwrap returns ErrInvalidDuplicatePolicy for errors.Is() compatibility.
func (e *InvalidDuplicatePolicyError) Unwrap() error { return ErrInvalidDuplicatePolicy }

// String returns the backend name.
func (b SearchBackend) String() string { return string(b) }

// IsValid reports whether b is a known backend.
func (b SearchBackend) IsValid() (bool, []error) {
	switch b {
	case SearchBuiltin, SearchGrep:
		return true, nil
	default:
		return false, []error{&InvalidSearchBackendError{Value: b}}
	}
}

func (e *InvalidSearchBackendError) Error() string {
	return fmt.Sprintf("invalid search backend %q (valid: builtin, grep)", e.Value)
}

// Unwrap returns ErrInvalidSearchBackend for errors.Is() compatibility.
func (e *InvalidSearchBackendError) Unwrap() error { return ErrInvalidSearchBackend }

// String returns the scheme name.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid reports whether cs is a known scheme.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid checks the enums and bounds of the catalog settings.
func (c CatalogConfig) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.DuplicateIDs.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.SearchBackend.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if c.MaxPasses < 1 {
		errs = append(errs, fmt.Errorf("max_passes must be at least 1, got %d", c.MaxPasses))
	}
	if c.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds))
	}
	if c.HeaderMarker == "" {
		errs = append(errs, errors.New("header_marker must not be empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidCatalogConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidCatalogConfigError) Error() string {
	return fmt.Sprintf("invalid catalog config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidCatalogConfig and the field errors.
func (e *InvalidCatalogConfigError) Unwrap() []error {
	return append([]error{ErrInvalidCatalogConfig}, e.FieldErrors...)
}

// IsValid checks every section of the configuration.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.Catalog.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.UI.ColorScheme.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if c.ResultsDir == "" {
		errs = append(errs, errors.New("results_dir must not be empty"))
	}
	if c.Watch.DebounceMillis < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMillis))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// SPDX-License-Identifier: MPL-2.0

// Package config loads fnlbuild configuration using Viper with CUE as the
// file format.
//
// The file is looked up at an explicit path, then in the platform config
// directory (config.cue under $XDG_CONFIG_HOME/fnlbuild on Linux,
// ~/Library/Application Support/fnlbuild on macOS, %APPDATA%\fnlbuild on
// Windows), then as fnlbuild.cue in the working directory. Without a file
// the defaults apply. Files are validated against the embedded #Config
// schema (config_schema.cue) before being merged over the defaults.
package config

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for fnlbuild.
//
// The root command carries the global flags; resolve and build share the
// collection and cataloging pipeline, and config manages the config file.
// App is the composition root every command handler receives.
package cmd

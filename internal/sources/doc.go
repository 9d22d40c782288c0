// SPDX-License-Identifier: MPL-2.0

// Package sources turns command-line paths into the source identifiers the
// resolver searches for. Identifiers are file base names.
//
// Collect walks files and directories with regex-based exclusions, Changed
// asks a git worktree which files differ from HEAD, and Follow extends a set
// of identifiers with every file that includes one of them according to an
// includes index.
package sources

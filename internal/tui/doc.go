// SPDX-License-Identifier: MPL-2.0

// Package tui holds the interactive pieces of fnlbuild: the handle picker
// built on huh, fuzzy handle suggestions, and a scrolling pager for run
// logs. Everything here degrades to plain output when stdin or stderr is
// not a terminal; callers check IsTerminal before prompting.
package tui

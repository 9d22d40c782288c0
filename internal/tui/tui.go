// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Theme names a prompt color theme.
type Theme string

const (
	ThemeDefault    Theme = "default"
	ThemeCharm      Theme = "charm"
	ThemeDracula    Theme = "dracula"
	ThemeCatppuccin Theme = "catppuccin"
	ThemeBase16     Theme = "base16"
)

// Config holds the settings shared by prompts.
type Config struct {
	Theme Theme
	// Accessible replaces the full-screen prompt with plain numbered
	// questions.
	Accessible bool
	// Width bounds option labels; zero means the terminal width.
	Width  int
	Input  io.Reader
	Output io.Writer
}

// DefaultConfig returns a Config for the process's standard streams.
// Accessible mode is turned on when stdin is not a terminal or the
// ACCESSIBLE environment variable is set, and prompts then go to stderr so
// that redirected stdout stays clean.
func DefaultConfig() Config {
	accessible := !IsTerminal(os.Stdin) || os.Getenv("ACCESSIBLE") != ""
	var out io.Writer = os.Stdout
	if accessible {
		out = os.Stderr
	}
	return Config{
		Theme:      ThemeDefault,
		Accessible: accessible,
		Width:      TerminalWidth(os.Stdout),
		Input:      os.Stdin,
		Output:     out,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of the terminal behind f, or 0 when f is
// not a terminal.
func TerminalWidth(f *os.File) int {
	if !IsTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

func huhTheme(t Theme) *huh.Theme {
	switch t {
	case ThemeCharm:
		return huh.ThemeCharm()
	case ThemeDracula:
		return huh.ThemeDracula()
	case ThemeCatppuccin:
		return huh.ThemeCatppuccin()
	case ThemeBase16:
		return huh.ThemeBase16()
	default:
		return huh.ThemeBase()
	}
}

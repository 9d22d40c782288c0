// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Accessible(t *testing.T) {
	t.Setenv("ACCESSIBLE", "1")

	cfg := DefaultConfig()
	if !cfg.Accessible {
		t.Error("ACCESSIBLE should turn on accessible mode")
	}
	if cfg.Output != os.Stderr {
		t.Error("accessible prompts should write to stderr")
	}
	if cfg.Theme != ThemeDefault || cfg.Input != os.Stdin {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
}

func TestTerminalWidth_NotTerminal(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if w := TerminalWidth(f); w != 0 {
		t.Errorf("TerminalWidth(file) = %d, want 0", w)
	}
	if w := TerminalWidth(nil); w != 0 {
		t.Errorf("TerminalWidth(nil) = %d, want 0", w)
	}
}

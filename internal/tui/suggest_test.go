// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSuggest(t *testing.T) {
	t.Parallel()
	handles := []string{"app", "libcore", "tool", "xlib"}

	got := Suggest("lib", handles, 0)
	if len(got) != 2 || !slices.Contains(got, "libcore") || !slices.Contains(got, "xlib") {
		t.Errorf("Suggest(lib) = %v", got)
	}
	if got := Suggest("lib", handles, 1); len(got) != 1 {
		t.Errorf("limit 1 returned %v", got)
	}
	if got := Suggest("", handles, 0); got != nil {
		t.Errorf("empty pattern returned %v", got)
	}
	if got := Suggest("zzz", handles, 3); len(got) != 0 {
		t.Errorf("no match returned %v", got)
	}
}

func TestIsTerminal_RegularFile(t *testing.T) {
	t.Parallel()
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("a regular file is not a terminal")
	}
	if TerminalWidth(f) != 0 {
		t.Error("a regular file has no width")
	}
	if IsTerminal(nil) {
		t.Error("nil is not a terminal")
	}
}

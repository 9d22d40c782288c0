// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestEnvironment_Layers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "site.env"), []byte("LEVEL=int\nCSC=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &Environment{
		Base:     []string{"PATH=/bin", "CSC=base", "LEVEL=base"},
		Vars:     map[string]string{"CSC": "vars", "CSCI": "site"},
		EnvFiles: []string{"site.env", "local.env?"},
		Dir:      dir,
	}
	env, err := e.Prepare(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"CSC=file", "CSCI=site", "LEVEL=int", "PATH=/bin"}
	if !slices.Equal(env, want) {
		t.Errorf("Prepare = %v, want %v", env, want)
	}
}

func TestEnvironment_SetupScriptCapture(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	e := &Environment{
		Base: []string{"HOME=/home/dev", "PSLPROJECT=old"},
		Vars: map[string]string{"SITE": "lrr"},
		SetupScript: `
project() { PSLPROJECT="$SITE-$1"; export PSLPROJECT; }
project 1
export CSC=csc00
LEVEL=int
SCRATCH=ignored
echo configured
`,
		Capture: []string{"CSC", "LEVEL", "PSLPROJECT", "CSCI"},
		Dir:     t.TempDir(),
		Stdout:  &out,
	}
	env, err := e.Prepare(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for key, want := range map[string]string{
		"CSC":        "csc00",
		"LEVEL":      "int",
		"PSLPROJECT": "lrr-1",
		"HOME":       "/home/dev",
	} {
		if got, ok := Lookup(env, key); !ok || got != want {
			t.Errorf("%s = %q (set %v), want %q", key, got, ok, want)
		}
	}
	for _, key := range []string{"SCRATCH", "CSCI"} {
		if _, ok := Lookup(env, key); ok {
			t.Errorf("%s should not be captured", key)
		}
	}
	if out.String() != "configured\n" {
		t.Errorf("script stdout = %q", out.String())
	}
}

func TestEnvironment_SetupScriptErrors(t *testing.T) {
	t.Parallel()

	for name, script := range map[string]string{
		"parse": "if then fi (",
		"exit":  "false\nexit 3",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := &Environment{Base: []string{}, SetupScript: script, Dir: t.TempDir()}
			_, err := e.Prepare(context.Background())
			var scriptErr *SetupScriptError
			if !errors.As(err, &scriptErr) || !errors.Is(err, ErrSetupScript) {
				t.Errorf("expected SetupScriptError, got %v", err)
			}
		})
	}
}

func TestEnvironment_EnvFileError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.env"), []byte("NOPE\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := &Environment{Base: []string{}, EnvFiles: []string{"bad.env"}, Dir: dir}
	if _, err := e.Prepare(context.Background()); !errors.Is(err, ErrEnvFile) {
		t.Errorf("expected ErrEnvFile, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	env := []string{"A=1", "B=", "A=2", "broken"}
	if v, ok := Lookup(env, "A"); !ok || v != "2" {
		t.Errorf("Lookup(A) = %q, %v", v, ok)
	}
	if v, ok := Lookup(env, "B"); !ok || v != "" {
		t.Errorf("Lookup(B) = %q, %v", v, ok)
	}
	if _, ok := Lookup(env, "C"); ok {
		t.Error("Lookup(C) should miss")
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	words, err := SplitCommand(`build -L "$FLAG" 'two words'`, []string{"FLAG=-v"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"build", "-L", "-v", "two words"}; !slices.Equal(words, want) {
		t.Errorf("SplitCommand = %q, want %q", words, want)
	}
	if _, err := SplitCommand("   ", nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("blank command: got %v", err)
	}
	if _, err := SplitCommand(`build "unterminated`, nil); err == nil {
		t.Error("unterminated quote should fail")
	}
}

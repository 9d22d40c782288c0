// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultCapture lists the variables the toolchain setup exports for the
// build binary.
var DefaultCapture = []string{"CSCI", "CSC", "LEVEL", "pdir", "PSLPROJECT", "PWD"}

// Environment assembles the process environment handed to the build binary.
// Layers apply in order, later ones overriding earlier ones: Base, Vars,
// EnvFiles, then the variables in Capture as left by SetupScript.
type Environment struct {
	// Base is the starting environment. Nil means os.Environ().
	Base []string
	Vars map[string]string
	// EnvFiles are dotenv paths relative to Dir; a "?" suffix marks an
	// optional file.
	EnvFiles []string
	// SetupScript is shell source run by an embedded interpreter.
	SetupScript string
	Capture     []string
	// Dir is the working directory for the script and the base of relative
	// env files. Empty means the current directory.
	Dir string

	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// Prepare returns the environment as sorted KEY=VALUE pairs.
func (e *Environment) Prepare(ctx context.Context) ([]string, error) {
	logger := e.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	dir, err := e.dir()
	if err != nil {
		return nil, err
	}

	base := e.Base
	if base == nil {
		base = os.Environ()
	}
	env := envMap(base)
	for k, v := range e.Vars {
		env[k] = v
	}
	for _, f := range e.EnvFiles {
		if err := LoadEnvFile(env, f, dir); err != nil {
			return nil, err
		}
		logger.Debug("loaded env file", "file", f)
	}

	if strings.TrimSpace(e.SetupScript) != "" {
		captured, err := e.runSetup(ctx, dir, env)
		if err != nil {
			return nil, err
		}
		for k, v := range captured {
			logger.Debug("captured variable", "name", k, "value", v)
			env[k] = v
		}
	}
	return envSlice(env), nil
}

func (e *Environment) dir() (string, error) {
	if e.Dir == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(e.Dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", e.Dir, err)
	}
	return abs, nil
}

// runSetup interprets the setup script and returns the captured variables
// it left set.
func (e *Environment) runSetup(ctx context.Context, dir string, env map[string]string) (map[string]string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(e.SetupScript), "setup")
	if err != nil {
		return nil, &SetupScriptError{Err: err}
	}

	stdout, stderr := e.Stdout, e.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(envSlice(env)...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return nil, &SetupScriptError{Err: err}
	}
	if err := runner.Run(ctx, prog); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SetupScriptError{Err: err}
	}

	captured := make(map[string]string, len(e.Capture))
	for _, name := range e.Capture {
		if vr, ok := runner.Vars[name]; ok && vr.IsSet() {
			captured[name] = vr.String()
		}
	}
	return captured, nil
}

func envMap(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	return m
}

func envSlice(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}

// Lookup returns the value of key in a KEY=VALUE list.
func Lookup(env []string, key string) (string, bool) {
	for _, kv := range slices.Backward(env) {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

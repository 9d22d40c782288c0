// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
)

var (
	// ErrBuildFailed is the sentinel wrapped by BuildError.
	ErrBuildFailed = errors.New("build failed")
	// ErrFetchFailed is the sentinel wrapped by FetchError.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrEnvFile is the sentinel wrapped by EnvFileError.
	ErrEnvFile = errors.New("invalid env file")
	// ErrSetupScript is the sentinel wrapped by SetupScriptError.
	ErrSetupScript = errors.New("environment setup script failed")
	// ErrEmptyCommand is returned when a configured command has no words.
	ErrEmptyCommand = errors.New("empty command")
	// ErrUnsafeDir is the sentinel wrapped by UnsafeDirError.
	ErrUnsafeDir = errors.New("refusing to clear directory")
)

type (
	// BuildError reports a build binary that exited non-zero.
	BuildError struct {
		Target   string
		ExitCode int
	}

	// FetchError reports a failed list or fetch command. Name is empty when
	// the list command itself failed.
	FetchError struct {
		Name string
		Err  error
	}

	// EnvFileError reports a malformed line in a dotenv file.
	EnvFileError struct {
		File   string
		Line   int
		Reason string
	}

	// SetupScriptError reports a setup script that failed to parse or run.
	SetupScriptError struct {
		Err error
	}

	// UnsafeDirError reports a directory that would be cleared although it
	// holds a path that must survive, such as the working directory.
	UnsafeDirError struct {
		Dir       string
		Protected string
	}
)

func (e *BuildError) Error() string {
	return fmt.Sprintf("building %s: exit status %d", e.Target, e.ExitCode)
}

// Unwrap returns ErrBuildFailed for errors.Is checks.
func (e *BuildError) Unwrap() error { return ErrBuildFailed }

func (e *FetchError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("listing build-description files: %v", e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.Name, e.Err)
}

// Unwrap returns both ErrFetchFailed and the underlying cause.
func (e *FetchError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

func (e *EnvFileError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// Unwrap returns ErrEnvFile for errors.Is checks.
func (e *EnvFileError) Unwrap() error { return ErrEnvFile }

func (e *SetupScriptError) Error() string {
	return fmt.Sprintf("environment setup script: %v", e.Err)
}

// Unwrap returns both ErrSetupScript and the underlying cause.
func (e *SetupScriptError) Unwrap() []error { return []error{ErrSetupScript, e.Err} }

func (e *UnsafeDirError) Error() string {
	return fmt.Sprintf("refusing to clear %s: it contains %s", e.Dir, e.Protected)
}

// Unwrap returns ErrUnsafeDir for errors.Is checks.
func (e *UnsafeDirError) Unwrap() error { return ErrUnsafeDir }

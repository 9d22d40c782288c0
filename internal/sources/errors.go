// SPDX-License-Identifier: MPL-2.0

package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound is returned when a path is neither a file nor a directory.
	ErrPathNotFound = errors.New("source path does not exist")
	// ErrInvalidPattern is returned when an exclude pattern does not compile.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

type (
	// PathNotFoundError reports a missing source path. It wraps ErrPathNotFound.
	PathNotFoundError struct {
		Path string
	}

	// InvalidPatternError reports an exclude pattern that is not a valid
	// regular expression. It wraps ErrInvalidPattern.
	InvalidPatternError struct {
		Pattern string
		Err     error
	}
)

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("the local source file or directory does not exist: %s", e.Path)
}

// Unwrap returns ErrPathNotFound for errors.Is() compatibility.
func (e *PathNotFoundError) Unwrap() error { return ErrPathNotFound }

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("exclude pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidPattern and the compile error.
func (e *InvalidPatternError) Unwrap() []error { return []error{ErrInvalidPattern, e.Err} }

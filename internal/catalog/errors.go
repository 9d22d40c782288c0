// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is returned when the candidate directory or one of its
	// files cannot be used. It is reported before any search runs.
	ErrConfiguration = errors.New("invalid catalog configuration")
	// ErrSearch wraps every failure reported by a Searcher.
	ErrSearch = errors.New("search failed")
	// ErrNotConverged is returned when resolution exceeds its pass limit.
	ErrNotConverged = errors.New("resolution did not converge")
	// ErrReferenceCycle is returned when two or more descriptions own each other.
	ErrReferenceCycle = errors.New("reference cycle between build descriptions")
)

type (
	// ConfigurationError reports an unusable candidate directory or file.
	// It matches ErrConfiguration and unwraps to the underlying cause.
	ConfigurationError struct {
		Path string
		Err  error
	}

	// NotConvergedError lists the terms still unresolved when the pass limit
	// was reached.
	NotConvergedError struct {
		Passes  int
		Pending []string
	}

	// CycleError names the descriptions forming an ownership loop, as a
	// closed path in build order.
	CycleError struct {
		Cycle []string
	}
)

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("candidate path %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrConfiguration and the cause for errors.Is() compatibility.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("%v after %d passes; still pending: %s",
		ErrNotConverged, e.Passes, strings.Join(e.Pending, ", "))
}

// Unwrap returns ErrNotConverged for errors.Is() compatibility.
func (e *NotConvergedError) Unwrap() error { return ErrNotConverged }

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrReferenceCycle, strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrReferenceCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrReferenceCycle }

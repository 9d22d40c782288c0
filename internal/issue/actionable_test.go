// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "load configuration"},
			expected: "failed to load configuration",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "collect sources", Resource: "./src"},
			expected: "failed to collect sources: ./src",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "build",
				Resource:  "core.x",
				Cause:     errors.New("exit status 2"),
			},
			expected: "failed to build: core.x: exit status 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("underlying error")
	err := &ActionableError{Operation: "test", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "test"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()
	inner := errors.New("grep: not found")
	err := &ActionableError{
		Operation:   "search build descriptions",
		Resource:    ".fnl_files",
		Suggestions: []string{"Check catalog.grep_path", "Use --search builtin"},
		Cause:       errors.Join(errors.New("search failed"), inner),
	}

	short := err.Format(false)
	for _, want := range []string{"failed to search build descriptions", "• Check catalog.grep_path", "• Use --search builtin"} {
		if !strings.Contains(short, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, short)
		}
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) should not include the error chain:\n%s", short)
	}

	if long := err.Format(true); !strings.Contains(long, "Error chain:") || !strings.Contains(long, "1. search failed") {
		t.Errorf("Format(true) = %s", long)
	}
	if !err.HasSuggestions() || (&ActionableError{}).HasSuggestions() {
		t.Error("HasSuggestions() mismatch")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("fetch build descriptions").
		WithResource("/tmp/fnl").
		WithIssue(FetchFailedId).
		WithSuggestion("one").
		WithSuggestions("two", "three").
		Wrap(cause).
		Build()
	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "fetch build descriptions" || ae.Resource != "/tmp/fnl" || ae.Issue != FetchFailedId {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !errors.Is(ae, cause) {
		t.Errorf("Build() = %+v", ae)
	}

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without an operation should return nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without an operation = %v, want untyped nil", err)
	}

	var target *ActionableError
	if err := NewErrorContext().WithOperation("x").BuildError(); !errors.As(err, &target) {
		t.Errorf("BuildError() = %T", err)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()
	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("wrapping nil should return nil")
	}
	cause := errors.New("cause")
	ae := WrapWithContext(cause, "link binaries", "build_results")
	if ae.Error() != "failed to link binaries: build_results: cause" {
		t.Errorf("Error() = %q", ae.Error())
	}
}

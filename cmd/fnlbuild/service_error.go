// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"

	"github.com/fnlbuild/fnlbuild/internal/catalog"
	"github.com/fnlbuild/fnlbuild/internal/config"
	"github.com/fnlbuild/fnlbuild/internal/issue"
	"github.com/fnlbuild/fnlbuild/internal/sources"
	"github.com/fnlbuild/fnlbuild/internal/toolchain"
)

var (
	errNoSources     = errors.New("no source files to resolve")
	errFnlDirMissing = errors.New("build-description directory does not exist")
	errUnknownHandle = errors.New("unknown build handle")
	errNotTerminal   = errors.New("--pick needs an interactive terminal")
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classify maps an error from the pipeline to its issue card. The first
// matching rule wins, so more specific failures come first.
func classify(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	switch {
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidDuplicatePolicy),
		errors.Is(err, config.ErrInvalidSearchBackend):
		return issue.ConfigLoadFailedId
	case errors.Is(err, sources.ErrPathNotFound):
		return issue.SourcePathNotFoundId
	case errors.Is(err, errNoSources):
		return issue.NoSourcesId
	case errors.Is(err, errFnlDirMissing):
		return issue.FnlDirMissingId
	case errors.Is(err, catalog.ErrSearch):
		return issue.SearchFailedId
	case errors.Is(err, catalog.ErrNotConverged), errors.Is(err, context.DeadlineExceeded):
		return issue.NotConvergedId
	case errors.Is(err, catalog.ErrReferenceCycle):
		return issue.ReferenceCycleId
	case errors.Is(err, toolchain.ErrFetchFailed):
		return issue.FetchFailedId
	case errors.Is(err, toolchain.ErrSetupScript):
		return issue.SetupScriptFailedId
	case errors.Is(err, toolchain.ErrBuildFailed):
		return issue.BuildFailedId
	case errors.Is(err, exec.ErrNotFound):
		return issue.BuildToolNotFoundId
	case errors.Is(err, errUnknownHandle):
		return issue.UnknownHandleId
	default:
		return 0
	}
}

// asServiceError wraps err for rendering, keeping an existing
// ServiceError as is.
func asServiceError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return newServiceError(err, classify(err), "")
}

// exitCode picks the process exit code for err.
func exitCode(err error) int {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, toolchain.ErrBuildFailed):
		return ExitBuildFailed
	default:
		return ExitFailure
	}
}

// errorHandler prints command errors. Actionable errors get their
// suggestions, and with --verbose the issue card is rendered below.
func (a *App) errorHandler(w io.Writer, styles fang.Styles, err error) {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}
	renderServiceError(w, svcErr, a.verbose, a.logger)
}

// renderServiceError prints any styled message, the error, and with
// verbose the issue card.
func renderServiceError(w io.Writer, svcErr *ServiceError, verbose bool, logger *log.Logger) {
	if svcErr == nil {
		return
	}
	if svcErr.StyledMessage != "" {
		fmt.Fprint(w, svcErr.StyledMessage)
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(svcErr.Err, verbose))

	if !verbose || svcErr.IssueID == 0 {
		return
	}
	if card := issue.Get(svcErr.IssueID); card != nil {
		rendered, renderErr := card.Render("dark")
		if renderErr != nil {
			logger.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// formatErrorForDisplay uses ActionableError.Format when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

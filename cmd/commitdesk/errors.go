package main

import (
	"errors"

	"github.com/dshills/commitdesk/internal/workspace"
)

// Exit codes:
// 0 = success
// 1 = user error (bad arguments, nothing to commit, missing identity)
// 2 = system error (git failed, I/O error)
const (
	ExitSuccess     = 0
	ExitUserError   = 1
	ExitSystemError = 2
)

// ExitError is an error that carries an exit code for the CLI.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

func newUserError(message string, cause error) *ExitError {
	return &ExitError{Code: ExitUserError, Message: message, Cause: cause}
}

func newSystemError(message string, cause error) *ExitError {
	return &ExitError{Code: ExitSystemError, Message: message, Cause: cause}
}

// classify wraps engine errors in an ExitError. Backing store failures are
// system errors; precondition failures such as workspace.ErrNothingToCommit
// are user errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	if workspace.IsStoreError(err) {
		return newSystemError("", err)
	}
	return newUserError("", err)
}

// exitCode extracts the process exit code from an error.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUserError
}

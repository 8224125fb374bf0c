// pkg/kyklos_err/errors.go

package kyklos_err

import (
	"errors"
)

// UserError marks an error as expected and recoverable by the user:
// wrong passphrase, missing file, a site skipped because of MFA. These
// are reported softly and do not fail the process.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// GetExitCode maps an error to a process exit code: 0 for nil and for
// expected user errors, 1 for everything else.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if IsExpectedUserError(err) {
		return 0
	}
	return 1
}

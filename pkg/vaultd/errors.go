// pkg/vaultd/errors.go

package vaultd

import (
	"errors"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

var (
	// ErrVaultUnavailable is returned when the daemon connection is
	// absent, refused, or lost mid-request. Fatal to a run.
	ErrVaultUnavailable = errors.New("vault daemon unavailable")

	// ErrAuthFailed is returned when unlock is rejected. Fatal to a run.
	ErrAuthFailed = errors.New("vault authentication failed")

	// ErrTimeout is returned when a single request exceeds its bound.
	// The connection stays open; a late reply is dropped, never
	// mis-delivered.
	ErrTimeout = errors.New("vault request timed out")

	// ErrClosed is returned for requests issued after Close.
	ErrClosed = errors.New("vault client closed")
)

// ServerError carries an error response from the daemon.
type ServerError struct {
	Cmd     string
	Message string
}

func (e *ServerError) Error() string {
	return "vault " + e.Cmd + ": " + e.Message
}

// IsUnknownCommand reports whether the daemon rejected the command as
// unrecognized, which older daemons do for `update`. Callers use this to
// decide on the delete+create compatibility fallback.
func IsUnknownCommand(err error) bool {
	var se *ServerError
	if !cerr.As(err, &se) {
		return false
	}
	msg := strings.ToLower(se.Message)
	return strings.Contains(msg, "unknown variant") ||
		strings.Contains(msg, "unknown command") ||
		strings.Contains(msg, "invalid request")
}

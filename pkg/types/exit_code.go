// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess is the status of a successful run.
	ExitSuccess ExitCode = 0
	// ExitFailure is the status of a failed operation.
	ExitFailure ExitCode = 1
	// ExitUsage is the status of a request rejected before any tool ran.
	ExitUsage ExitCode = 2
	// ExitNotFound is the shell status of a command that could not be found.
	ExitNotFound ExitCode = 127

	maxExitCode = 255
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status, of nspatcher itself or of a tool it ran.
	ExitCode int

	// InvalidExitCodeError is returned for a status outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d out of range 0-%d", e.Value, maxExitCode)
}

// Unwrap returns ErrInvalidExitCode for errors.Is() compatibility.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate rejects statuses a process cannot report.
func (c ExitCode) Validate() error {
	if c < ExitSuccess || c > maxExitCode {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is ExitSuccess.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

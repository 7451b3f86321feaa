// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// StageLookup covers cache lookup and platform availability.
	StageLookup Stage = "lookup"
	// StageBundled covers writing an embedded binary to the cache.
	StageBundled Stage = "bundled"
	// StageClone covers fetching the upstream source.
	StageClone Stage = "clone"
	// StageBuild covers running the build recipe.
	StageBuild Stage = "build"
	// StageArtifact covers locating the built binary and moving it to the cache.
	StageArtifact Stage = "artifact"
	// StageChmod covers marking the cached binary executable.
	StageChmod Stage = "chmod"
)

var (
	// ErrAcquire is matched by every *AcquireError through errors.Is.
	ErrAcquire = errors.New("tool acquisition failed")
	// ErrUnavailable is returned when a tool is neither bundled nor buildable on the platform.
	ErrUnavailable = errors.New("tool not available on this platform")
	// ErrExec is matched by every *ExecError through errors.Is.
	ErrExec = errors.New("tool exited with an error")
)

type (
	// Stage names the acquisition step that failed.
	Stage string

	// AcquireError reports a failed acquisition, naming the tool and stage.
	AcquireError struct {
		Kind  Kind
		Stage Stage
		Err   error
	}

	// ExecError reports a tool invocation that exited non-zero.
	ExecError struct {
		Kind     Kind
		Op       Op
		ExitCode int
		// Stderr is the captured standard error, trimmed.
		Stderr string
	}
)

// Error implements the error interface.
func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire %s: %s stage failed: %v", e.Kind, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AcquireError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAcquire.
func (e *AcquireError) Is(target error) bool { return target == ErrAcquire }

// Error implements the error interface.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s %s exited with code %d", e.Kind, e.Op, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns ErrExec for errors.Is() compatibility.
func (e *ExecError) Unwrap() error { return ErrExec }

func newExecError(k Kind, op Op, res Result) *ExecError {
	return &ExecError{
		Kind:     k,
		Op:       op,
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(res.Stderr),
	}
}

// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFallback is matched by every *FallbackError through errors.Is.
var ErrFallback = errors.New("every tool failed")

// FallbackError is the combined report of a step whose candidate tools all
// failed. Each attempt error names the tool that produced it.
type FallbackError struct {
	Step     string
	Attempts []error
}

// Error implements the error interface.
func (e *FallbackError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d tool(s) tried, none succeeded", e.Step, len(e.Attempts))
	for _, err := range e.Attempts {
		sb.WriteString("\n  ")
		sb.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n    "))
	}
	return sb.String()
}

// Unwrap returns the attempt errors for errors.Is() and errors.As().
func (e *FallbackError) Unwrap() []error { return e.Attempts }

// Is reports whether target is ErrFallback.
func (e *FallbackError) Is(target error) bool { return target == ErrFallback }

// FirstSuccess calls fn with each handle in order and returns the first
// result without error. When every call fails the result is a *FallbackError
// listing each attempt. A cancelled context stops the remaining attempts.
func FirstSuccess[T any](ctx context.Context, step string, handles []*Handle, fn func(*Handle) (T, error)) (T, error) {
	var zero T
	fbErr := &FallbackError{Step: step}
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(h)
		if err == nil {
			return v, nil
		}
		fbErr.Attempts = append(fbErr.Attempts, fmt.Errorf("%s: %w", h, err))
	}
	if len(fbErr.Attempts) == 0 {
		fbErr.Attempts = append(fbErr.Attempts, fmt.Errorf("no tool: %w", ErrUnavailable))
	}
	return zero, fbErr
}

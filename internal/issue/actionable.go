// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError tells the user which operation failed, on what, and
	// what to try next. Build one with Failed:
	//
	//	return issue.Failed("unpack package").
	//		On("base.nsp").
	//		Hint("Check that prod.keys matches your firmware").
	//		Because(err).
	//		Err()
	ActionableError struct {
		Operation string
		Resource  string
		Hints     []string
		Cause     error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		e ActionableError
	}
)

// Failed starts an ErrorContext for the operation, phrased as a verb
// ("load configuration").
func Failed(operation string) *ErrorContext {
	return &ErrorContext{e: ActionableError{Operation: operation}}
}

// On names the file, unit or tool the operation acted on.
func (c *ErrorContext) On(resource string) *ErrorContext {
	c.e.Resource = resource
	return c
}

// Hint appends a suggestion shown under the message.
func (c *ErrorContext) Hint(hint string) *ErrorContext {
	c.e.Hints = append(c.e.Hints, hint)
	return c
}

// Because records the underlying error.
func (c *ErrorContext) Because(err error) *ErrorContext {
	c.e.Cause = err
	return c
}

// Err returns the built error, or nil when no operation was named.
func (c *ErrorContext) Err() error {
	if c.e.Operation == "" {
		return nil
	}
	ae := c.e
	ae.Hints = append([]string(nil), c.e.Hints...)
	return &ae
}

func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error { return e.Cause }

// Format renders the message followed by the hints as a bullet list. When
// verbose is set the numbered chain of wrapped causes is appended.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range e.Hints {
			b.WriteString("\n  • " + h)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for i, err := 1, e.Cause; err != nil; i, err = i+1, errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", i, err)
		}
	}
	return b.String()
}

// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrScriptFailed is the sentinel error wrapped by ExitError.
var ErrScriptFailed = errors.New("script failed")

type (
	// Script is a shell snippet with its execution environment.
	Script struct {
		// Source is the POSIX shell text to run.
		Source string
		// Name labels the script in parse errors.
		Name string
		// Dir is the working directory.
		Dir string
		// Env is the complete environment in KEY=VALUE form.
		Env    []string
		Stdout io.Writer
		Stderr io.Writer
	}

	// ExitError reports a script that ran to completion with a non-zero status.
	ExitError struct {
		Status int
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Status)
}

// Unwrap returns ErrScriptFailed for errors.Is() compatibility.
func (e *ExitError) Unwrap() error { return ErrScriptFailed }

// Run parses and executes s. A non-zero exit status is returned as *ExitError;
// parse and interpreter failures are returned as wrapped errors.
func Run(ctx context.Context, s Script) error {
	name := s.Name
	if name == "" {
		name = "script"
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(s.Source), name)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	stdout, stderr := s.Stdout, s.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	runner, err := interp.New(
		interp.Dir(s.Dir),
		interp.Env(expand.ListEnviron(s.Env...)),
		interp.StdIO(nil, stdout, stderr),
		interp.ExecHandlers(execHandler),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ExitError{Status: int(exitStatus)}
		}
		return fmt.Errorf("%s execution failed: %w", name, err)
	}
	return nil
}

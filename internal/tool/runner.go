// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/term"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Invocation is one child process run.
	Invocation struct {
		Path string
		Args []string
		// Dir is the working directory; empty means the current one.
		Dir string
		// Stream forwards stdout to the user instead of capturing it.
		Stream bool
	}

	// Result is the outcome of a process that ran to completion.
	Result struct {
		// Stdout is empty for streamed invocations.
		Stdout   string
		Stderr   string
		ExitCode int
	}

	// Runner executes invocations. A non-zero exit is reported through
	// Result.ExitCode; the error return is reserved for processes that
	// could not be started or waited on.
	Runner interface {
		Run(ctx context.Context, inv Invocation) (Result, error)
	}

	// ExecRunnerOption configures an ExecRunner.
	ExecRunnerOption func(*ExecRunner)

	// ExecRunner runs invocations as child processes.
	ExecRunner struct {
		execCommand ExecCommandFunc
		stdout      io.Writer
		usePTY      bool
	}
)

// NewExecRunner creates an ExecRunner writing streamed output to os.Stdout.
// Streamed output goes through a pseudo-terminal when stdout is a terminal
// so tools keep their progress output.
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		execCommand: exec.CommandContext,
		stdout:      os.Stdout,
		usePTY:      ptySupported && term.IsTerminal(int(os.Stdout.Fd())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithExecCommand overrides process creation.
func WithExecCommand(fn ExecCommandFunc) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

// WithStdout sets the destination of streamed output and disables the
// pseudo-terminal.
func WithStdout(w io.Writer) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.stdout = w
		r.usePTY = false
	}
}

// Run executes inv and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd := r.execCommand(ctx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr

	var err error
	switch {
	case !inv.Stream:
		cmd.Stdout = &stdout
		err = cmd.Run()
	case r.usePTY:
		err = runWithPTY(cmd, r.stdout)
	default:
		cmd.Stdout = r.stdout
		err = cmd.Run()
	}

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("run %s: %w", inv.Path, err)
	}
	return result, nil
}

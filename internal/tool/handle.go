// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"context"

	"github.com/charmbracelet/log"
)

type (
	// Handle is a resolved, executable tool.
	Handle struct {
		Kind Kind
		Path string

		runner Runner
		// defaults supplies keyset and titlekeys to every invocation.
		defaults Vars
		logger   *log.Logger
	}

	// RunOptions adjusts a single invocation.
	RunOptions struct {
		// Stream forwards stdout to the user (pack and unpack steps).
		Stream bool
		// Dir is the working directory of the child process.
		Dir string
	}
)

// NewHandle creates a Handle for an executable at path. defaults are merged
// under the variables of every Run call.
func NewHandle(kind Kind, path string, runner Runner, defaults Vars, logger *log.Logger) *Handle {
	if logger == nil {
		logger = log.Default()
	}
	return &Handle{Kind: kind, Path: path, runner: runner, defaults: defaults, logger: logger}
}

// String returns the tool name.
func (h *Handle) String() string { return h.Kind.String() }

// Run expands op's template with vars and runs the tool. A non-zero exit
// returns the captured Result together with an *ExecError.
func (h *Handle) Run(ctx context.Context, op Op, vars Vars, opts RunOptions) (Result, error) {
	args, err := h.Kind.Args(op, h.defaults.with(vars))
	if err != nil {
		return Result{}, err
	}

	h.logger.Debug("running tool", "tool", h.Kind, "op", op, "args", args)

	res, err := h.runner.Run(ctx, Invocation{
		Path:   h.Path,
		Args:   args,
		Dir:    opts.Dir,
		Stream: opts.Stream,
	})
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, newExecError(h.Kind, op, res)
	}
	return res, nil
}

// SPDX-License-Identifier: MPL-2.0

// Package tooltest provides an in-process tool.Runner that simulates the
// external tools, so packages driving them can be tested without binaries.
package tooltest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// Call is one recorded invocation, with the tool resolved from its path.
	Call struct {
		Tool string
		Args []string
		Dir  string
	}

	// HandlerFunc simulates one invocation.
	HandlerFunc func(ctx context.Context, call Call) (tool.Result, error)

	// Runner dispatches invocations to per-tool handlers and records them.
	Runner struct {
		mu       sync.Mutex
		handlers map[string]HandlerFunc
		calls    []Call
	}
)

// NewRunner creates a Runner with no handlers. Invocations of a tool without
// a handler exit with code 127.
func NewRunner() *Runner {
	return &Runner{handlers: map[string]HandlerFunc{}}
}

// On registers fn for the tool named name ("hactool").
func (r *Runner) On(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Run implements tool.Runner.
func (r *Runner) Run(ctx context.Context, inv tool.Invocation) (tool.Result, error) {
	call := Call{Tool: ToolName(inv.Path), Args: inv.Args, Dir: inv.Dir}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	fn, ok := r.handlers[call.Tool]
	r.mu.Unlock()

	if !ok {
		return tool.Result{ExitCode: int(types.ExitNotFound), Stderr: call.Tool + ": not found"}, nil
	}
	return fn(ctx, call)
}

// Calls returns the recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded invocations of one tool.
func (r *Runner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Tool == name {
			out = append(out, c)
		}
	}
	return out
}

// ToolName extracts the tool name from a cached executable path
// ("/cache/hactool-linux-amd64" is "hactool").
func ToolName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".exe")
	if i := strings.Index(base, "-"); i > 0 {
		return base[:i]
	}
	return base
}

// Handle creates a tool.Handle for kind backed by r. Keyset and title keys
// placeholders are preset.
func (r *Runner) Handle(kind tool.Kind) *tool.Handle {
	return tool.NewHandle(kind, "/tools/"+kind.String(), r, tool.Vars{
		tool.VarKeyset:    "prod.keys",
		tool.VarTitleKeys: "title.keys",
	}, log.New(discard{}))
}

// Report renders an info report the way kind prints it. An empty id or
// category omits that line.
func Report(kind tool.Kind, id, category string) string {
	var sb strings.Builder
	sb.WriteString("NCA:\n")
	sb.WriteString("Magic:                              NCA3\n")
	if id != "" {
		sb.WriteString(kind.IDLabel() + "                          " + id + "\n")
	}
	if category != "" {
		sb.WriteString("Content Type:                       " + category + "\n")
	}
	sb.WriteString("Key Generation:                     11\n")
	return sb.String()
}

// Flag returns the value following flag in args, supporting both
// "--flag value" and "--flag=value" forms.
func Flag(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v
		}
	}
	return ""
}

// Last returns the final argument, the input path of most operations.
func Last(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[len(args)-1]
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

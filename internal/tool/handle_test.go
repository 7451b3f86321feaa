// SPDX-License-Identifier: MPL-2.0

package tool_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/internal/tool/tooltest"
)

func TestHandle_Run(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	r.On("hactool", func(_ context.Context, _ tooltest.Call) (tool.Result, error) {
		return tool.Result{Stdout: "Title ID: 0100000000001000"}, nil
	})

	h := r.Handle(tool.KindHactool)
	res, err := h.Run(context.Background(), tool.OpInfo, tool.Vars{tool.VarInput: "a.nca"}, tool.RunOptions{Dir: "/work"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Stdout != "Title ID: 0100000000001000" {
		t.Errorf("Stdout = %q", res.Stdout)
	}

	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	want := []string{"-k", "prod.keys", "--titlekeys=title.keys", "a.nca"}
	if !slices.Equal(calls[0].Args, want) {
		t.Errorf("Args = %q, want %q", calls[0].Args, want)
	}
	if calls[0].Dir != "/work" {
		t.Errorf("Dir = %q, want /work", calls[0].Dir)
	}
}

func TestHandle_RunOverridesDefaults(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	r.On("hactool", func(context.Context, tooltest.Call) (tool.Result, error) {
		return tool.Result{}, nil
	})

	h := r.Handle(tool.KindHactool)
	_, err := h.Run(context.Background(), tool.OpInfo, tool.Vars{
		tool.VarInput:  "a.nca",
		tool.VarKeyset: "dev.keys",
	}, tool.RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := r.Calls()[0].Args[1]; got != "dev.keys" {
		t.Errorf("keyset = %q, want dev.keys", got)
	}
}

func TestHandle_RunNonZeroExit(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	r.On("hac2l", func(context.Context, tooltest.Call) (tool.Result, error) {
		return tool.Result{ExitCode: 1, Stderr: "  failed to match key  \n"}, nil
	})

	h := r.Handle(tool.KindHac2l)
	res, err := h.Run(context.Background(), tool.OpInfo, tool.Vars{tool.VarInput: "a.nca"}, tool.RunOptions{})
	if !errors.Is(err, tool.ErrExec) {
		t.Fatalf("Run() error = %v, want ErrExec", err)
	}
	var execErr *tool.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error is not *ExecError: %T", err)
	}
	if execErr.ExitCode != 1 || execErr.Stderr != "failed to match key" {
		t.Errorf("ExecError = %+v", execErr)
	}
	if execErr.Kind != tool.KindHac2l || execErr.Op != tool.OpInfo {
		t.Errorf("ExecError names %s %s", execErr.Kind, execErr.Op)
	}
	if res.ExitCode != 1 {
		t.Errorf("Result.ExitCode = %d, want 1", res.ExitCode)
	}
}

func TestHandle_RunUnsupported(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	h := r.Handle(tool.KindHacpack)

	_, err := h.Run(context.Background(), tool.OpInfo, tool.Vars{tool.VarInput: "a.nca"}, tool.RunOptions{})
	if !errors.Is(err, tool.ErrUnsupportedOp) {
		t.Fatalf("Run() error = %v, want ErrUnsupportedOp", err)
	}
	if len(r.Calls()) != 0 {
		t.Error("unsupported operation must not start a process")
	}
}

func TestHandle_RunStartFailure(t *testing.T) {
	t.Parallel()

	startErr := errors.New("exec format error")
	r := tooltest.NewRunner()
	r.On("hactoolnet", func(context.Context, tooltest.Call) (tool.Result, error) {
		return tool.Result{}, startErr
	})

	h := r.Handle(tool.KindHactoolnet)
	_, err := h.Run(context.Background(), tool.OpInfo, tool.Vars{tool.VarInput: "a.nca"}, tool.RunOptions{})
	if !errors.Is(err, startErr) {
		t.Fatalf("Run() error = %v, want start error", err)
	}
	if errors.Is(err, tool.ErrExec) {
		t.Error("start failures must not be reported as ExecError")
	}
}

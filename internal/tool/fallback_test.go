// SPDX-License-Identifier: MPL-2.0

package tool_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/internal/tool/tooltest"
)

func TestFirstSuccess(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	handles := []*tool.Handle{r.Handle(tool.KindHactoolnet), r.Handle(tool.KindHac2l), r.Handle(tool.KindHactool)}

	var tried []string
	got, err := tool.FirstSuccess(context.Background(), "classify", handles, func(h *tool.Handle) (string, error) {
		tried = append(tried, h.String())
		if h.Kind == tool.KindHactoolnet {
			return "", errors.New("exit status 1")
		}
		return "ok from " + h.String(), nil
	})
	if err != nil {
		t.Fatalf("FirstSuccess() error: %v", err)
	}
	if got != "ok from hac2l" {
		t.Errorf("FirstSuccess() = %q", got)
	}
	if strings.Join(tried, ",") != "hactoolnet,hac2l" {
		t.Errorf("tried %v, later tools must not run after a success", tried)
	}
}

func TestFirstSuccess_AllFail(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	handles := []*tool.Handle{r.Handle(tool.KindHactoolnet), r.Handle(tool.KindHactool)}
	execErr := &tool.ExecError{Kind: tool.KindHactool, Op: tool.OpInfo, ExitCode: 1}

	_, err := tool.FirstSuccess(context.Background(), "classify a.nca", handles, func(h *tool.Handle) (int, error) {
		if h.Kind == tool.KindHactool {
			return 0, execErr
		}
		return 0, errors.New("bad report")
	})

	if !errors.Is(err, tool.ErrFallback) {
		t.Fatalf("error = %v, want ErrFallback", err)
	}
	if !errors.Is(err, tool.ErrExec) {
		t.Error("attempt errors should be reachable through errors.Is")
	}
	var fbErr *tool.FallbackError
	if !errors.As(err, &fbErr) || len(fbErr.Attempts) != 2 {
		t.Fatalf("FallbackError = %+v", fbErr)
	}
	msg := err.Error()
	for _, want := range []string{"classify a.nca", "hactoolnet: bad report", "hactool: hactool info"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not contain %q", msg, want)
		}
	}
}

func TestFirstSuccess_NoHandles(t *testing.T) {
	t.Parallel()

	_, err := tool.FirstSuccess(context.Background(), "unpack", nil, func(*tool.Handle) (bool, error) {
		return true, nil
	})
	if !errors.Is(err, tool.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestFirstSuccess_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := tooltest.NewRunner()
	calls := 0
	_, err := tool.FirstSuccess(ctx, "unpack", []*tool.Handle{r.Handle(tool.KindHactool)}, func(*tool.Handle) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("error = %v, calls = %d", err, calls)
	}
}

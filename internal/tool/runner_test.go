// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

type (
	// mockCommandRecorder captures the commands the runner creates and
	// replaces them with TestHelperProcess.
	mockCommandRecorder struct {
		invocations [][]string
		exitCode    int
		stdout      string
		stderr      string
	}
)

func (m *mockCommandRecorder) commandFunc() ExecCommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		m.invocations = append(m.invocations, append([]string{name}, args...))

		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", m.exitCode),
			fmt.Sprintf("GO_HELPER_STDOUT=%s", m.stdout),
			fmt.Sprintf("GO_HELPER_STDERR=%s", m.stderr),
		}
		return cmd
	}
}

// TestHelperProcess is used by the mock to simulate a tool process.
// It reads configuration from environment variables and outputs accordingly.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode) //nolint:errcheck // malformed code means 0
	}
	os.Exit(exitCode)
}

func TestExecRunner_Capture(t *testing.T) {
	t.Parallel()

	m := &mockCommandRecorder{stdout: "Content Type: Program", stderr: "warn"}
	r := NewExecRunner(WithExecCommand(m.commandFunc()), WithStdout(&bytes.Buffer{}))

	res, err := r.Run(context.Background(), Invocation{Path: "/cache/hactool", Args: []string{"-k", "prod.keys", "a.nca"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Stdout != "Content Type: Program" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if res.Stderr != "warn" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d", res.ExitCode)
	}
	if got := strings.Join(m.invocations[0], " "); got != "/cache/hactool -k prod.keys a.nca" {
		t.Errorf("invocation = %q", got)
	}
}

func TestExecRunner_Stream(t *testing.T) {
	t.Parallel()

	var streamed bytes.Buffer
	m := &mockCommandRecorder{stdout: "Saving 1/3", stderr: "oops", exitCode: 2}
	r := NewExecRunner(WithExecCommand(m.commandFunc()), WithStdout(&streamed))

	res, err := r.Run(context.Background(), Invocation{Path: "hacpack", Stream: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", res.ExitCode)
	}
	if streamed.String() != "Saving 1/3" {
		t.Errorf("streamed = %q", streamed.String())
	}
	if res.Stdout != "" {
		t.Errorf("streamed run should not capture stdout, got %q", res.Stdout)
	}
	if res.Stderr != "oops" {
		t.Errorf("Stderr = %q, want captured stderr", res.Stderr)
	}
}

func TestExecRunner_StartFailure(t *testing.T) {
	t.Parallel()

	r := NewExecRunner(WithStdout(&bytes.Buffer{}))
	_, err := r.Run(context.Background(), Invocation{Path: "/nonexistent/nspatcher-tool"})
	if err == nil {
		t.Fatal("expected an error for a missing executable")
	}
}

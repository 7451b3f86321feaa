// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package tool

import (
	"io"
	"os/exec"

	"github.com/creack/pty"
)

const ptySupported = true

// runWithPTY starts cmd attached to a pseudo-terminal and copies its output
// to w. Standard error stays on the writer already assigned to cmd.
func runWithPTY(cmd *exec.Cmd, w io.Writer) error {
	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	// Reading fails with EIO once the child side closes.
	_, _ = io.Copy(w, f) //nolint:errcheck // EIO marks end of output
	waitErr := cmd.Wait()
	if closeErr := f.Close(); closeErr != nil && waitErr == nil {
		return closeErr
	}
	return waitErr
}

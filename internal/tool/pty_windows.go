// SPDX-License-Identifier: MPL-2.0

//go:build windows

package tool

import (
	"io"
	"os/exec"
)

const ptySupported = false

func runWithPTY(cmd *exec.Cmd, w io.Writer) error {
	cmd.Stdout = w
	return cmd.Run()
}

// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package fsutil

import (
	"errors"
	"syscall"
)

func crossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

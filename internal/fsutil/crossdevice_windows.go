// SPDX-License-Identifier: MPL-2.0

//go:build windows

package fsutil

import (
	"errors"
	"syscall"
)

// errorNotSameDevice is ERROR_NOT_SAME_DEVICE, returned by MoveFileEx across volumes.
const errorNotSameDevice syscall.Errno = 17

func crossDevice(err error) bool {
	return errors.Is(err, errorNotSameDevice) || errors.Is(err, syscall.EXDEV)
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"

	"github.com/nspatcher/nspatcher/pkg/platform"
)

// homeEnv is the variable os.UserHomeDir reads on the running platform.
func homeEnv() string {
	if runtime.GOOS == platform.Windows {
		return "USERPROFILE"
	}
	return "HOME"
}

// SetHomeDir points os.UserHomeDir at dir and returns the function that
// restores the previous value, for use with t.Cleanup. Default key and
// config paths are derived from the home directory.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()
	return MustSetenv(t, homeEnv(), dir)
}

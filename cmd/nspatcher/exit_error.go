// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/nspatcher/nspatcher/pkg/types"
)

// ExitError carries the process exit code out of a RunE handler. Execute
// translates it into os.Exit after fang has finished.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %s", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

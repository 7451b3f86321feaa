// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/nspatcher/nspatcher/internal/fsutil"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Scope owns the temporary directories of one pipeline call. Close removes
// every directory still registered; call it with defer right after creation
// so error paths clean up too.
type Scope struct {
	dirs   []string
	logger *log.Logger
}

// NewScope creates an empty Scope.
func NewScope(logger *log.Logger) *Scope {
	if logger == nil {
		logger = log.Default()
	}
	return &Scope{logger: logger}
}

// MkdirTemp creates root/<prefix>-<uuid> and registers it.
func (s *Scope) MkdirTemp(root, prefix string) (string, error) {
	dir := filepath.Join(root, prefix+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	s.dirs = append(s.dirs, dir)
	return dir, nil
}

// Release removes dir ahead of Close. A failure is logged and dir stays
// registered so Close retries it.
func (s *Scope) Release(dir string) {
	i := slices.Index(s.dirs, dir)
	if i < 0 {
		return
	}
	if err := fsutil.RemoveAll(dir); err != nil {
		s.logger.Warn("failed to remove temp directory", "dir", dir, "err", err)
		return
	}
	s.dirs = slices.Delete(s.dirs, i, i+1)
}

// Close removes every registered directory, most recent first. Failures are
// logged and joined into the returned error.
func (s *Scope) Close() error {
	var errs []error
	for _, dir := range slices.Backward(s.dirs) {
		if err := fsutil.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove temp directory", "dir", dir, "err", err)
			errs = append(errs, err)
		}
	}
	s.dirs = nil
	return errors.Join(errs...)
}

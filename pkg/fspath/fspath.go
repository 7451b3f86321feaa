// SPDX-License-Identifier: MPL-2.0

// Package fspath keeps paths typed as types.FilesystemPath between the CLI
// arguments and the tool argument vectors.
package fspath

import (
	"fmt"
	"path/filepath"

	"github.com/nspatcher/nspatcher/pkg/types"
)

// JoinStr joins literal segments onto a typed base path.
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	return types.FilesystemPath(filepath.Join(append([]string{string(base)}, elem...)...))
}

// Resolve validates p and returns its cleaned absolute form.
func Resolve(p types.FilesystemPath) (types.FilesystemPath, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return types.FilesystemPath(filepath.Clean(abs)), nil
}

// SPDX-License-Identifier: MPL-2.0

// Package fsutil holds the file operations the pipeline relies on: a move
// that survives filesystem boundaries, content digests and tolerant removal.
package fsutil

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/u-root/u-root/pkg/core/cp"
	"github.com/zeebo/blake3"
)

// rename is swapped in tests to force the copy fallback.
var rename = os.Rename

// Move renames src to dst. When the rename fails because src and dst are on
// different filesystems, src is copied (a file or a whole tree) and then
// removed. Any other rename failure is returned. An existing destination
// file is replaced.
func Move(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("move %s: create destination parent: %w", src, err)
	}

	if !info.IsDir() {
		if dstInfo, statErr := os.Stat(dst); statErr == nil && !dstInfo.IsDir() {
			if err := os.Remove(dst); err != nil {
				return fmt.Errorf("move %s: replace %s: %w", src, dst, err)
			}
		}
	}

	renameErr := rename(src, dst)
	if renameErr == nil {
		return nil
	}
	if !crossDevice(renameErr) {
		return fmt.Errorf("move %s: %w", src, renameErr)
	}

	if info.IsDir() {
		err = cp.Default.CopyTree(src, dst)
	} else {
		err = cp.Default.Copy(src, dst)
	}
	if err != nil {
		return fmt.Errorf("move %s: copy after rename failed (%v): %w", src, renameErr, err)
	}

	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("move %s: remove source after copy: %w", src, err)
	}
	return nil
}

// Copy copies the file src to dst, creating dst's parent directories.
func Copy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("copy %s: create destination parent: %w", src, err)
	}
	if err := cp.Default.Copy(src, dst); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// Digest returns the hex-encoded BLAKE3-256 digest of the file at path.
func Digest(path string) (digest string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RemoveAll removes path and its children. An absent path is not an error.
func RemoveAll(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

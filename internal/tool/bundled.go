// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Release builds drop prebuilt binaries (optionally zstd-compressed, with a
// .zst suffix) into bundled/ under their Kind.Filename names.
//
//go:embed all:bundled
var bundledAssets embed.FS

// BundledFS returns the embedded tool binaries.
func BundledFS() fs.FS {
	sub, err := fs.Sub(bundledAssets, "bundled")
	if err != nil {
		panic(fmt.Sprintf("bundled assets: %v", err))
	}
	return sub
}

// writeBundled copies the embedded binary name (or name.zst, decompressed)
// from fsys to dest through a temporary file in dest's directory.
func writeBundled(fsys fs.FS, name, dest string) (err error) {
	f, err := fsys.Open(name)
	compressed := false
	if errors.Is(err, fs.ErrNotExist) {
		f, err = fsys.Open(name + ".zst")
		compressed = true
	}
	if err != nil {
		return fmt.Errorf("no embedded binary %s: %w", name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var src io.Reader = f
	if compressed {
		dec, decErr := zstd.NewReader(f)
		if decErr != nil {
			return fmt.Errorf("open compressed %s: %w", name, decErr)
		}
		defer dec.Close()
		src = dec
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup of partial write
		}
	}()

	if _, err = io.Copy(tmp, src); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("install %s: %w", dest, err)
	}
	return nil
}

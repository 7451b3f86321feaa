// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/nspatcher/nspatcher/internal/testutil"
)

func TestMove_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "a.nca")
	dst := filepath.Join(dir, "nca", "a.nca")
	testutil.MustWriteFile(t, src, []byte("control"))

	if err := Move(src, dst); err != nil {
		t.Fatalf("Move() error: %v", err)
	}
	testutil.MustNotExist(t, src)
	if got := testutil.MustReadFile(t, dst); got != "control" {
		t.Errorf("dst content = %q", got)
	}
}

func TestMove_ReplacesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "new.nsp")
	dst := filepath.Join(dir, "out.nsp")
	testutil.MustWriteFile(t, src, []byte("new"))
	testutil.MustWriteFile(t, dst, []byte("old"))

	if err := Move(src, dst); err != nil {
		t.Fatalf("Move() error: %v", err)
	}
	if got := testutil.MustReadFile(t, dst); got != "new" {
		t.Errorf("dst content = %q, want new", got)
	}
}

func TestMove_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := Move(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected an error for a missing source")
	}
}

//nolint:paralleltest // swaps the package-level rename function
func TestMove_CopyFallback(t *testing.T) {
	original := rename
	t.Cleanup(func() { rename = original })
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.nsp")
		dst := filepath.Join(dir, "out", "dst.nsp")
		testutil.MustWriteFile(t, src, []byte("payload"))

		if err := Move(src, dst); err != nil {
			t.Fatalf("Move() error: %v", err)
		}
		testutil.MustNotExist(t, src)
		if got := testutil.MustReadFile(t, dst); got != "payload" {
			t.Errorf("dst content = %q", got)
		}
	})

	t.Run("tree", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "build")
		testutil.MustWriteFile(t, filepath.Join(src, "bin", "hactool"), []byte("elf"))
		dst := filepath.Join(dir, "cache", "build")

		if err := Move(src, dst); err != nil {
			t.Fatalf("Move() error: %v", err)
		}
		testutil.MustNotExist(t, src)
		if got := testutil.MustReadFile(t, filepath.Join(dst, "bin", "hactool")); got != "elf" {
			t.Errorf("moved tree content = %q", got)
		}
	})
}

//nolint:paralleltest // swaps the package-level rename function
func TestMove_OtherRenameErrorNotCopied(t *testing.T) {
	original := rename
	t.Cleanup(func() { rename = original })
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EACCES}
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src.nsp")
	dst := filepath.Join(dir, "out", "dst.nsp")
	testutil.MustWriteFile(t, src, []byte("payload"))

	err := Move(src, dst)
	if !errors.Is(err, syscall.EACCES) {
		t.Fatalf("Move() error = %v, want the rename error", err)
	}
	testutil.MustExist(t, src)
	testutil.MustNotExist(t, dst)
}

func TestDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	testutil.MustWriteFile(t, a, []byte("same"))
	testutil.MustWriteFile(t, b, []byte("same"))
	testutil.MustWriteFile(t, c, []byte("different"))

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest(a): %v", err)
	}
	db, _ := Digest(b)
	dc, _ := Digest(c)

	if len(da) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(da))
	}
	if da != db {
		t.Error("identical content must have identical digests")
	}
	if da == dc {
		t.Error("different content must have different digests")
	}

	if _, err := Digest(filepath.Join(dir, "missing")); err == nil {
		t.Error("Digest of a missing file should fail")
	}
}

func TestRemoveAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "tmp")
	testutil.MustWriteFile(t, filepath.Join(target, "x"), nil)

	if err := RemoveAll(target); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	testutil.MustNotExist(t, target)

	if err := RemoveAll(target); err != nil {
		t.Errorf("RemoveAll() on absent path = %v, want nil", err)
	}
	if err := RemoveAll(""); err != nil {
		t.Errorf("RemoveAll(\"\") = %v, want nil", err)
	}
	if !IsDir(dir) || IsDir(target) {
		t.Error("IsDir reported the wrong state")
	}
}

func TestCopy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "control.nca")
	dst := filepath.Join(dir, "patch", "nca", "control.nca")
	testutil.MustWriteFile(t, src, []byte("control"))

	if err := Copy(src, dst); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}
	testutil.MustExist(t, src)
	if got := testutil.MustReadFile(t, dst); got != "control" {
		t.Errorf("dst content = %q", got)
	}
}

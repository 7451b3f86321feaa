// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/nspatcher/nspatcher/internal/fsutil"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Ext is the cartridge image extension.
const Ext = ".xci"

var (
	// ErrNotCartridge is returned for paths that are not an existing cartridge image.
	ErrNotCartridge = errors.New("not a cartridge image")
	// ErrNoOutput is returned when the converter exits cleanly but writes no package.
	ErrNoOutput = errors.New("converter produced no package")
)

type (
	// Option configures a Converter.
	Option func(*Converter)

	// Converter turns cartridge images into packages.
	Converter struct {
		tempDir string
		logger  *log.Logger
	}

	produced struct {
		path string
		size int64
	}
)

// New creates a Converter that works in a fresh directory under tempDir.
func New(tempDir string, opts ...Option) *Converter {
	c := &Converter{tempDir: tempDir, logger: log.Default().WithPrefix("convert")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// Convert runs converter on src and moves every package it produces into
// outDir. It returns the path of the largest one, the main title.
func (c *Converter) Convert(ctx context.Context, converter *tool.Handle, src, outDir string) (string, error) {
	if err := ValidateSource(src); err != nil {
		return "", err
	}

	work := filepath.Join(c.tempDir, "convert-"+uuid.NewString())
	defer func() {
		if err := fsutil.RemoveAll(work); err != nil {
			c.logger.Warn("failed to remove temp directory", "dir", work, "err", err)
		}
	}()
	scratch, out := filepath.Join(work, "tmp"), filepath.Join(work, "out")
	for _, dir := range []string{scratch, out} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}

	c.logger.Info("converting cartridge image", "src", src, "tool", converter)
	if _, err := converter.Run(ctx, tool.OpConvert, tool.Vars{
		tool.VarTempDir: scratch,
		tool.VarOutDir:  out,
		tool.VarInput:   src,
	}, tool.RunOptions{Stream: true}); err != nil {
		return "", fmt.Errorf("convert %s: %w", src, err)
	}

	packages, err := findPackages(out)
	if err != nil {
		return "", err
	}
	if len(packages) == 0 {
		return "", fmt.Errorf("convert %s: %w", src, ErrNoOutput)
	}

	var main string
	for i, p := range packages {
		dst := filepath.Join(outDir, filepath.Base(p.path))
		if err := fsutil.Move(p.path, dst); err != nil {
			return "", err
		}
		c.logger.Info("wrote package", "path", dst)
		if i == 0 {
			main = dst
		}
	}
	return main, nil
}

// ValidateSource checks that src is an existing regular file with the cartridge
// extension. Convert calls it before running the converter.
func ValidateSource(src string) error {
	if !types.FilesystemPath(src).HasExt(Ext) {
		return fmt.Errorf("%w: %s: extension must be %s", ErrNotCartridge, src, Ext)
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotCartridge, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrNotCartridge, src)
	}
	return nil
}

// findPackages lists the packages under dir, largest first.
func findPackages(dir string) ([]produced, error) {
	var out []produced
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !types.FilesystemPath(path).HasExt(".nsp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, produced{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect converter output: %w", err)
	}
	slices.SortFunc(out, func(a, b produced) int {
		if c := cmp.Compare(b.size, a.size); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})
	return out, nil
}

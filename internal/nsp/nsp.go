// SPDX-License-Identifier: MPL-2.0

package nsp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nspatcher/nspatcher/internal/fsutil"
	"github.com/nspatcher/nspatcher/internal/keys"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
)

// Ext is the package file extension.
const Ext = ".nsp"

// ErrNotPackage is returned for paths that are not an existing package file.
var ErrNotPackage = errors.New("not a package")

type (
	// Option configures a Package.
	Option func(*Package)

	// Package is one package file and the key material derived from its
	// unpacked tree.
	Package struct {
		path   string
		key    *keys.Record
		logger *log.Logger
	}
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Package) {
		p.logger = l
	}
}

// Open validates that path is an existing package file.
func Open(path string, opts ...Option) (*Package, error) {
	if !types.FilesystemPath(path).HasExt(Ext) {
		return nil, fmt.Errorf("%w: %s: extension must be %s", ErrNotPackage, path, Ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPackage, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotPackage, path)
	}

	p := &Package{path: path, logger: log.Default().WithPrefix("nsp")}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Path returns the package file path.
func (p *Package) Path() string { return p.path }

// String returns the package file path.
func (p *Package) String() string { return p.path }

// Unpack extracts the package's entries into dest with extractor.
func (p *Package) Unpack(ctx context.Context, extractor *tool.Handle, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	_, err := extractor.Run(ctx, tool.OpUnpackPackage, tool.Vars{
		tool.VarOutDir: dest,
		tool.VarInput:  p.path,
	}, tool.RunOptions{Stream: true})
	if err != nil {
		return fmt.Errorf("unpack %s: %w", p.path, err)
	}
	return nil
}

// UnpackWith tries extractors in order until one unpacks the package.
// dest is emptied before every attempt, so entries left by an earlier run
// or a failed extractor never mix with the package's own. When all fail
// the error is a *tool.FallbackError.
func (p *Package) UnpackWith(ctx context.Context, extractors []*tool.Handle, dest string) error {
	_, err := tool.FirstSuccess(ctx, "unpack "+p.path, extractors, func(h *tool.Handle) (struct{}, error) {
		if err := fsutil.RemoveAll(dest); err != nil {
			return struct{}{}, err
		}
		p.logger.Info("unpacking package", "package", p.path, "tool", h, "dest", dest)
		err := p.Unpack(ctx, h, dest)
		if err != nil {
			p.logger.Warn("unpack failed", "package", p.path, "tool", h, "err", err)
		}
		return struct{}{}, err
	})
	return err
}

// DeriveKey extracts the key record from the first ticket under dataDir.
// It does nothing when the key is already known. keys.ErrNoTicket is
// returned when dataDir holds no ticket.
func (p *Package) DeriveKey(dataDir string) error {
	if p.key != nil {
		return nil
	}
	ticket, err := keys.FindTicket(dataDir)
	if err != nil {
		return err
	}
	rec, err := keys.Extract(ticket)
	if err != nil {
		return err
	}
	p.key = &rec
	p.logger.Debug("derived title key", "package", p.path, "ticket", ticket)
	return nil
}

// Key returns the derived key record.
func (p *Package) Key() (keys.Record, bool) {
	if p.key == nil {
		return keys.Record{}, false
	}
	return *p.key, true
}

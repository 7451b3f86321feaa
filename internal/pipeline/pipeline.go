// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/internal/fsutil"
	"github.com/nspatcher/nspatcher/internal/keys"
	"github.com/nspatcher/nspatcher/internal/nca"
	"github.com/nspatcher/nspatcher/internal/nsp"
	"github.com/nspatcher/nspatcher/internal/tool"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnitNotFound is returned when a package lacks a required content unit.
	ErrUnitNotFound = errors.New("content unit not found")
	// ErrUnexpectedCategory is returned when a unit classifies as the wrong category.
	ErrUnexpectedCategory = errors.New("unexpected content category")
	// ErrInvalidRequest is returned for requests rejected before any tool runs.
	ErrInvalidRequest = errors.New("invalid request")
)

type (
	// Toolbox supplies tool handles. *tool.Resolver implements it.
	Toolbox interface {
		Acquire(ctx context.Context, kind tool.Kind) (*tool.Handle, error)
		Readers(ctx context.Context) ([]*tool.Handle, error)
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator sequences the tools that unpack, merge and repack packages.
	Orchestrator struct {
		tempDir   string
		keysPath  string
		suffix    string
		tools     Toolbox
		inspector *nca.Inspector
		logger    *log.Logger
	}
)

// New creates an Orchestrator for cfg drawing tools from tools.
func New(cfg config.Config, tools Toolbox, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tempDir:  cfg.TempDir,
		keysPath: cfg.Keys.TitlePath,
		suffix:   cfg.Output.PatchedSuffix,
		tools:    tools,
		logger:   log.Default().WithPrefix("pipeline"),
	}
	if o.suffix == "" {
		o.suffix = config.DefaultPatchedSuffix
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.inspector == nil {
		o.inspector = nca.New(nca.WithLogger(o.logger))
	}
	return o
}

// WithLogger sets the logger used by the orchestrator and its inspector.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithInspector overrides the content unit inspector.
func WithInspector(i *nca.Inspector) Option {
	return func(o *Orchestrator) {
		o.inspector = i
	}
}

func (o *Orchestrator) openPackage(path, role string) (*nsp.Package, error) {
	p, err := nsp.Open(path, nsp.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %s package: %w", ErrInvalidRequest, role, err)
	}
	return p, nil
}

func (o *Orchestrator) checkKeysPath() error {
	if o.keysPath == "" {
		return fmt.Errorf("%w: keys.title_path is not configured", ErrInvalidRequest)
	}
	return nil
}

// unpackPackages clears the keys file, unpacks every package into its data
// directory, derives the keys that are present and persists their union.
func (o *Orchestrator) unpackPackages(ctx context.Context, readers []*tool.Handle, pkgs []*nsp.Package, dataDirs []string) error {
	if err := keys.Clear(o.keysPath); err != nil {
		return err
	}

	var records []keys.Record
	for i, p := range pkgs {
		if err := p.UnpackWith(ctx, readers, dataDirs[i]); err != nil {
			return err
		}
		if err := p.DeriveKey(dataDirs[i]); err != nil {
			o.logger.Warn("no key material derived", "package", p, "err", err)
			continue
		}
		if rec, ok := p.Key(); ok {
			records = append(records, rec)
		}
	}

	records = keys.Merge(records...)
	o.logger.Debug("persisting keys", "path", o.keysPath, "records", len(records))
	return keys.Persist(records, o.keysPath)
}

// findUnits scans dir for the wanted categories with every reader in turn.
// The error names role and pkg together with each wanted category.
func (o *Orchestrator) findUnits(ctx context.Context, readers []*tool.Handle, role string, pkg *nsp.Package, dir string, wanted ...nca.Category) (nca.Groups, error) {
	groups, err := o.inspector.ScanAll(ctx, readers, dir, wanted...)
	if err != nil {
		names := make([]string, len(wanted))
		for i, c := range wanted {
			names[i] = c.String()
		}
		what := strings.Join(names, " and ")
		return nil, fmt.Errorf("failed to find %s %s unit(s) in '%s': %w: %w", role, what, pkg, ErrUnitNotFound, err)
	}
	return groups, nil
}

// classify inspects path with the readers in order until one reports want.
func (o *Orchestrator) classify(ctx context.Context, readers []*tool.Handle, path string, want nca.Category) (nca.Unit, error) {
	return tool.FirstSuccess(ctx, "classify "+path, readers, func(h *tool.Handle) (nca.Unit, error) {
		unit, err := o.inspector.Inspect(ctx, h, path)
		if err != nil {
			return nca.Unit{}, err
		}
		if unit.Category != want {
			return nca.Unit{}, fmt.Errorf("%w: %s is %s, want %s", ErrUnexpectedCategory, path, unit.Category, want)
		}
		return unit, nil
	})
}

// extractFS extracts the romfs and exefs of primary, layered with aux when
// it is a different unit, trying readers in order.
func (o *Orchestrator) extractFS(ctx context.Context, readers []*tool.Handle, primary, aux nca.Unit, romfs, exefs string) error {
	op, vars := tool.OpExtractFS, tool.Vars{
		tool.VarInput: primary.Path,
		tool.VarRomFS: romfs,
		tool.VarExeFS: exefs,
	}
	if aux.Path != primary.Path {
		op = tool.OpExtractPatchedFS
		vars[tool.VarBase] = primary.Path
		vars[tool.VarInput] = aux.Path
	}

	_, err := tool.FirstSuccess(ctx, "extract filesystems", readers, func(h *tool.Handle) (struct{}, error) {
		for _, dir := range []string{romfs, exefs} {
			if err := fsutil.RemoveAll(dir); err != nil {
				return struct{}{}, err
			}
			if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
				return struct{}{}, err
			}
		}
		o.logger.Info("extracting filesystems", "tool", h, "primary", primary.Path, "aux", aux.Path)
		_, err := h.Run(ctx, op, vars, tool.RunOptions{Stream: true})
		return struct{}{}, err
	})
	return err
}

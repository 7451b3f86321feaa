// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/nspatcher/nspatcher/internal/fsutil"
	"github.com/nspatcher/nspatcher/internal/nca"
	"github.com/nspatcher/nspatcher/internal/nsp"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"
)

type (
	// UpdateRequest names a base package and the update to merge into it.
	UpdateRequest struct {
		Base   string
		Update string
		OutDir string
	}

	// RepackRequest supplies extracted filesystems and the Control unit to
	// build a package from.
	RepackRequest struct {
		Control  string
		TitleID  types.TitleID
		RomFSDir string
		ExeFSDir string
		OutDir   string
	}

	// repackJob carries the inputs shared by Update and Repack.
	repackJob struct {
		titleID types.TitleID
		romfs   string
		exefs   string
		control string
		ncaDir  string
		workDir string
		outDir  string
	}
)

// Update merges the update package into the base package and writes the
// result to req.OutDir as <titleid><suffix>.nsp.
func (o *Orchestrator) Update(ctx context.Context, req UpdateRequest) (*nsp.Package, error) {
	if err := types.FilesystemPath(req.OutDir).Validate(); err != nil {
		return nil, fmt.Errorf("%w: output directory: %w", ErrInvalidRequest, err)
	}
	if err := o.checkKeysPath(); err != nil {
		return nil, err
	}
	base, err := o.openPackage(req.Base, "base")
	if err != nil {
		return nil, err
	}
	update, err := o.openPackage(req.Update, "update")
	if err != nil {
		return nil, err
	}

	readers, err := o.tools.Readers(ctx)
	if err != nil {
		return nil, err
	}
	packer, err := o.tools.Acquire(ctx, tool.KindHacpack)
	if err != nil {
		return nil, err
	}

	scope := NewScope(o.logger)
	defer func() { _ = scope.Close() }() //nolint:errcheck // failures are logged by Close

	baseTmp, err := scope.MkdirTemp(o.tempDir, "base")
	if err != nil {
		return nil, err
	}
	updateTmp, err := scope.MkdirTemp(o.tempDir, "update")
	if err != nil {
		return nil, err
	}
	baseData, updateData := filepath.Join(baseTmp, "basedata"), filepath.Join(updateTmp, "updatedata")

	o.logger.Info("unpacking packages", "base", req.Base, "update", req.Update)
	if err := o.unpackPackages(ctx, readers, []*nsp.Package{base, update}, []string{baseData, updateData}); err != nil {
		return nil, err
	}

	o.logger.Info("locating content units")
	baseGroups, err := o.findUnits(ctx, readers, "Base", base, baseData, nca.CategoryProgram)
	if err != nil {
		return nil, err
	}
	updateGroups, err := o.findUnits(ctx, readers, "Update", update, updateData, nca.CategoryProgram, nca.CategoryControl)
	if err != nil {
		return nil, err
	}
	baseProgram, _ := baseGroups.First(nca.CategoryProgram)
	updateProgram, _ := updateGroups.First(nca.CategoryProgram)
	control, _ := updateGroups.First(nca.CategoryControl)

	patchTmp, err := scope.MkdirTemp(o.tempDir, "patch")
	if err != nil {
		return nil, err
	}
	job := repackJob{
		titleID: baseProgram.ID.Truncate(),
		romfs:   filepath.Join(patchTmp, "romfs"),
		exefs:   filepath.Join(patchTmp, "exefs"),
		ncaDir:  filepath.Join(patchTmp, "nca"),
		workDir: patchTmp,
		outDir:  req.OutDir,
	}
	if job.titleID.IsZero() {
		return nil, fmt.Errorf("%w: base Program unit %s reports no title id", ErrUnitNotFound, baseProgram.Path)
	}

	if err := o.extractFS(ctx, readers, baseProgram, updateProgram, job.romfs, job.exefs); err != nil {
		o.logger.Warn("filesystem extraction failed, repacking what was extracted", "err", err)
	}

	job.control = filepath.Join(job.ncaDir, filepath.Base(control.Path))
	if err := fsutil.Move(control.Path, job.control); err != nil {
		return nil, err
	}

	scope.Release(baseTmp)
	scope.Release(updateTmp)

	final, err := o.repack(ctx, readers, packer, job)
	if err != nil {
		return nil, err
	}
	return nsp.Open(final, nsp.WithLogger(o.logger))
}

// Repack builds a package from extracted filesystems and a caller-supplied
// Control unit, which is copied and left in place.
func (o *Orchestrator) Repack(ctx context.Context, req RepackRequest) (*nsp.Package, error) {
	if err := validateRepack(req); err != nil {
		return nil, err
	}

	readers, err := o.tools.Readers(ctx)
	if err != nil {
		return nil, err
	}
	packer, err := o.tools.Acquire(ctx, tool.KindHacpack)
	if err != nil {
		return nil, err
	}

	if _, err := o.classify(ctx, readers, req.Control, nca.CategoryControl); err != nil {
		return nil, fmt.Errorf("validate control unit: %w", err)
	}

	scope := NewScope(o.logger)
	defer func() { _ = scope.Close() }() //nolint:errcheck // failures are logged by Close

	patchTmp, err := scope.MkdirTemp(o.tempDir, "patch")
	if err != nil {
		return nil, err
	}
	job := repackJob{
		titleID: req.TitleID.Truncate(),
		romfs:   req.RomFSDir,
		exefs:   req.ExeFSDir,
		ncaDir:  filepath.Join(patchTmp, "nca"),
		workDir: patchTmp,
		outDir:  req.OutDir,
	}
	job.control = filepath.Join(job.ncaDir, filepath.Base(req.Control))
	if err := fsutil.Copy(req.Control, job.control); err != nil {
		return nil, err
	}

	final, err := o.repack(ctx, readers, packer, job)
	if err != nil {
		return nil, err
	}
	return nsp.Open(final, nsp.WithLogger(o.logger))
}

func validateRepack(req RepackRequest) error {
	if err := req.TitleID.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !types.FilesystemPath(req.Control).HasExt(nca.Ext) {
		return fmt.Errorf("%w: control unit %q: %w", ErrInvalidRequest, req.Control, nca.ErrNotContentUnit)
	}
	if info, err := os.Stat(req.Control); err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: control unit %q does not exist", ErrInvalidRequest, req.Control)
	}
	for _, dir := range []string{req.RomFSDir, req.ExeFSDir} {
		if !fsutil.IsDir(dir) {
			return fmt.Errorf("%w: %q is not a directory", ErrInvalidRequest, dir)
		}
	}
	if err := types.FilesystemPath(req.OutDir).Validate(); err != nil {
		return fmt.Errorf("%w: output directory: %w", ErrInvalidRequest, err)
	}
	return nil
}

// repack packs the filesystems into a Program unit, generates the Meta unit
// and assembles every unit in job.ncaDir into the output package. It returns
// the output package path.
func (o *Orchestrator) repack(ctx context.Context, readers []*tool.Handle, packer *tool.Handle, job repackJob) (string, error) {
	backup := filepath.Join(job.workDir, "hacpack_backup")
	defer func() {
		if err := fsutil.RemoveAll(backup); err != nil {
			o.logger.Warn("failed to remove packer backup directory", "dir", backup, "err", err)
		}
	}()
	common := tool.Vars{
		tool.VarTitleID: job.titleID.String(),
		tool.VarTempDir: filepath.Join(job.workDir, "hacpack_temp"),
		tool.VarBackup:  backup,
	}

	o.logger.Info("packing program unit", "titleid", job.titleID)
	program, err := o.pack(ctx, packer, tool.OpPackProgram, common, tool.Vars{
		tool.VarRomFS: job.romfs,
		tool.VarExeFS: job.exefs,
	}, filepath.Join(job.workDir, "program"), nca.Ext)
	if err != nil {
		return "", err
	}
	patched := filepath.Join(job.ncaDir, filepath.Base(program))
	if err := fsutil.Move(program, patched); err != nil {
		return "", err
	}
	if _, err := o.classify(ctx, readers, patched, nca.CategoryProgram); err != nil {
		return "", fmt.Errorf("failed to find Patched Program unit: %w: %w", ErrUnitNotFound, err)
	}

	o.logger.Info("generating meta unit")
	meta, err := o.pack(ctx, packer, tool.OpPackMeta, common, tool.Vars{
		tool.VarProgram: patched,
		tool.VarControl: job.control,
	}, filepath.Join(job.workDir, "meta"), nca.Ext)
	if err != nil {
		return "", err
	}
	if err := fsutil.Move(meta, filepath.Join(job.ncaDir, filepath.Base(meta))); err != nil {
		return "", err
	}

	o.logger.Info("assembling package")
	pkg, err := o.pack(ctx, packer, tool.OpPackPackage, common, tool.Vars{
		tool.VarNCADir: job.ncaDir,
	}, filepath.Join(job.workDir, "package"), nsp.Ext)
	if err != nil {
		return "", err
	}

	final := filepath.Join(job.outDir, job.titleID.String()+o.suffix+nsp.Ext)
	if err := fsutil.Move(pkg, final); err != nil {
		return "", err
	}

	if digest, err := fsutil.Digest(final); err != nil {
		o.logger.Warn("failed to digest package", "path", final, "err", err)
	} else {
		o.logger.Info("wrote package", "path", final, "blake3", digest)
	}
	return final, nil
}

// pack runs op with outDir as a fresh output directory and returns the
// largest file with extension ext it produced.
func (o *Orchestrator) pack(ctx context.Context, packer *tool.Handle, op tool.Op, common, vars tool.Vars, outDir, ext string) (string, error) {
	if err := fsutil.RemoveAll(outDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", outDir, err)
	}

	all := tool.Vars{tool.VarOutDir: outDir}
	for k, v := range common {
		all[k] = v
	}
	for k, v := range vars {
		all[k] = v
	}
	if _, err := packer.Run(ctx, op, all, tool.RunOptions{Stream: true}); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return largestWithExt(outDir, ext, op)
}

func largestWithExt(dir, ext string, op tool.Op) (string, error) {
	type entry struct {
		path string
		size int64
	}
	var found []entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !types.FilesystemPath(path).HasExt(ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found = append(found, entry{path, info.Size()})
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%s: no %s file produced in %s: %w", op, ext, dir, ErrUnitNotFound)
	}
	return slices.MaxFunc(found, func(a, b entry) int {
		if c := cmp.Compare(a.size, b.size); c != 0 {
			return c
		}
		return cmp.Compare(b.path, a.path)
	}).path, nil
}

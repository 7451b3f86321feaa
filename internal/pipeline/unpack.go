// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nspatcher/nspatcher/internal/nca"
	"github.com/nspatcher/nspatcher/internal/nsp"
	"github.com/nspatcher/nspatcher/pkg/types"
)

type (
	// UnpackRequest names the packages to unpack. Update is optional.
	UnpackRequest struct {
		Base   string
		Update string
		OutDir string
	}

	// UnpackResult locates the extracted filesystems.
	UnpackResult struct {
		TitleID  types.TitleID
		RomFSDir string
		ExeFSDir string
	}
)

// Unpack unpacks the base package, and the update when given, into
// req.OutDir and extracts the merged romfs and exefs of their Program units.
// A failed filesystem extraction is logged and does not fail the call; the
// output directories may then be empty.
func (o *Orchestrator) Unpack(ctx context.Context, req UnpackRequest) (UnpackResult, error) {
	if err := types.FilesystemPath(req.OutDir).Validate(); err != nil {
		return UnpackResult{}, fmt.Errorf("%w: output directory: %w", ErrInvalidRequest, err)
	}
	if err := o.checkKeysPath(); err != nil {
		return UnpackResult{}, err
	}
	base, err := o.openPackage(req.Base, "base")
	if err != nil {
		return UnpackResult{}, err
	}
	pkgs := []*nsp.Package{base}
	dataDirs := []string{filepath.Join(req.OutDir, "basedata")}

	var update *nsp.Package
	if req.Update != "" {
		if update, err = o.openPackage(req.Update, "update"); err != nil {
			return UnpackResult{}, err
		}
		pkgs = append(pkgs, update)
		dataDirs = append(dataDirs, filepath.Join(req.OutDir, "updatedata"))
	}

	readers, err := o.tools.Readers(ctx)
	if err != nil {
		return UnpackResult{}, err
	}

	o.logger.Info("unpacking packages", "base", req.Base, "update", req.Update)
	if err := o.unpackPackages(ctx, readers, pkgs, dataDirs); err != nil {
		return UnpackResult{}, err
	}

	o.logger.Info("locating program units")
	baseGroups, err := o.findUnits(ctx, readers, "Base", base, dataDirs[0], nca.CategoryProgram)
	if err != nil {
		return UnpackResult{}, err
	}
	primary, _ := baseGroups.First(nca.CategoryProgram)
	aux := primary

	if update != nil {
		updateGroups, err := o.findUnits(ctx, readers, "Update", update, dataDirs[1], nca.CategoryProgram)
		if err != nil {
			return UnpackResult{}, err
		}
		aux, _ = updateGroups.First(nca.CategoryProgram)
	}

	res := UnpackResult{
		TitleID:  primary.ID.Lower(),
		RomFSDir: filepath.Join(req.OutDir, "romfs"),
		ExeFSDir: filepath.Join(req.OutDir, "exefs"),
	}
	if err := o.extractFS(ctx, readers, primary, aux, res.RomFSDir, res.ExeFSDir); err != nil {
		o.logger.Warn("filesystem extraction failed, output may be incomplete", "err", err)
	}
	return res, nil
}

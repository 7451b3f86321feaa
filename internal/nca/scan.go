// SPDX-License-Identifier: MPL-2.0

package nca

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"
)

// ErrMissingCategory is matched by every *MissingCategoryError.
var ErrMissingCategory = errors.New("content category not found")

type (
	// Groups maps each category to its units, largest first.
	Groups map[Category][]Unit

	// MissingCategoryError reports wanted categories a scan did not find.
	MissingCategoryError struct {
		Dir     string
		Missing []Category
		// Failed counts the units that could not be classified.
		Failed int
	}

	candidate struct {
		path string
		size int64
	}
)

// First returns the largest unit of c.
func (g Groups) First(c Category) (Unit, bool) {
	units := g[c]
	if len(units) == 0 {
		return Unit{}, false
	}
	return units[0], true
}

// Missing returns the wanted categories with no unit, in the order given.
func (g Groups) Missing(wanted ...Category) []Category {
	var out []Category
	for _, c := range wanted {
		if len(g[c]) == 0 {
			out = append(out, c)
		}
	}
	return out
}

// Error implements the error interface.
func (e *MissingCategoryError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = c.String()
	}
	msg := fmt.Sprintf("no %s unit in %s", strings.Join(names, " or "), e.Dir)
	if e.Failed > 0 {
		msg += fmt.Sprintf(" (%d unit(s) could not be classified)", e.Failed)
	}
	return msg
}

// Unwrap returns ErrMissingCategory for errors.Is() compatibility.
func (e *MissingCategoryError) Unwrap() error { return ErrMissingCategory }

// Scan classifies every content unit under dir with reader, largest file
// first, and groups the units of the wanted categories (all categories when
// none are given). Units that fail inspection are logged and skipped; only a
// walk failure is returned.
func (i *Inspector) Scan(ctx context.Context, reader *tool.Handle, dir string, wanted ...Category) (Groups, error) {
	groups, _, err := i.scan(ctx, reader, dir, wanted)
	return groups, err
}

func (i *Inspector) scan(ctx context.Context, reader *tool.Handle, dir string, wanted []Category) (Groups, int, error) {
	candidates, err := i.candidates(dir)
	if err != nil {
		return nil, 0, err
	}

	groups := Groups{}
	failed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, failed, err
		}
		unit, err := i.Inspect(ctx, reader, c.path)
		if err != nil {
			i.logger.Warn("skipping content unit", "tool", reader, "path", c.path, "err", err)
			failed++
			continue
		}
		if len(wanted) > 0 && !slices.Contains(wanted, unit.Category) {
			continue
		}
		groups[unit.Category] = append(groups[unit.Category], unit)
	}
	return groups, failed, nil
}

// candidates lists content units under dir by size descending, then path.
func (i *Inspector) candidates(dir string) ([]candidate, error) {
	var out []candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			i.logger.Warn("skipping unreadable entry", "path", path, "err", err)
			return nil
		}
		if d.IsDir() || !types.FilesystemPath(path).HasExt(Ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			i.logger.Warn("skipping unreadable entry", "path", path, "err", err)
			return nil
		}
		out = append(out, candidate{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	slices.SortFunc(out, func(a, b candidate) int {
		if c := cmp.Compare(b.size, a.size); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	return out, nil
}

// ScanAll scans dir with each reader in order and returns the first grouping
// holding every wanted category. When no reader finds them all, it returns
// the grouping covering the most categories along with a
// *tool.FallbackError listing what each reader missed.
func (i *Inspector) ScanAll(ctx context.Context, readers []*tool.Handle, dir string, wanted ...Category) (Groups, error) {
	fbErr := &tool.FallbackError{Step: "scan " + dir}
	var best Groups
	bestMissing := len(wanted) + 1

	for _, reader := range readers {
		groups, failed, err := i.scan(ctx, reader, dir, wanted)
		if err != nil {
			return nil, err
		}

		missing := groups.Missing(wanted...)
		if len(missing) == 0 {
			return groups, nil
		}
		if len(missing) < bestMissing {
			best, bestMissing = groups, len(missing)
		}
		fbErr.Attempts = append(fbErr.Attempts, fmt.Errorf("%s: %w", reader, &MissingCategoryError{
			Dir:     dir,
			Missing: missing,
			Failed:  failed,
		}))
	}

	if len(fbErr.Attempts) == 0 {
		fbErr.Attempts = append(fbErr.Attempts, fmt.Errorf("no reader: %w", tool.ErrUnavailable))
	}
	if best == nil {
		best = Groups{}
	}
	return best, fbErr
}

// SPDX-License-Identifier: MPL-2.0

package nca

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
)

const (
	// Ext is the content unit file extension.
	Ext = ".nca"

	contentTypeLabel = "Content Type:"
	// benignStderr is printed by readers for every unit whose title key is
	// not in the keys file, including units that need none.
	benignStderr = "failed to match key"
)

// ErrNotContentUnit is returned for paths without the content unit extension.
var ErrNotContentUnit = errors.New("not a content unit")

type (
	// Unit is one classified content unit.
	Unit struct {
		Path string
		// ID is the title id as reported; empty when the reader printed none.
		ID       types.TitleID
		Category Category
	}

	// Option configures an Inspector.
	Option func(*Inspector)

	// Inspector classifies content units with reader tools.
	Inspector struct {
		logger *log.Logger
	}
)

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{logger: log.Default().WithPrefix("nca")}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(i *Inspector) {
		i.logger = l
	}
}

// Inspect runs reader's info operation on path and parses the report.
// A non-zero exit is tolerated as long as the report names a category.
func (i *Inspector) Inspect(ctx context.Context, reader *tool.Handle, path string) (Unit, error) {
	if !types.FilesystemPath(path).HasExt(Ext) {
		return Unit{}, fmt.Errorf("%w: %s", ErrNotContentUnit, path)
	}

	res, err := reader.Run(ctx, tool.OpInfo, tool.Vars{tool.VarInput: path}, tool.RunOptions{})
	var execErr *tool.ExecError
	if err != nil && !errors.As(err, &execErr) {
		return Unit{}, err
	}
	if execErr != nil {
		i.logger.Warn("reader exited non-zero", "tool", reader, "path", path, "code", execErr.ExitCode)
	}
	if stderr := filterStderr(res.Stderr); stderr != "" {
		i.logger.Warn("reader stderr", "tool", reader, "path", path, "stderr", stderr)
	}

	id, rawCategory, found := parseReport(res.Stdout, reader.Kind.IDLabel())
	if !found {
		cerr := &ClassificationError{Path: path, Field: contentTypeLabel}
		if execErr != nil {
			cerr.Err = execErr
		} else {
			i.logger.Warn("unrecognized report", "tool", reader, "path", path, "stdout", res.Stdout)
		}
		return Unit{}, cerr
	}

	category, err := ParseCategory(rawCategory)
	if err != nil {
		i.logger.Warn("unrecognized report", "tool", reader, "path", path, "stdout", res.Stdout)
		var cerr *ClassificationError
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return Unit{}, err
	}

	return Unit{Path: path, ID: types.TitleID(id), Category: category}, nil
}

// parseReport returns the last token of the id line and of the content type
// line. found reports whether a content type line was present.
func parseReport(stdout, idLabel string) (id, category string, found bool) {
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case idLabel != "" && id == "" && strings.Contains(line, idLabel):
			id = lastToken(line)
		case !found && strings.Contains(line, contentTypeLabel):
			category = lastToken(line)
			found = true
		}
	}
	return id, category, found
}

func lastToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// filterStderr drops blank and benign lines.
func filterStderr(stderr string) string {
	var kept []string
	for line := range strings.Lines(stderr) {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, benignStderr) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

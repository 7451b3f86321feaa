// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

const (
	// OpUnpackPackage extracts a package's entries into {outdir}.
	OpUnpackPackage Op = iota + 1
	// OpInfo prints the report of a single content unit.
	OpInfo
	// OpExtractFS extracts the romfs and exefs trees of one content unit.
	OpExtractFS
	// OpExtractPatchedFS extracts romfs and exefs of {input} layered over {base}.
	OpExtractPatchedFS
	// OpPackProgram packs romfs and exefs trees into a Program unit.
	OpPackProgram
	// OpPackMeta generates a Meta unit for a Program and a Control unit.
	OpPackMeta
	// OpPackPackage assembles every unit of {ncadir} into a package.
	OpPackPackage
	// OpConvert converts a cartridge image into a package.
	OpConvert
)

// Template placeholders.
const (
	VarKeyset    = "keyset"
	VarTitleKeys = "titlekeys"
	VarOutDir    = "outdir"
	VarInput     = "input"
	VarBase      = "base"
	VarRomFS     = "romfs"
	VarExeFS     = "exefs"
	VarTitleID   = "titleid"
	VarProgram   = "program"
	VarControl   = "control"
	VarNCADir    = "ncadir"
	VarBackup    = "backup"
	VarTempDir   = "tempdir"
)

var (
	// ErrUnsupportedOp is returned when a tool does not implement an operation.
	ErrUnsupportedOp = errors.New("operation not supported by tool")
	// ErrTemplate is the sentinel error wrapped by TemplateError.
	ErrTemplate = errors.New("invalid argument template")

	placeholderPattern = regexp.MustCompile(`\{([a-z]+)\}`)

	knownVars = []string{
		VarKeyset, VarTitleKeys, VarOutDir, VarInput, VarBase, VarRomFS, VarExeFS,
		VarTitleID, VarProgram, VarControl, VarNCADir, VarBackup, VarTempDir,
	}

	opNames = map[Op]string{
		OpUnpackPackage:    "unpack-package",
		OpInfo:             "info",
		OpExtractFS:        "extract-fs",
		OpExtractPatchedFS: "extract-patched-fs",
		OpPackProgram:      "pack-program",
		OpPackMeta:         "pack-meta",
		OpPackPackage:      "pack-package",
		OpConvert:          "convert",
	}
)

type (
	// Op is an operation a tool may implement.
	Op int

	// Vars maps template placeholders to values.
	Vars map[string]string

	// TemplateError reports a placeholder that is unknown or has no value.
	TemplateError struct {
		Kind        Kind
		Op          Op
		Placeholder string
		Unknown     bool
	}
)

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("%s %s: unknown placeholder {%s}", e.Kind, e.Op, e.Placeholder)
	}
	return fmt.Sprintf("%s %s: no value for placeholder {%s}", e.Kind, e.Op, e.Placeholder)
}

// Unwrap returns ErrTemplate for errors.Is() compatibility.
func (e *TemplateError) Unwrap() error { return ErrTemplate }

// with returns a copy of v overlaid with other.
func (v Vars) with(other Vars) Vars {
	out := make(Vars, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

// Args expands the argument template of op for kind.
func (k Kind) Args(op Op, vars Vars) ([]string, error) {
	tmpl, ok := specs[k].templates[op]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", k, op, ErrUnsupportedOp)
	}

	args := make([]string, 0, len(tmpl))
	for _, token := range tmpl {
		var expandErr error
		expanded := placeholderPattern.ReplaceAllStringFunc(token, func(m string) string {
			name := m[1 : len(m)-1]
			if !slices.Contains(knownVars, name) {
				expandErr = &TemplateError{Kind: k, Op: op, Placeholder: name, Unknown: true}
				return m
			}
			val, ok := vars[name]
			if !ok || val == "" {
				expandErr = &TemplateError{Kind: k, Op: op, Placeholder: name}
				return m
			}
			return val
		})
		if expandErr != nil {
			return nil, expandErr
		}
		args = append(args, expanded)
	}
	return args, nil
}

// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nspatcher/nspatcher/pkg/platform"
)

const (
	// KindHacpack is the legacy packer.
	KindHacpack Kind = iota + 1
	// KindHactool is the legacy reader.
	KindHactool
	// KindHac2l is the modern multi-purpose reader.
	KindHac2l
	// KindHactoolnet is the fast reader.
	KindHactoolnet
	// Kind4nxci converts cartridge images to packages.
	Kind4nxci
)

// ErrInvalidKind is returned when a tool name or Kind value is not recognized.
var ErrInvalidKind = errors.New("invalid tool kind")

type (
	// Kind identifies one external tool role.
	Kind int

	// InvalidKindError is returned when a tool name does not match any Kind.
	InvalidKindError struct {
		Value string
	}

	kindSpec struct {
		name string
		// idLabel is the label preceding the title id in the tool's info report.
		idLabel string
		// bundled reports whether a prebuilt binary ships for the target.
		bundled func(platform.Target) bool
		// buildable reports whether the tool can be built from source on the target.
		buildable func(platform.Target) bool
		repo      string
		// recipe is a POSIX shell snippet run in the source checkout. $JOBS holds the parallelism.
		recipe    string
		templates map[Op][]string
	}
)

var (
	allKinds = []Kind{KindHacpack, KindHactool, KindHac2l, KindHactoolnet, Kind4nxci}

	windowsAMD64 = func(t platform.Target) bool { return t.Is(platform.Windows, platform.AMD64) }
	anyAMD64     = func(t platform.Target) bool { return t.Arch == platform.AMD64 }
	unixLike     = func(t platform.Target) bool { return t.OS == platform.Linux || t.OS == platform.Darwin }
	never        = func(platform.Target) bool { return false }

	makeRecipe = `cp config.mk.template config.mk
make -j"$JOBS"`

	specs = map[Kind]kindSpec{
		KindHacpack: {
			name:      "hacpack",
			bundled:   windowsAMD64,
			buildable: unixLike,
			repo:      "https://github.com/The-4n/hacPack.git",
			recipe:    makeRecipe,
			templates: map[Op][]string{
				OpPackProgram: {
					"-k", "{keyset}", "-o", "{outdir}", "--type", "nca", "--ncatype", "program",
					"--titleid", "{titleid}", "--romfsdir", "{romfs}", "--exefsdir", "{exefs}",
					"--tempdir", "{tempdir}", "--backupdir", "{backup}",
				},
				OpPackMeta: {
					"-k", "{keyset}", "-o", "{outdir}", "--type", "nca", "--ncatype", "meta",
					"--titletype", "application", "--programnca", "{program}", "--controlnca", "{control}",
					"--titleid", "{titleid}", "--tempdir", "{tempdir}", "--backupdir", "{backup}",
				},
				OpPackPackage: {
					"-k", "{keyset}", "-o", "{outdir}", "--type", "nsp", "--ncadir", "{ncadir}",
					"--titleid", "{titleid}", "--tempdir", "{tempdir}", "--backupdir", "{backup}",
				},
			},
		},
		KindHactool: {
			name:      "hactool",
			idLabel:   "Title ID:",
			bundled:   windowsAMD64,
			buildable: unixLike,
			repo:      "https://github.com/SciresM/hactool.git",
			recipe:    makeRecipe,
			templates: map[Op][]string{
				OpUnpackPackage:    {"-k", "{keyset}", "-t", "pfs0", "--outdir={outdir}", "{input}"},
				OpInfo:             {"-k", "{keyset}", "--titlekeys={titlekeys}", "{input}"},
				OpExtractFS:        {"-k", "{keyset}", "--titlekeys={titlekeys}", "--romfsdir={romfs}", "--exefsdir={exefs}", "{input}"},
				OpExtractPatchedFS: {"-k", "{keyset}", "--titlekeys={titlekeys}", "--basenca={base}", "--romfsdir={romfs}", "--exefsdir={exefs}", "{input}"},
			},
		},
		KindHac2l: {
			name:      "hac2l",
			idLabel:   "Program Id:",
			bundled:   never,
			buildable: unixLike,
			repo:      "https://github.com/Atmosphere-NX/hac2l.git",
			recipe:    `make -j"$JOBS"`,
			templates: map[Op][]string{
				OpUnpackPackage:    {"-k", "{keyset}", "-t", "pfs", "--outdir={outdir}", "{input}"},
				OpInfo:             {"-k", "{keyset}", "--titlekeys={titlekeys}", "{input}"},
				OpExtractFS:        {"-k", "{keyset}", "--titlekeys={titlekeys}", "--romfsdir={romfs}", "--exefsdir={exefs}", "{input}"},
				OpExtractPatchedFS: {"-k", "{keyset}", "--titlekeys={titlekeys}", "--basenca={base}", "--romfsdir={romfs}", "--exefsdir={exefs}", "{input}"},
			},
		},
		KindHactoolnet: {
			name:      "hactoolnet",
			idLabel:   "TitleID:",
			bundled:   anyAMD64,
			buildable: never,
			templates: map[Op][]string{
				OpUnpackPackage:    {"-k", "{keyset}", "-t", "pfs0", "--outdir", "{outdir}", "{input}"},
				OpInfo:             {"-k", "{keyset}", "--titlekeys", "{titlekeys}", "-t", "nca", "{input}"},
				OpExtractFS:        {"-k", "{keyset}", "--titlekeys", "{titlekeys}", "-t", "nca", "--romfsdir", "{romfs}", "--exefsdir", "{exefs}", "{input}"},
				OpExtractPatchedFS: {"-k", "{keyset}", "--titlekeys", "{titlekeys}", "-t", "nca", "--basenca", "{base}", "--romfsdir", "{romfs}", "--exefsdir", "{exefs}", "{input}"},
			},
		},
		Kind4nxci: {
			name:      "4nxci",
			bundled:   windowsAMD64,
			buildable: unixLike,
			repo:      "https://github.com/The-4n/4NXCI.git",
			recipe:    makeRecipe,
			templates: map[Op][]string{
				OpConvert: {"-k", "{keyset}", "-t", "{tempdir}", "-o", "{outdir}", "{input}"},
			},
		},
	}
)

// Kinds returns every tool kind in a stable order.
func Kinds() []Kind {
	return slices.Clone(allKinds)
}

// ParseKind resolves a tool name ("hactool") to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range allKinds {
		if specs[k].name == name {
			return k, nil
		}
	}
	return 0, &InvalidKindError{Value: name}
}

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Value)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// String returns the tool's executable base name.
func (k Kind) String() string {
	if s, ok := specs[k]; ok {
		return s.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Validate returns an error if k is not a defined Kind.
func (k Kind) Validate() error {
	if _, ok := specs[k]; !ok {
		return &InvalidKindError{Value: k.String()}
	}
	return nil
}

// IDLabel returns the label that precedes the title id in the tool's info
// report, or "" for tools that cannot inspect content units.
func (k Kind) IDLabel() string {
	return specs[k].idLabel
}

// Filename returns the platform-suffixed executable name, such as
// "hactool-linux-amd64" or "hacpack-windows-amd64.exe".
func (k Kind) Filename(target platform.Target) string {
	return k.String() + "-" + target.OS + "-" + target.Arch + target.ExeSuffix()
}

// Bundled reports whether release builds ship a prebuilt binary for target.
// The Resolver still checks that the binary is actually embedded.
func (k Kind) Bundled(target platform.Target) bool {
	s, ok := specs[k]
	return ok && s.bundled(target)
}

// Buildable reports whether the tool can be built from source on target.
func (k Kind) Buildable(target platform.Target) bool {
	s, ok := specs[k]
	return ok && s.buildable(target) && s.repo != ""
}

// Available reports whether the tool can be acquired on target.
func (k Kind) Available(target platform.Target) bool {
	return k.Bundled(target) || k.Buildable(target)
}

// Supports reports whether the tool implements op.
func (k Kind) Supports(op Op) bool {
	_, ok := specs[k].templates[op]
	return ok
}

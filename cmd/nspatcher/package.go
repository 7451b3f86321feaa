// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"

	"github.com/nspatcher/nspatcher/internal/convert"
	"github.com/nspatcher/nspatcher/internal/pipeline"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/fspath"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/spf13/cobra"
)

type repackFlagValues struct {
	control string
	titleID string
	romfs   string
	exefs   string
	outDir  string
}

// newUnpackCommand creates the `nspatcher unpack` command.
func newUnpackCommand(app *App) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "unpack BASE [UPDATE]",
		Short: "Extract the merged romfs and exefs of a package",
		Long: `Unpack a base package, and optionally its update, and extract the
romfs and exefs of the Program unit. When an update is given the update's
Program is layered over the base Program.

The output directory receives basedata/, updatedata/, romfs/ and exefs/.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpack(cmd, app, args, outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// newUpdateCommand creates the `nspatcher update` command.
func newUpdateCommand(app *App) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "update BASE UPDATE",
		Short: "Merge an update into its base package",
		Long: `Merge an update package into its base package and assemble a single
patched package named <titleid>` + "[patched]" + `.nsp in the output directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, app, args[0], args[1], outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// newRepackCommand creates the `nspatcher repack` command.
func newRepackCommand(app *App) *cobra.Command {
	var flags repackFlagValues

	cmd := &cobra.Command{
		Use:   "repack",
		Short: "Build a package from extracted filesystems",
		Long: `Build a package from a romfs and exefs tree, typically produced by
'nspatcher unpack' and then modified, together with the title's Control unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepack(cmd, app, flags)
		},
	}
	cmd.Flags().StringVar(&flags.control, "control", "", "Control unit (.nca) of the title (required)")
	cmd.Flags().StringVar(&flags.titleID, "titleid", "", "title id, 16 or more hex digits, cut to 16 (required)")
	cmd.Flags().StringVar(&flags.romfs, "romfs", "", "romfs directory (required)")
	cmd.Flags().StringVar(&flags.exefs, "exefs", "", "exefs directory (required)")
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (required)")
	for _, name := range []string{"control", "titleid", "romfs", "exefs", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// newConvertCommand creates the `nspatcher convert` command.
func newConvertCommand(app *App) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "convert XCI",
		Short: "Convert a cartridge image into packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, app, args[0], outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runUnpack(cmd *cobra.Command, app *App, args []string, outDir string) error {
	ctx := cmd.Context()
	cfg, tools, err := app.session(ctx)
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}
	verbose := app.verbose(cfg)

	paths, err := absPaths(append(slices.Clone(args), outDir)...)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}
	req := pipeline.UnpackRequest{Base: paths[0], OutDir: paths[len(paths)-1]}
	if len(args) == 2 {
		req.Update = paths[1]
	}

	if err := requireKeyset(cfg); err != nil {
		return app.fail(cmd, err, verbose)
	}

	res, err := app.orchestrator(cfg, tools).Unpack(ctx, req)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	fmt.Fprintf(app.stdout, "%s Unpacked title %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(res.TitleID.String()))
	fmt.Fprintf(app.stdout, "  romfs: %s\n", res.RomFSDir)
	fmt.Fprintf(app.stdout, "  exefs: %s\n", res.ExeFSDir)
	return nil
}

func runUpdate(cmd *cobra.Command, app *App, base, update, outDir string) error {
	ctx := cmd.Context()
	cfg, tools, err := app.session(ctx)
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}
	verbose := app.verbose(cfg)

	paths, err := absPaths(base, update, outDir)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}
	if err := requireKeyset(cfg); err != nil {
		return app.fail(cmd, err, verbose)
	}

	pkg, err := app.orchestrator(cfg, tools).Update(ctx, pipeline.UpdateRequest{
		Base:   paths[0],
		Update: paths[1],
		OutDir: paths[2],
	})
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	fmt.Fprintf(app.stdout, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(pkg.Path()))
	return nil
}

func runRepack(cmd *cobra.Command, app *App, flags repackFlagValues) error {
	ctx := cmd.Context()
	cfg, tools, err := app.session(ctx)
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}
	verbose := app.verbose(cfg)

	paths, err := absPaths(flags.control, flags.romfs, flags.exefs, flags.outDir)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}
	if err := requireKeyset(cfg); err != nil {
		return app.fail(cmd, err, verbose)
	}

	pkg, err := app.orchestrator(cfg, tools).Repack(ctx, pipeline.RepackRequest{
		Control:  paths[0],
		TitleID:  types.TitleID(flags.titleID),
		RomFSDir: paths[1],
		ExeFSDir: paths[2],
		OutDir:   paths[3],
	})
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	fmt.Fprintf(app.stdout, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(pkg.Path()))
	return nil
}

func runConvert(cmd *cobra.Command, app *App, src, outDir string) error {
	ctx := cmd.Context()
	cfg, tools, err := app.session(ctx)
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}
	verbose := app.verbose(cfg)

	paths, err := absPaths(src, outDir)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}
	if err := convert.ValidateSource(paths[0]); err != nil {
		return app.fail(cmd, err, verbose)
	}

	converter, err := tools.Acquire(ctx, tool.Kind4nxci)
	if err != nil {
		return app.fail(cmd, err, verbose)
	}
	out, err := app.converter(cfg).Convert(ctx, converter, paths[0], paths[1])
	if err != nil {
		return app.fail(cmd, err, verbose)
	}

	fmt.Fprintf(app.stdout, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(out))
	return nil
}

// absPaths resolves each path against the working directory.
func absPaths(paths ...string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := fspath.Resolve(types.FilesystemPath(p))
		if err != nil {
			return nil, err
		}
		out[i] = string(abs)
	}
	return out, nil
}

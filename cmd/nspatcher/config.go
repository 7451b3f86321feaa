// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/pkg/fspath"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `nspatcher config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nspatcher configuration",
		Long: `Manage nspatcher configuration.

Configuration is stored in:
  - Linux: ~/.config/nspatcher/config.cue
  - macOS: ~/Library/Application Support/nspatcher/config.cue
  - Windows: %APPDATA%\nspatcher\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, app)
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s: %s\n\n", CmdStyle.Render("Config file"), configFileLabel(app.flags.configPath))
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

// configFileLabel names the file the configuration was read from.
func configFileLabel(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return SubtitleStyle.Render("(using defaults)")
	}
	path := fspath.JoinStr(types.FilesystemPath(cfgDir), config.ConfigFileName+"."+config.ConfigFileExt)
	if info, err := os.Stat(string(path)); err != nil || info.IsDir() {
		return SubtitleStyle.Render("(using defaults)")
	}
	return string(path)
}

func initConfig(cmd *cobra.Command, app *App) error {
	path, created, err := config.CreateDefaultConfig("")
	if err != nil {
		return app.fail(cmd, fmt.Errorf("failed to create config: %w", err), app.flags.verbose)
	}

	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for nspatcher.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nspatcher/nspatcher/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nspatcher",
		Short: "Merge game updates into their base packages",
		Long: TitleStyle.Render("nspatcher") + SubtitleStyle.Render(" - Merge game updates into their base packages") + `

nspatcher drives external package tools (hactool, hac2l, hactoolnet,
hacpack and 4nxci) to unpack a base package and its update, merge their
Program filesystems and assemble a single patched package.

Tools are bundled per platform or built from their pinned upstream
sources on first use; run 'nspatcher tools setup' to provision them ahead.

` + SubtitleStyle.Render("Examples:") + `
  nspatcher update base.nsp update.nsp --out ./out    Build a patched package
  nspatcher unpack base.nsp update.nsp --out ./work   Extract merged romfs/exefs
  nspatcher repack --control ctl.nca --titleid 0100... \
    --romfs ./work/romfs --exefs ./work/exefs --out ./out
  nspatcher convert game.xci --out ./out             Convert a cartridge image
  nspatcher tools list                               Show tool cache state`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/nspatcher/config.cue)")

	rootCmd.AddCommand(
		newUnpackCommand(app),
		newUpdateCommand(app),
		newRepackCommand(app),
		newConvertCommand(app),
		newToolsCommand(app),
		newKeysCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command tree.
// This is called by main.main().
func Execute() {
	logger := log.NewWithOptions(os.Stderr, log.Options{})
	log.SetDefault(logger)

	app, err := NewApp(Dependencies{Logger: logger})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}

	// fang overrides rootCmd.Version, so the version goes through fang.WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

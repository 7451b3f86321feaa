// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nspatcher/nspatcher/internal/keys"

	"github.com/spf13/cobra"
)

// newKeysCommand creates the `nspatcher keys` command tree.
func newKeysCommand(app *App) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the title keys file",
		Long: `Manage the title keys file the reader tools decrypt content with.

The keys file holds one hex(rights id)=hex(title key) line per ticket. The
pipeline commands rewrite it from the tickets of the packages they unpack.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var appendMode bool
	extractCmd := &cobra.Command{
		Use:   "extract TICKET...",
		Short: "Write the key material of tickets to the keys file",
		Long: `Read the rights id and title key of each ticket and write them to the
keys file. A directory argument uses the first ticket found in it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return extractKeys(cmd, app, args, appendMode)
		},
	}
	extractCmd.Flags().BoolVar(&appendMode, "append", false, "keep the records already in the keys file")
	keysCmd.AddCommand(extractCmd)

	keysCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the keys file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showKeys(cmd, app)
		},
	})

	return keysCmd
}

func extractKeys(cmd *cobra.Command, app *App, tickets []string, appendMode bool) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}
	verbose := app.verbose(cfg)
	dest := cfg.Keys.TitlePath

	var records []keys.Record
	if appendMode {
		existing, readErr := keys.Read(dest)
		if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
			return app.fail(cmd, readErr, verbose)
		}
		records = existing
	}

	for _, path := range tickets {
		ticket, err := resolveTicket(path)
		if err != nil {
			return app.fail(cmd, err, verbose)
		}
		rec, err := keys.Extract(ticket)
		if err != nil {
			return app.fail(cmd, fmt.Errorf("extract %s: %w", ticket, err), verbose)
		}
		records = append(records, rec)
	}

	records = keys.Merge(records...)
	if err := keys.Persist(records, dest); err != nil {
		return app.fail(cmd, err, verbose)
	}

	fmt.Fprintf(app.stdout, "%s Wrote %d record(s) to %s\n", SuccessStyle.Render("✓"), len(records), CmdStyle.Render(dest))
	return nil
}

// resolveTicket returns path itself, or the first ticket when path is a directory.
func resolveTicket(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	return keys.FindTicket(path)
}

func showKeys(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}
	path := cfg.Keys.TitlePath

	records, err := keys.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Keys file"), SubtitleStyle.Render(path+" (not created yet)"))
		return nil
	}
	if err != nil {
		return app.fail(cmd, err, app.verbose(cfg))
	}

	fmt.Fprintf(app.stdout, "%s: %s\n\n", CmdStyle.Render("Keys file"), path)
	if len(records) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(empty)"))
		return nil
	}
	for _, rec := range records {
		fmt.Fprintln(app.stdout, rec.String())
	}
	return nil
}

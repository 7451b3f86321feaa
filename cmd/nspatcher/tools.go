// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/nspatcher/nspatcher/internal/tool"

	"github.com/spf13/cobra"
)

const shortDigestLen = 12

// newToolsCommand creates the `nspatcher tools` command tree.
func newToolsCommand(app *App) *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the external tool cache",
		Long: `Manage the external tools nspatcher drives.

Tools are resolved from the cache directory. A missing tool is written
from the embedded binaries for the platform or, where none is bundled,
built from its pinned upstream revision.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Provision every tool available on this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setupTools(cmd, app)
		},
	})

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the tool cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTools(cmd, app)
		},
	})

	return toolsCmd
}

func setupTools(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	cfg, tools, err := app.session(ctx)
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}

	handles, acquireErr := tools.AcquireAll(ctx)
	for _, h := range handles {
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(h.Kind.String()), SubtitleStyle.Render(h.Path))
	}
	if acquireErr != nil {
		return app.fail(cmd, acquireErr, app.verbose(cfg))
	}

	fmt.Fprintf(app.stdout, "\n%d tool(s) ready for %s\n", len(handles), tools.Target())
	return nil
}

func listTools(cmd *cobra.Command, app *App) error {
	cfg, tools, err := app.session(cmd.Context())
	if err != nil {
		return app.fail(cmd, err, app.flags.verbose)
	}

	statuses, err := tools.List()
	if err != nil {
		return app.fail(cmd, err, app.verbose(cfg))
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Tools for "+tools.Target().String()))
	fmt.Fprintln(app.stdout)
	for _, st := range statuses {
		fmt.Fprintf(app.stdout, "%-12s %s\n", CmdStyle.Render(st.Kind.String()), describeStatus(st))
	}
	return nil
}

// describeStatus summarizes where a tool comes from and whether it is cached.
func describeStatus(st tool.Status) string {
	var state string
	switch {
	case st.Cached:
		state = SuccessStyle.Render("cached")
	case st.Bundled:
		state = "bundled"
	case st.Buildable:
		state = "build from source"
	default:
		return WarningStyle.Render("unavailable")
	}

	var details []string
	if st.Entry.Origin != "" {
		details = append(details, st.Entry.Origin)
	}
	if st.Entry.Revision != "" {
		details = append(details, "rev "+st.Entry.Revision)
	}
	if st.Entry.Digest != "" {
		digest := st.Entry.Digest
		if len(digest) > shortDigestLen {
			digest = digest[:shortDigestLen]
		}
		details = append(details, "blake3 "+digest)
	}
	if len(details) == 0 {
		return state
	}
	return state + " " + SubtitleStyle.Render("("+strings.Join(details, ", ")+")")
}

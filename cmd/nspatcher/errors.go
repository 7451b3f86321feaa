// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/internal/convert"
	"github.com/nspatcher/nspatcher/internal/issue"
	"github.com/nspatcher/nspatcher/internal/nca"
	"github.com/nspatcher/nspatcher/internal/nsp"
	"github.com/nspatcher/nspatcher/internal/pipeline"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	errConfigLoad     = errors.New("configuration could not be loaded")
	errKeysetNotFound = errors.New("keyset not found")
)

// classifyError maps a command failure to an issue catalogue ID and returns
// the styled message for CLI rendering. A zero ID means no catalogue entry applies.
func classifyError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	var acqErr *tool.AcquireError

	switch {
	case errors.Is(err, errKeysetNotFound):
		issueID = issue.KeysetNotFoundId
	case errors.Is(err, errConfigLoad), errors.Is(err, config.ErrInvalidConfig):
		issueID = issue.ConfigLoadFailedId
	case errors.Is(err, pipeline.ErrUnitNotFound), errors.Is(err, pipeline.ErrUnexpectedCategory):
		issueID = issue.ContentUnitMissingId
	case errors.As(err, &acqErr) && isBuildStage(acqErr.Stage):
		issueID = issue.ToolBuildFailedId
	case errors.Is(err, tool.ErrUnavailable):
		issueID = issue.ToolUnavailableId
	case errors.Is(err, nsp.ErrNotPackage), errors.Is(err, convert.ErrNotCartridge),
		errors.Is(err, nca.ErrNotContentUnit), errors.Is(err, tool.ErrFallback):
		issueID = issue.PackageInvalidId
	case errors.Is(err, os.ErrPermission):
		issueID = issue.PermissionDeniedId
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

func isBuildStage(s tool.Stage) bool {
	switch s {
	case tool.StageClone, tool.StageBuild, tool.StageArtifact:
		return true
	default:
		return false
	}
}

// exitCodeFor returns types.ExitUsage for requests rejected before any tool ran.
func exitCodeFor(err error) types.ExitCode {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest),
		errors.Is(err, types.ErrInvalidTitleID),
		errors.Is(err, types.ErrInvalidFilesystemPath),
		errors.Is(err, convert.ErrNotCartridge):
		return types.ExitUsage
	default:
		return types.ExitFailure
	}
}

// fail renders err with its catalogue entry to the App's stderr and returns
// the ExitError the command should report. Cobra's own error output is
// silenced so the failure is printed once.
func (a *App) fail(cmd *cobra.Command, err error, verbose bool) error {
	if err == nil {
		return nil
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	issueID, styled := classifyError(err, verbose)
	renderIssue(a.stderr, styled, issueID)
	return &ExitError{Code: exitCodeFor(err), Err: err}
}

// renderIssue prints the styled message followed by the catalogue entry, if any.
func renderIssue(w io.Writer, styled string, issueID issue.Id) {
	fmt.Fprint(w, styled)

	if issueID == 0 {
		return
	}
	entry := issue.Get(issueID)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		log.Warn("failed to render issue catalog entry", "issueID", issueID, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}

// requireKeyset fails with an actionable error when the console keyset is missing.
func requireKeyset(cfg *config.Config) error {
	if _, err := os.Stat(cfg.Keys.ProdPath); err != nil {
		return issue.Failed("locate keyset").
			On(cfg.Keys.ProdPath).
			Hint("Set keys.prod_path in your configuration").
			Because(fmt.Errorf("%w: %w", errKeysetNotFound, err)).
			Err()
	}
	return nil
}

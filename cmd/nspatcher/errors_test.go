// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/internal/convert"
	"github.com/nspatcher/nspatcher/internal/issue"
	"github.com/nspatcher/nspatcher/internal/nsp"
	"github.com/nspatcher/nspatcher/internal/pipeline"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/types"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantIssueID issue.Id
		wantInStyle string
	}{
		{
			name:        "missing keyset",
			err:         fmt.Errorf("%w: stat prod.keys", errKeysetNotFound),
			wantIssueID: issue.KeysetNotFoundId,
			wantInStyle: "stat prod.keys",
		},
		{
			name:        "config load",
			err:         fmt.Errorf("%w: bad cue", errConfigLoad),
			wantIssueID: issue.ConfigLoadFailedId,
			wantInStyle: "bad cue",
		},
		{
			name:        "invalid config",
			err:         &config.InvalidConfigError{},
			wantIssueID: issue.ConfigLoadFailedId,
		},
		{
			name:        "unit missing wins over reader fallback",
			err:         fmt.Errorf("find units: %w: %w", pipeline.ErrUnitNotFound, &tool.FallbackError{Step: "scan", Attempts: []error{errors.New("x")}}),
			wantIssueID: issue.ContentUnitMissingId,
		},
		{
			name:        "build stage",
			err:         &tool.AcquireError{Kind: tool.KindHac2l, Stage: tool.StageBuild, Err: errors.New("make failed")},
			wantIssueID: issue.ToolBuildFailedId,
			wantInStyle: "make failed",
		},
		{
			name:        "clone stage",
			err:         &tool.AcquireError{Kind: tool.KindHactool, Stage: tool.StageClone, Err: errors.New("no network")},
			wantIssueID: issue.ToolBuildFailedId,
		},
		{
			name:        "unavailable",
			err:         &tool.AcquireError{Kind: tool.KindHactoolnet, Stage: tool.StageLookup, Err: tool.ErrUnavailable},
			wantIssueID: issue.ToolUnavailableId,
		},
		{
			name:        "not a package",
			err:         fmt.Errorf("%w: base package: %w", pipeline.ErrInvalidRequest, nsp.ErrNotPackage),
			wantIssueID: issue.PackageInvalidId,
		},
		{
			name:        "every reader failed",
			err:         &tool.FallbackError{Step: "classify", Attempts: []error{tool.ErrExec}},
			wantIssueID: issue.PackageInvalidId,
		},
		{
			name:        "permission denied",
			err:         fmt.Errorf("write: %w", os.ErrPermission),
			wantIssueID: issue.PermissionDeniedId,
		},
		{
			name:        "unclassified",
			err:         errors.New("something else"),
			wantIssueID: 0,
			wantInStyle: "something else",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotID, styled := classifyError(tt.err, false)
			if gotID != tt.wantIssueID {
				t.Errorf("issue id = %d, want %d", gotID, tt.wantIssueID)
			}
			if !strings.Contains(styled, "Error:") || !strings.Contains(styled, tt.wantInStyle) {
				t.Errorf("styled = %q, want Error: and %q", styled, tt.wantInStyle)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"invalid request", fmt.Errorf("%w: x", pipeline.ErrInvalidRequest), types.ExitUsage},
		{"invalid title id", &types.InvalidTitleIDError{Value: "x"}, types.ExitUsage},
		{"empty path", &types.InvalidFilesystemPathError{}, types.ExitUsage},
		{"not a cartridge", fmt.Errorf("%w: game.nsp", convert.ErrNotCartridge), types.ExitUsage},
		{"tool failure", &tool.ExecError{Kind: tool.KindHacpack, Op: tool.OpPackMeta, ExitCode: 1}, types.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequireKeyset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "prod.keys")
	if err := os.WriteFile(present, []byte("k = v\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Keys.ProdPath = present
	if err := requireKeyset(cfg); err != nil {
		t.Errorf("requireKeyset() error = %v, want nil", err)
	}

	cfg.Keys.ProdPath = filepath.Join(dir, "missing.keys")
	err := requireKeyset(cfg)
	if !errors.Is(err, errKeysetNotFound) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("requireKeyset() error = %v, want errKeysetNotFound and ErrNotExist", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Resource != cfg.Keys.ProdPath {
		t.Errorf("error = %#v, want ActionableError naming the keyset", err)
	}
}

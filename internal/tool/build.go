// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/nspatcher/nspatcher/internal/shell"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// errArtifactNotFound is returned when a build leaves no binary behind.
var errArtifactNotFound = errors.New("build artifact not found")

type (
	// BuildRequest describes one source build.
	BuildRequest struct {
		Kind     Kind
		Repo     string
		Revision string
		Recipe   string
		Jobs     int
		// WorkDir is an empty scratch directory owned by the caller.
		WorkDir string
	}

	// Builder produces a tool binary from source and returns its path.
	Builder interface {
		Build(ctx context.Context, req BuildRequest) (string, error)
	}

	// CloneFunc fetches repo at revision into dest.
	CloneFunc func(ctx context.Context, repo, revision, dest string) error

	// SourceBuilder clones the upstream repository with go-git and runs the
	// build recipe with the in-process shell.
	SourceBuilder struct {
		clone  CloneFunc
		output io.Writer
		logger *log.Logger
	}
)

// NewSourceBuilder creates a SourceBuilder. Build output is written to output
// (discarded when nil) and the tail of a failing build is kept in the error.
func NewSourceBuilder(output io.Writer, logger *log.Logger) *SourceBuilder {
	if output == nil {
		output = io.Discard
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SourceBuilder{clone: cloneRevision, output: output, logger: logger}
}

// BuildJobs returns the build parallelism: configured when positive,
// otherwise half the CPUs with a minimum of one.
func BuildJobs(configured int) int {
	if configured > 0 {
		return configured
	}
	return max(runtime.NumCPU()/2, 1)
}

// Build implements Builder. Failures are *AcquireError values naming the
// clone, build or artifact stage.
func (b *SourceBuilder) Build(ctx context.Context, req BuildRequest) (string, error) {
	src := filepath.Join(req.WorkDir, "src")

	b.logger.Info("cloning tool source", "tool", req.Kind, "repo", req.Repo, "revision", req.Revision)
	if err := b.clone(ctx, req.Repo, req.Revision, src); err != nil {
		return "", &AcquireError{Kind: req.Kind, Stage: StageClone, Err: err}
	}

	b.logger.Info("building tool", "tool", req.Kind, "jobs", req.Jobs)
	b.logger.Debug("recipe builtins served in-process", "commands", shell.Builtins())
	var stderr bytes.Buffer
	err := shell.Run(ctx, shell.Script{
		Source: req.Recipe,
		Name:   req.Kind.String() + " recipe",
		Dir:    src,
		Env:    append(os.Environ(), "JOBS="+strconv.Itoa(req.Jobs)),
		Stdout: b.output,
		Stderr: io.MultiWriter(b.output, &stderr),
	})
	if err != nil {
		if tail := lastLines(stderr.String(), 10); tail != "" {
			err = fmt.Errorf("%w\n%s", err, tail)
		}
		return "", &AcquireError{Kind: req.Kind, Stage: StageBuild, Err: err}
	}

	artifact, err := locateArtifact(src, req.Kind.String())
	if err != nil {
		return "", &AcquireError{Kind: req.Kind, Stage: StageArtifact, Err: err}
	}
	return artifact, nil
}

// cloneRevision clones repo into dest, checks out revision (a tag, branch or
// commit) and initializes submodules.
func cloneRevision(ctx context.Context, repo, revision, dest string) error {
	r, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:      repo,
		Progress: nil,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", repo, err)
	}

	hash, err := r.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		// Non-default branches only exist as remote-tracking refs after a clone.
		hash, err = r.ResolveRevision(plumbing.Revision("origin/" + revision))
		if err != nil {
			return fmt.Errorf("resolve revision %q: %w", revision, err)
		}
	}

	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", revision, err)
	}

	subs, err := wt.Submodules()
	if err != nil {
		return fmt.Errorf("list submodules: %w", err)
	}
	if len(subs) > 0 {
		if err := subs.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
			Init:              true,
			RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		}); err != nil {
			return fmt.Errorf("update submodules: %w", err)
		}
	}
	return nil
}

// locateArtifact finds the first regular file named name (or name.exe)
// under root in lexical walk order, skipping .git directories.
func locateArtifact(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if (d.Name() == name || d.Name() == name+".exe") && d.Type().IsRegular() {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w: no %s under %s", errArtifactNotFound, name, root)
	}
	return found, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

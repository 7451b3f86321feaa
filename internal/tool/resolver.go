// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/internal/fsutil"
	"github.com/nspatcher/nspatcher/pkg/platform"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type (
	// ResolverOption configures a Resolver.
	ResolverOption func(*Resolver)

	// Resolver locates tools in the cache directory, installing them from the
	// embedded binaries or from source when missing.
	Resolver struct {
		cacheDir   string
		tempDir    string
		tools      config.ToolsConfig
		jobs       int
		readerPref config.ReaderPreference
		defaults   Vars
		target     platform.Target
		bundled    fs.FS
		runner     Runner
		builder    Builder
		logger     *log.Logger
	}

	// Status describes one tool in the cache.
	Status struct {
		Kind      Kind
		Filename  string
		Path      string
		Cached    bool
		Bundled   bool
		Buildable bool
		// Entry is the manifest record; zero when the tool was placed manually.
		Entry ManifestEntry
	}
)

// NewResolver creates a Resolver for cfg.
func NewResolver(cfg config.Config, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cacheDir:   cfg.CacheDir,
		tempDir:    cfg.TempDir,
		tools:      cfg.Tools,
		jobs:       BuildJobs(cfg.Tools.BuildJobs),
		readerPref: cfg.Tools.ReaderPreference,
		defaults: Vars{
			VarKeyset:    cfg.Keys.ProdPath,
			VarTitleKeys: cfg.Keys.TitlePath,
		},
		target:  platform.Current(),
		bundled: BundledFS(),
		logger:  log.Default().WithPrefix("tool"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runner == nil {
		r.runner = NewExecRunner()
	}
	if r.builder == nil {
		r.builder = NewSourceBuilder(nil, r.logger)
	}
	return r
}

// WithTarget overrides the platform tools are resolved for.
func WithTarget(t platform.Target) ResolverOption {
	return func(r *Resolver) {
		r.target = t
	}
}

// WithBundled overrides the embedded binaries.
func WithBundled(fsys fs.FS) ResolverOption {
	return func(r *Resolver) {
		r.bundled = fsys
	}
}

// WithRunner sets the Runner handed to every Handle.
func WithRunner(runner Runner) ResolverOption {
	return func(r *Resolver) {
		r.runner = runner
	}
}

// WithBuilder sets the source builder.
func WithBuilder(b Builder) ResolverOption {
	return func(r *Resolver) {
		r.builder = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// Target returns the platform tools are resolved for.
func (r *Resolver) Target() platform.Target { return r.target }

// Acquire returns an executable Handle for kind. Resolution order: the cached
// file, the embedded binary, a source build. Failures are *AcquireError.
func (r *Resolver) Acquire(ctx context.Context, kind Kind) (*Handle, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	name := kind.Filename(r.target)
	path := filepath.Join(r.cacheDir, name)

	if r.cached(kind) {
		r.logger.Debug("using cached tool", "tool", kind, "path", path)
		return r.newHandle(kind, path), nil
	}

	embedded := r.embedded(kind)
	if !embedded && !kind.Buildable(r.target) {
		return nil, &AcquireError{Kind: kind, Stage: StageLookup, Err: fmt.Errorf("%w: %s", ErrUnavailable, r.target)}
	}
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return nil, &AcquireError{Kind: kind, Stage: StageLookup, Err: err}
	}

	var entry ManifestEntry
	if embedded {
		r.logger.Info("installing bundled tool", "tool", kind)
		if err := writeBundled(r.bundled, name, path); err != nil {
			return nil, &AcquireError{Kind: kind, Stage: StageBundled, Err: err}
		}
		entry.Origin = OriginBundled
	} else {
		rev, err := r.build(ctx, kind, path)
		if err != nil {
			return nil, err
		}
		entry = ManifestEntry{Origin: OriginSource, Revision: rev}
	}

	if err := os.Chmod(path, 0o755); err != nil {
		return nil, &AcquireError{Kind: kind, Stage: StageChmod, Err: err}
	}

	if err := r.record(kind, path, entry); err != nil {
		r.logger.Warn("failed to update tool manifest", "tool", kind, "err", err)
	}
	return r.newHandle(kind, path), nil
}

// embedded reports whether the binary for kind, plain or zstd-compressed,
// is present in the bundled assets for the resolver's target.
func (r *Resolver) embedded(kind Kind) bool {
	if r.bundled == nil {
		return false
	}
	name := kind.Filename(r.target)
	for _, candidate := range []string{name, name + ".zst"} {
		if info, err := fs.Stat(r.bundled, candidate); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// cached reports whether the cache directory already holds kind's binary.
func (r *Resolver) cached(kind Kind) bool {
	info, err := os.Stat(filepath.Join(r.cacheDir, kind.Filename(r.target)))
	return err == nil && info.Mode().IsRegular()
}

// acquirable reports whether Acquire can install kind when it is not cached.
func (r *Resolver) acquirable(kind Kind) bool {
	return r.embedded(kind) || kind.Buildable(r.target)
}

// build runs a source build for kind and moves the artifact to path.
// It returns the revision that was built.
func (r *Resolver) build(ctx context.Context, kind Kind, path string) (string, error) {
	rev, ok := r.tools.Revision(kind.String())
	if !ok {
		return "", &AcquireError{
			Kind:  kind,
			Stage: StageClone,
			Err:   fmt.Errorf("no pinned revision configured (tools.revisions.%s)", kind),
		}
	}

	workDir := filepath.Join(r.tempDir, "build-"+kind.String()+"-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", &AcquireError{Kind: kind, Stage: StageClone, Err: err}
	}
	defer func() {
		if err := fsutil.RemoveAll(workDir); err != nil {
			r.logger.Warn("failed to remove build directory", "dir", workDir, "err", err)
		}
	}()

	s := specs[kind]
	artifact, err := r.builder.Build(ctx, BuildRequest{
		Kind:     kind,
		Repo:     s.repo,
		Revision: rev,
		Recipe:   s.recipe,
		Jobs:     r.jobs,
		WorkDir:  workDir,
	})
	if err != nil {
		var acqErr *AcquireError
		if errors.As(err, &acqErr) {
			return "", err
		}
		return "", &AcquireError{Kind: kind, Stage: StageBuild, Err: err}
	}

	if err := fsutil.Move(artifact, path); err != nil {
		return "", &AcquireError{Kind: kind, Stage: StageArtifact, Err: err}
	}
	return rev, nil
}

func (r *Resolver) record(kind Kind, path string, entry ManifestEntry) error {
	digest, err := fsutil.Digest(path)
	if err != nil {
		return err
	}
	entry.Digest = digest

	m, err := loadManifest(r.cacheDir)
	if err != nil {
		return err
	}
	m.Tools[kind.Filename(r.target)] = entry
	return m.save(r.cacheDir)
}

func (r *Resolver) newHandle(kind Kind, path string) *Handle {
	return NewHandle(kind, path, r.runner, r.defaults, r.logger)
}

// AcquireAll acquires every tool available on the platform. Failures do not
// stop the remaining acquisitions; they are joined into the returned error.
func (r *Resolver) AcquireAll(ctx context.Context) ([]*Handle, error) {
	var (
		handles []*Handle
		errs    []error
	)
	for _, kind := range Kinds() {
		if !r.acquirable(kind) && !r.cached(kind) {
			r.logger.Debug("tool not available on platform", "tool", kind, "platform", r.target)
			continue
		}
		h, err := r.Acquire(ctx, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		handles = append(handles, h)
	}
	return handles, errors.Join(errs...)
}

// Readers acquires the reader tools in fallback order. A reader that cannot
// be acquired is skipped with a warning; the call fails only when no reader
// is left.
func (r *Resolver) Readers(ctx context.Context) ([]*Handle, error) {
	order := slices.DeleteFunc(ReaderOrder(r.readerPref, r.target), func(k Kind) bool {
		return !r.acquirable(k) && !r.cached(k)
	})
	if len(order) == 0 {
		return nil, fmt.Errorf("no reader tool for %s: %w", r.target, ErrUnavailable)
	}

	var (
		handles []*Handle
		errs    []error
	)
	for _, kind := range order {
		h, err := r.Acquire(ctx, kind)
		if err != nil {
			r.logger.Warn("reader unavailable, skipping", "tool", kind, "err", err)
			errs = append(errs, err)
			continue
		}
		handles = append(handles, h)
	}
	if len(handles) == 0 {
		return nil, errors.Join(errs...)
	}
	return handles, nil
}

// List reports every tool kind with its cache state for the platform.
func (r *Resolver) List() ([]Status, error) {
	m, err := loadManifest(r.cacheDir)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(allKinds))
	for _, kind := range Kinds() {
		name := kind.Filename(r.target)
		path := filepath.Join(r.cacheDir, name)
		_, statErr := os.Stat(path)
		out = append(out, Status{
			Kind:      kind,
			Filename:  name,
			Path:      path,
			Cached:    statErr == nil,
			Bundled:   r.embedded(kind),
			Buildable: kind.Buildable(r.target),
			Entry:     m.Tools[name],
		})
	}
	return out, nil
}

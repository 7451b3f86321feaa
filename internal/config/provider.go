// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspatcher/nspatcher/pkg/types"
)

// ErrInvalidLoadOptions is returned when a LoadOptions path is set but blank.
var ErrInvalidLoadOptions = errors.New("invalid load options")

type (
	// LoadOptions selects where configuration is read from. Empty fields
	// fall back to the per-user config directory.
	LoadOptions struct {
		ConfigFilePath types.FilesystemPath
		ConfigDirPath  types.FilesystemPath
	}

	// Provider loads the effective configuration.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	cueProvider struct{}
)

// Validate rejects blank (whitespace-only) paths. The returned error wraps
// ErrInvalidLoadOptions and every field's types.ErrInvalidFilesystemPath.
func (o LoadOptions) Validate() error {
	var errs []error
	if o.ConfigFilePath != "" {
		errs = append(errs, o.ConfigFilePath.Validate())
	}
	if o.ConfigDirPath != "" {
		errs = append(errs, o.ConfigDirPath.Validate())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLoadOptions, err)
	}
	return nil
}

// NewProvider returns the Provider backed by config.cue and viper defaults.
func NewProvider() Provider { return cueProvider{} }

func (cueProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

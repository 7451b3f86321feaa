// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// ReaderAuto keeps the built-in reader order for the current platform.
	ReaderAuto ReaderPreference = "auto"
	// ReaderHactoolnet prefers hactoolnet.
	ReaderHactoolnet ReaderPreference = "hactoolnet"
	// ReaderHac2l prefers hac2l.
	ReaderHac2l ReaderPreference = "hac2l"
	// ReaderHactool prefers hactool.
	ReaderHactool ReaderPreference = "hactool"

	// DefaultPatchedSuffix is appended to the title id of assembled packages.
	DefaultPatchedSuffix = "[patched]"
)

var (
	// ErrInvalidReaderPreference is returned when a ReaderPreference value is not recognized.
	ErrInvalidReaderPreference = errors.New("invalid reader preference")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	// defaultRevisions pins the upstream sources of tools built on platforms
	// without a bundled binary.
	defaultRevisions = map[string]string{
		"hactool": "1.4.0",
		"hac2l":   "master",
		"hacpack": "v1.36",
		"4nxci":   "v4.03",
	}
)

type (
	// ReaderPreference names the reader tool tried first by fallback steps.
	ReaderPreference string

	// InvalidReaderPreferenceError is returned when a ReaderPreference value is not recognized.
	// It wraps ErrInvalidReaderPreference for errors.Is() compatibility.
	InvalidReaderPreferenceError struct {
		Value ReaderPreference
	}

	// InvalidConfigError is returned when a loaded Config fails validation.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the effective nspatcher configuration. It is passed by value
	// into components at construction time.
	Config struct {
		// TempDir is the root for per-run scratch directories.
		TempDir string `json:"temp_dir" mapstructure:"temp_dir"`
		// CacheDir stores resolved tool executables.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// Keys locates the keyset and the title keys file.
		Keys KeysConfig `json:"keys" mapstructure:"keys"`
		// Tools configures tool acquisition and selection.
		Tools ToolsConfig `json:"tools" mapstructure:"tools"`
		// Output configures produced file names.
		Output OutputConfig `json:"output" mapstructure:"output"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// KeysConfig locates key material on disk.
	KeysConfig struct {
		// ProdPath is the user supplied console keyset. Never written.
		ProdPath string `json:"prod_path" mapstructure:"prod_path"`
		// TitlePath is the keys file rewritten from ticket files.
		TitlePath string `json:"title_path" mapstructure:"title_path"`
	}

	// ToolsConfig configures external tools.
	ToolsConfig struct {
		ReaderPreference ReaderPreference `json:"reader_preference" mapstructure:"reader_preference"`
		// BuildJobs is the build parallelism; 0 selects half the CPUs (min 1).
		BuildJobs int `json:"build_jobs" mapstructure:"build_jobs"`
		// Revisions pins the upstream revision per tool name.
		Revisions map[string]string `json:"revisions" mapstructure:"revisions"`
	}

	// OutputConfig configures produced packages.
	OutputConfig struct {
		PatchedSuffix string `json:"patched_suffix" mapstructure:"patched_suffix"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ReaderPreference.
func (p ReaderPreference) String() string { return string(p) }

// Validate returns an error if the ReaderPreference is not one of the defined values.
// The zero value is treated as ReaderAuto.
func (p ReaderPreference) Validate() error {
	switch p {
	case "", ReaderAuto, ReaderHactoolnet, ReaderHac2l, ReaderHactool:
		return nil
	default:
		return &InvalidReaderPreferenceError{Value: p}
	}
}

// Error implements the error interface for InvalidReaderPreferenceError.
func (e *InvalidReaderPreferenceError) Error() string {
	return fmt.Sprintf("invalid reader preference %q (valid: auto, hactoolnet, hac2l, hactool)", e.Value)
}

// Unwrap returns ErrInvalidReaderPreference for errors.Is() compatibility.
func (e *InvalidReaderPreferenceError) Unwrap() error { return ErrInvalidReaderPreference }

// Validate returns an error describing every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.TempDir == "" {
		errs = append(errs, errors.New("temp_dir: must be non-empty"))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir: must be non-empty"))
	}
	if err := c.Tools.ReaderPreference.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Tools.BuildJobs < 0 {
		errs = append(errs, fmt.Errorf("tools.build_jobs: must be >= 0, got %d", c.Tools.BuildJobs))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Revision returns the pinned upstream revision for a tool name.
func (t ToolsConfig) Revision(name string) (string, bool) {
	rev, ok := t.Revisions[name]
	return rev, ok && rev != ""
}

// revisionNames returns the configured tool names in sorted order.
func (t ToolsConfig) revisionNames() []string {
	names := make([]string, 0, len(t.Revisions))
	for name := range t.Revisions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

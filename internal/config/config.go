// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nspatcher/nspatcher/internal/issue"
	"github.com/nspatcher/nspatcher/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "nspatcher"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the nspatcher directory under os.UserConfigDir:
// $XDG_CONFIG_HOME (or ~/.config) on Linux, ~/Library/Application Support on
// macOS and %AppData% on Windows.
//
//nolint:revive // config.Dir reads poorly at call sites
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// DefaultConfig returns the built-in configuration. Paths are derived from
// the user's cache and home directories; failures to resolve them fall back
// to the system temp directory.
func DefaultConfig() *Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}
	keysDir := filepath.Join(os.TempDir(), AppName, "keys")
	if home, err := os.UserHomeDir(); err == nil {
		keysDir = filepath.Join(home, ".switch")
	}

	revisions := make(map[string]string, len(defaultRevisions))
	for name, rev := range defaultRevisions {
		revisions[name] = rev
	}

	return &Config{
		TempDir:  filepath.Join(os.TempDir(), AppName),
		CacheDir: filepath.Join(cacheRoot, AppName),
		Keys: KeysConfig{
			ProdPath:  filepath.Join(keysDir, "prod.keys"),
			TitlePath: filepath.Join(keysDir, "title.keys"),
		},
		Tools: ToolsConfig{
			ReaderPreference: ReaderAuto,
			Revisions:        revisions,
		},
		Output: OutputConfig{PatchedSuffix: DefaultPatchedSuffix},
	}
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("temp_dir", defaults.TempDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("keys.prod_path", defaults.Keys.ProdPath)
	v.SetDefault("keys.title_path", defaults.Keys.TitlePath)
	v.SetDefault("tools.reader_preference", defaults.Tools.ReaderPreference)
	v.SetDefault("tools.build_jobs", defaults.Tools.BuildJobs)
	v.SetDefault("output.patched_suffix", defaults.Output.PatchedSuffix)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return nil, "", issue.Failed("load configuration").
				On(path).
				Hint("Verify the file path is correct").
				Hint("Use 'nspatcher config init' to create a default configuration").
				Because(fmt.Errorf("config file not found: %s", path)).
				Err()
		}
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolvedPath = path
	} else {
		cfgDir, err := configDirWithOverride(string(opts.ConfigDirPath))
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", loadError(cuePath, err)
			}
			resolvedPath = cuePath
		}
		// No config file: defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Revisions merge key by key so a partial map keeps the other pins.
	merged := defaults.Tools.Revisions
	for name, rev := range cfg.Tools.Revisions {
		merged[name] = rev
	}
	cfg.Tools.Revisions = merged

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.Failed("validate configuration").
			On(resolvedPath).
			Because(err).
			Err()
	}

	return &cfg, resolvedPath, nil
}

func loadError(path string, err error) error {
	return issue.Failed("load configuration").
		On(path).
		Hint("Check that the file contains valid CUE syntax").
		Hint("Run 'nspatcher config show' to see the effective configuration").
		Because(err).
		Err()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// configSchemaValue compiles the embedded #Config definition in a fresh
// context; cue contexts are not safe for concurrent loads.
func configSchemaValue() (cue.Value, error) {
	v := cuecontext.New().CompileString(configSchema)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

// loadCUEIntoViper checks the file at path against #Config and merges the
// decoded values over the viper defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	schema, err := configSchemaValue()
	if err != nil {
		return err
	}
	user := schema.Context().CompileBytes(data, cue.Filename(path))
	if err := user.Err(); err != nil {
		return cueutil.FormatError(err, path)
	}

	unified := schema.Unify(user)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}
	var values map[string]any
	if err := unified.Decode(&values); err != nil {
		return cueutil.FormatError(err, path)
	}
	return v.MergeConfigMap(values)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir (the platform
// config directory when empty) unless one exists. It returns the file path
// and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// nspatcher configuration file\n\n")

	fmt.Fprintf(&sb, "temp_dir:  %q\n", cfg.TempDir)
	fmt.Fprintf(&sb, "cache_dir: %q\n", cfg.CacheDir)

	sb.WriteString("\nkeys: {\n")
	fmt.Fprintf(&sb, "\tprod_path:  %q\n", cfg.Keys.ProdPath)
	fmt.Fprintf(&sb, "\ttitle_path: %q\n", cfg.Keys.TitlePath)
	sb.WriteString("}\n")

	sb.WriteString("\ntools: {\n")
	pref := cfg.Tools.ReaderPreference
	if pref == "" {
		pref = ReaderAuto
	}
	fmt.Fprintf(&sb, "\treader_preference: %q\n", pref)
	fmt.Fprintf(&sb, "\tbuild_jobs: %d\n", cfg.Tools.BuildJobs)
	if len(cfg.Tools.Revisions) > 0 {
		sb.WriteString("\trevisions: {\n")
		for _, name := range cfg.Tools.revisionNames() {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", name, cfg.Tools.Revisions[name])
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tpatched_suffix: %q\n", cfg.Output.PatchedSuffix)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/internal/convert"
	"github.com/nspatcher/nspatcher/internal/pipeline"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/pkg/platform"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer; every Cobra command handler receives an App reference.
	App struct {
		Config ConfigProvider
		Tools  ToolsFactory
		logger *log.Logger
		stdout io.Writer
		stderr io.Writer

		// flags are bound to the root command's persistent flags.
		flags rootFlagValues
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Tools  ToolsFactory
		Logger *log.Logger
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// ToolService acquires and reports external tools. *tool.Resolver implements it.
	ToolService interface {
		pipeline.Toolbox
		AcquireAll(ctx context.Context) ([]*tool.Handle, error)
		List() ([]tool.Status, error)
		Target() platform.Target
	}

	// ToolsFactory builds the ToolService for a loaded configuration.
	ToolsFactory func(cfg config.Config, logger *log.Logger) ToolService

	rootFlagValues struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Tools == nil {
		deps.Tools = newResolver
	}
	if deps.Logger == nil {
		deps.Logger = log.NewWithOptions(deps.Stderr, log.Options{})
	}

	return &App{
		Config: deps.Config,
		Tools:  deps.Tools,
		logger: deps.Logger,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

func newResolver(cfg config.Config, logger *log.Logger) ToolService {
	return tool.NewResolver(cfg, tool.WithLogger(logger.WithPrefix("tool")))
}

// loadConfig loads the effective configuration honoring --config and applies
// the verbosity it selects to the App's logger.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(a.flags.configPath),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfigLoad, err)
	}

	if a.verbose(cfg) {
		a.logger.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// verbose reports whether debug output was requested by flag or configuration.
func (a *App) verbose(cfg *config.Config) bool {
	return a.flags.verbose || (cfg != nil && cfg.UI.Verbose)
}

// session loads the configuration and builds the services a pipeline command needs.
func (a *App) session(ctx context.Context) (*config.Config, ToolService, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a.Tools(*cfg, a.logger), nil
}

func (a *App) orchestrator(cfg *config.Config, tools ToolService) *pipeline.Orchestrator {
	return pipeline.New(*cfg, tools, pipeline.WithLogger(a.logger.WithPrefix("pipeline")))
}

func (a *App) converter(cfg *config.Config) *convert.Converter {
	return convert.New(cfg.TempDir, convert.WithLogger(a.logger.WithPrefix("convert")))
}

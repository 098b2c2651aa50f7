// Package app provides the application context and dependency management
// for the skusync CLI. It centralizes configuration, logging, and lazy
// construction of the registry and pipelines the commands share.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/pipeline"
	"github.com/agentstation/skusync/pkg/registry"
)

// App represents the skusync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Registry (lazy-initialized, singleton)
	mu       sync.RWMutex
	registry *registry.Registry
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Registry returns the SKU mapping registry, loading it lazily on first use.
// Thread-safe; every command of a run shares one registry.
func (a *App) Registry() (*registry.Registry, error) {
	a.mu.RLock()
	if a.registry != nil {
		reg := a.registry
		a.mu.RUnlock()
		return reg, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.registry != nil {
		return a.registry, nil
	}

	reg, err := registry.Load(a.config.MappingFile)
	if err != nil {
		return nil, err
	}
	a.registry = reg
	return reg, nil
}

// Pipeline builds a report pipeline from the app configuration.
func (a *App) Pipeline(dryRun bool) (*pipeline.Pipeline, error) {
	reg, err := a.Registry()
	if err != nil {
		return nil, err
	}

	cfg, err := a.config.PipelineConfig(dryRun)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(reg, cfg)
	if err != nil {
		return nil, errors.WrapConfig("pipeline", err)
	}
	return p, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithRegistry sets a custom registry (useful for testing).
func WithRegistry(reg *registry.Registry) Option {
	return func(a *App) error {
		a.registry = reg
		return nil
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/specialistvlad/burstgraph/internal/cache/provider"
	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/events"
	"github.com/specialistvlad/burstgraph/internal/hcl_adapter"
	"github.com/specialistvlad/burstgraph/internal/localexecutor"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/statusserver"
	"github.com/specialistvlad/burstgraph/internal/tracing"
	"github.com/specialistvlad/burstgraph/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   Config
	registry *registry.Registry
	loader   config.Loader
	cache    cache.Store
	recorder *events.Recorder
	bus      *events.Bus
	tracing  *tracing.Provider
	status   *statusserver.Server
	executor *localexecutor.Executor
}

// Option customizes an App.
type Option func(*options)

type options struct {
	modules []registry.Module
	loader  config.Loader
}

// WithModules replaces the built-in node kinds.
func WithModules(modules ...registry.Module) Option {
	return func(o *options) { o.modules = modules }
}

// WithLoader replaces the scene loader.
func WithLoader(l config.Loader) Option {
	return func(o *options) { o.loader = l }
}

// NewLoader returns the loader for every supported scene format.
func NewLoader() config.Loader {
	yamlLoader := yaml_adapter.NewLoader()
	return config.NewMultiLoader(map[string]config.Loader{
		".hcl":  hcl_adapter.NewLoader(),
		".yaml": yamlLoader,
		".yml":  yamlLoader,
	})
}

// New validates cfg and initializes every dependency. Node output and logs
// are written to outW. The caller must Close the App.
func New(ctx context.Context, outW io.Writer, cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.modules) == 0 {
		o.modules = CoreModules()
	}
	if o.loader == nil {
		o.loader = NewLoader()
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   o.loader,
		registry: registry.New(),
		recorder: events.NewRecorder(0),
	}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.registry.RegisterAll(o.modules...)
	logger.Debug("All Go modules registered.", "count", len(o.modules))

	var err error
	if a.cache, err = provider.Open(ctx, logger, cfg.CacheURL); err != nil {
		return nil, fmt.Errorf("%w: cache: %w", ErrInvalidConfig, err)
	}
	if a.bus, err = events.Open(cfg.Events, logger); err != nil {
		return nil, fmt.Errorf("%w: events: %w", ErrInvalidConfig, err)
	}
	if a.tracing, err = tracing.Setup(ctx, cfg.OTelEndpoint); err != nil {
		return nil, fmt.Errorf("%w: tracing: %w", ErrInvalidConfig, err)
	}

	a.executor = localexecutor.New(a.registry, a.cache,
		localexecutor.WithTracer(a.tracing.Tracer()),
		localexecutor.WithStdout(outW),
	)

	if cfg.StatusPort > 0 {
		a.status = statusserver.New(logger, a.recorder)
		if _, err = a.status.Start(fmt.Sprintf(":%d", cfg.StatusPort)); err != nil {
			a.status = nil
			return nil, fmt.Errorf("%w: status server: %w", ErrInvalidConfig, err)
		}
	}
	ready = true
	return a, nil
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Recorder returns the in-memory log of node status events.
func (a *App) Recorder() *events.Recorder {
	return a.recorder
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// publisher fans status events out to the recorder and the bus, if any.
func (a *App) publisher() events.Publisher {
	if a.bus == nil {
		return a.recorder
	}
	return events.Multi(a.recorder, a.bus)
}

// Close releases every dependency. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) error {
	a.logger.Debug("Closing application.")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if a.status != nil {
		a.logger.Info("🩺 Shutting down status server.")
		if err := a.status.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("status server: %w", err))
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	return errors.Join(errs...)
}

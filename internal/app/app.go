package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/livespan/internal/bridge"
	"github.com/vk/livespan/internal/compiler"
	"github.com/vk/livespan/internal/config"
	"github.com/vk/livespan/internal/ctxlog"
	"github.com/vk/livespan/internal/engine"
	"github.com/vk/livespan/internal/inmemoryscope"
	"github.com/vk/livespan/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	engine     *engine.Engine
	bridge     *bridge.Bridge
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry and
// scope graph. Configuration errors are fatal and panic.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	// The file may set the log level, so it is loaded with a bootstrap logger.
	var fileModel *config.Model
	if len(appConfig.ConfigPaths) > 0 {
		bootCtx := ctxlog.WithLogger(context.Background(), newLogger(appConfig.LogLevel, appConfig.LogFormat, false, outW))
		m, err := loader.Load(bootCtx, appConfig.ConfigPaths...)
		if err != nil {
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		fileModel = m
	} else {
		fileModel = &config.Model{}
	}
	if err := appConfig.applyFile(fileModel); err != nil {
		panic(fmt.Errorf("failed to apply configuration: %w", err))
	}

	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, appConfig.Journal, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	a := &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		bridge: bridge.New(bridge.Options{
			URL:                appConfig.BridgeURL,
			Namespace:          appConfig.BridgeNamespace,
			InsecureSkipVerify: appConfig.Insecure,
		}),
	}
	a.engine = engine.New(engine.Options{
		Graph:      inmemoryscope.New(),
		Components: reg,
		Compilers:  compiler.Defaults(),
		Syntax:     appConfig.Syntax,
		Delay:      appConfig.Debounce,
		Sink:       a.bridge,
	})
	a.loadComponents()
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

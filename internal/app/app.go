// Package app wires configuration, storage, transports and services into a
// runnable application.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/browser"
	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/orchestrator"
	"github.com/ternarybob/importo/internal/scheduler"
	"github.com/ternarybob/importo/internal/session"
	"github.com/ternarybob/importo/internal/transport"
	"github.com/ternarybob/importo/internal/webhook"
)

// App holds all application components and dependencies.
type App struct {
	Config       *common.Config
	Logger       arbor.ILogger
	SessionStore *session.Store
	Sink         *webhook.Sink
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *scheduler.Service
}

// New builds the application from a loaded configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	store, err := session.NewStore(config.Storage.Path, config.Storage.ResetOnStartup, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	sink := webhook.NewSink(config.Webhook.URL, config.Webhook.Timeout, logger)
	factory, err := navigatorFactory(config, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	o := orchestrator.New(config, store, sink, factory, logger)
	return &App{
		Config:       config,
		Logger:       logger,
		SessionStore: store,
		Sink:         sink,
		Orchestrator: o,
		Scheduler:    scheduler.NewService(o, config.Import.PollInterval, logger),
	}, nil
}

// navigatorFactory selects the engine for the authentication phase. Each
// cycle gets a fresh navigator; a browser engine in particular must not
// outlive its cycle.
func navigatorFactory(config *common.Config, logger arbor.ILogger) (interfaces.NavigatorFactory, error) {
	switch config.Engine.Type {
	case "", "http":
		return func(ctx context.Context) (interfaces.Navigator, error) {
			return transport.NewHTTPNavigator(config.Engine.UserAgent, config.Engine.RequestTimeout, logger)
		}, nil
	case "chromedp":
		return func(ctx context.Context) (interfaces.Navigator, error) {
			return browser.NewNavigator(browser.Options{
				Headless:  config.Engine.Headless,
				NoSandbox: config.Engine.NoSandbox,
				UserAgent: config.Engine.UserAgent,
				Timeout:   config.Engine.RequestTimeout,
			}, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s", config.Engine.Type)
	}
}

// Start launches the import scheduler.
func (a *App) Start(ctx context.Context) error {
	return a.Scheduler.Start(ctx)
}

// Stop shuts down the scheduler and releases storage.
func (a *App) Stop() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.SessionStore != nil {
		if err := a.SessionStore.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close session store")
		}
	}
}

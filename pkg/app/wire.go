package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glossahq/glossa/internal/config"
	"github.com/glossahq/glossa/internal/core"
	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/maintenance"
	"github.com/glossahq/glossa/internal/metrics"
	"github.com/glossahq/glossa/internal/router"
	"github.com/glossahq/glossa/internal/secret"
	"github.com/glossahq/glossa/internal/session"
	"github.com/glossahq/glossa/internal/settings"
	"github.com/glossahq/glossa/internal/stream"
	"github.com/glossahq/glossa/pkg/protocol"
)

// maintenanceModule wraps the scheduler so it participates in the App
// lifecycle alongside the configured modules.
type maintenanceModule struct {
	scheduler *maintenance.Scheduler
}

func (m *maintenanceModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "maintenance"}
}

func (m *maintenanceModule) Start() error {
	m.scheduler.Start()
	return nil
}

func (m *maintenanceModule) Stop(context.Context) error {
	m.scheduler.Stop()
	return nil
}

// wireDaemon builds the dispatch pipeline (settings store, secret vault,
// provider registry, stream manager, router, session hub, maintenance jobs)
// and registers each piece as a service for the gateway to discover.
// Must be called after LoadModules and before Start.
func wireDaemon(
	app *core.App,
	appCtx *core.AppContext,
	cfg *config.Config,
	logger *slog.Logger,
) error {
	// The sqlite store module registers this service during Provision. A
	// config without it still runs; settings just do not survive a restart.
	var store settings.Store
	if svc, ok := appCtx.Service("settings.store"); ok {
		store, _ = svc.(settings.Store)
	}
	if store == nil {
		logger.Warn("no settings store module configured, settings will not persist")
		store = settings.NewMemStore()
		appCtx.RegisterService("settings.store", store)
	}

	keystore := secret.NewKeystore(appCtx.DataDir)
	cipher := secret.NewCipher(keystore)
	vault := secret.NewVault(cipher, store, logger)
	vault.MigrateLegacy(context.Background())

	registry := llm.NewRegistry(logger)

	met, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("building metrics: %w", err)
	}

	// The hub needs the router, the router needs the stream manager, and the
	// stream manager notifies through the hub. The sink closure breaks the
	// cycle; by the time any stream produces a token the hub is assigned.
	var hub *session.Hub
	sink := stream.SinkFunc(func(clientID string, typ protocol.MessageType, payload any) {
		if hub != nil {
			hub.Notify(clientID, typ, payload)
		}
	})
	streams := stream.NewManager(sink, met, cfg.Settings.StreamTimeout, logger)

	rtr, err := router.New(router.Config{
		Settings: store,
		Vault:    vault,
		Registry: registry,
		Streams:  streams,
		Metrics:  met,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	hub, err = session.NewHub(session.Config{
		Dispatcher: rtr,
		Limits:     cfg.Settings.Limits,
		Metrics:    met,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating session hub: %w", err)
	}

	scheduler := maintenance.NewScheduler(logger)
	sweep := maintenance.NewSweepJob(vault, 0, logger)
	probe := maintenance.NewProbeJob(rtr, logger)
	jobCtx := context.Background()
	if err := scheduler.RegisterJob(jobCtx, sweep); err != nil {
		return fmt.Errorf("registering sweep job: %w", err)
	}
	if err := scheduler.RegisterJob(jobCtx, probe); err != nil {
		return fmt.Errorf("registering probe job: %w", err)
	}
	app.AppendModule("maintenance", &maintenanceModule{scheduler: scheduler})

	appCtx.RegisterService("secret.vault", vault)
	appCtx.RegisterService("llm.registry", registry)
	appCtx.RegisterService("stream.manager", streams)
	appCtx.RegisterService("router.dispatcher", rtr)
	appCtx.RegisterService("session.hub", hub)
	appCtx.RegisterService("metrics", met)
	appCtx.RegisterService("maintenance.probe", probe)

	logger.Info("daemon wired")
	return nil
}

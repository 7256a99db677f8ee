// Package app assembles the farm runtime from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/config"
	"github.com/mamadbah2/herdwise/internal/connectivity"
	"github.com/mamadbah2/herdwise/internal/offline"
	"github.com/mamadbah2/herdwise/internal/repository/memory"
	"github.com/mamadbah2/herdwise/internal/repository/mongodb"
	"github.com/mamadbah2/herdwise/internal/repository/sheets"
	"github.com/mamadbah2/herdwise/internal/service/farmsvc"
	"github.com/mamadbah2/herdwise/internal/service/reporting"
	farmsync "github.com/mamadbah2/herdwise/internal/sync"
	"github.com/mamadbah2/herdwise/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/herdwise/pkg/clients/whatsapp"
	"github.com/mamadbah2/herdwise/pkg/logger"
)

const probeTimeout = 5 * time.Second

// Remote is the document store the sync engine replays into.
type Remote interface {
	farmsync.RemoteStore
	Ping(ctx context.Context) error
}

// App holds the wired components.
type App struct {
	Config    config.Config
	DB        *offline.DB
	Queue     *offline.Queue
	Cache     *offline.Cache
	Remote    Remote
	Monitor   *connectivity.Monitor
	Engine    *farmsync.Engine
	Farm      *farmsvc.Service
	Reports   *reporting.Service
	Assistant *reporting.Assistant

	logger  *zap.Logger
	closers []func(context.Context) error
}

// New opens the local database, connects the remote store and wires the
// services. It does not load any farm data; call Farm.Bootstrap for that.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, logger: log}

	db, err := offline.Open(cfg.Local.DBPath)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	a.Queue = offline.NewQueue(db, logger.Named(log, "offline.queue"))
	a.Cache = offline.NewCache(db, logger.Named(log, "offline.cache"))

	if err := a.connectRemote(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	var prober connectivity.Prober = connectivity.ProberFunc(a.Remote.Ping)
	if cfg.Sync.ProbeURL != "" {
		prober = connectivity.NewHTTPProber(cfg.Sync.ProbeURL, probeTimeout)
	}
	a.Monitor = connectivity.NewMonitor(false, prober, logger.Named(log, "connectivity"))

	a.Engine = farmsync.NewEngine(a.Remote, a.Queue, a.Cache, a.Monitor, farmsync.Config{
		UserID:        cfg.Sync.UserID,
		ActionTimeout: cfg.Sync.ActionTimeout,
		MaxAttempts:   cfg.Sync.MaxAttempts,
		Excluded:      cfg.Sync.ExcludedEntities,
	}, logger.Named(log, "sync"))

	a.Farm = farmsvc.NewService(a.Queue, a.Cache, a.Engine, a.Monitor, logger.Named(log, "svc.farm"))
	a.Monitor.OnOnline(a.Farm.TriggerSync)

	if err := a.wireReporting(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	a.Monitor.Probe(probeCtx)

	return a, nil
}

func (a *App) connectRemote(ctx context.Context) error {
	if a.Config.MongoDB.URI == "" {
		a.logger.Warn("no mongodb uri configured, using in-process store")
		a.Remote = memory.NewRepository()
		return nil
	}

	repo, err := mongodb.NewMongoDBRepository(ctx, a.Config.MongoDB.URI, a.Config.MongoDB.DBName, logger.Named(a.logger, "repo.mongodb"))
	if err != nil {
		return fmt.Errorf("init mongodb repository: %w", err)
	}
	a.Remote = repo
	a.closers = append(a.closers, repo.Close)
	return nil
}

func (a *App) wireReporting(ctx context.Context) error {
	var opts []reporting.Option

	if a.Config.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, a.Config.Sheets, logger.Named(a.logger, "repo.sheets"))
		if err != nil {
			return fmt.Errorf("init sheets repository: %w", err)
		}
		opts = append(opts, reporting.WithSheets(repo))
	}

	if a.Config.WhatsApp.Enabled() {
		client := whatsappclient.NewClient(a.Config.WhatsApp)
		opts = append(opts, reporting.WithDigest(client, a.Config.WhatsApp.DigestRecipient))
	}

	a.Reports = reporting.NewService(a.Farm, logger.Named(a.logger, "svc.reporting"), opts...)

	var aiClient anthropic.Client
	if a.Config.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(a.Config.AI.AnthropicKey, "")
		a.logger.Info("anthropic ai client enabled")
	} else {
		a.logger.Warn("anthropic api key missing, assistant disabled")
	}
	a.Assistant = reporting.NewAssistant(a.Reports, aiClient, logger.Named(a.logger, "svc.assistant"))
	return nil
}

// DigestEnabled reports whether weekly digests can be sent.
func (a *App) DigestEnabled() bool {
	return a.Config.WhatsApp.Enabled()
}

// Close waits for background syncs and releases resources in reverse order.
func (a *App) Close(ctx context.Context) error {
	if a.Farm != nil {
		a.Farm.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/app"
	"github.com/mamadbah2/herdwise/internal/config"
	"github.com/mamadbah2/herdwise/internal/scheduler"
	"github.com/mamadbah2/herdwise/internal/server/handlers"
	"github.com/mamadbah2/herdwise/internal/server/router"
	"github.com/mamadbah2/herdwise/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, *cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to wire application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close application", zap.Error(err))
		}
	}()

	if _, err := a.Farm.Bootstrap(ctx); err != nil {
		baseLogger.Fatal("failed to load farm", zap.Error(err))
	}

	engine := router.New(router.Handlers{
		Farm:    handlers.NewFarmHandler(a.Farm, baseLogger.Named("handlers.farm")),
		Sync:    handlers.NewSyncHandler(a.Farm, a.Monitor, baseLogger.Named("handlers.sync")),
		Reports: handlers.NewReportHandler(a.Reports, a.Assistant, baseLogger.Named("handlers.reports")),
	}, baseLogger.Named("router"))

	var digester scheduler.Digester
	if a.DigestEnabled() {
		digester = a.Reports
	} else {
		baseLogger.Warn("whatsapp digest recipient missing, weekly digest disabled")
	}

	sched, err := scheduler.NewScheduler(*cfg, a.Monitor, a.Farm, digester, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("online", a.Monitor.Online()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/config"
	"github.com/jdsmith2004/stockroom/internal/repository"
	"github.com/jdsmith2004/stockroom/internal/repository/memory"
	"github.com/jdsmith2004/stockroom/internal/repository/mongodb"
	"github.com/jdsmith2004/stockroom/internal/repository/sheets"
	"github.com/jdsmith2004/stockroom/internal/scheduler"
	"github.com/jdsmith2004/stockroom/internal/server/handlers"
	"github.com/jdsmith2004/stockroom/internal/server/router"
	auditsvc "github.com/jdsmith2004/stockroom/internal/service/audit"
	ledgersvc "github.com/jdsmith2004/stockroom/internal/service/ledger"
	querysvc "github.com/jdsmith2004/stockroom/internal/service/query"
	watchsvc "github.com/jdsmith2004/stockroom/internal/service/stockwatch"
	"github.com/jdsmith2004/stockroom/pkg/clients/webhook"
	"github.com/jdsmith2004/stockroom/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.Debug))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var store repository.Store
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		mongoStore, err := mongodb.NewStore(context.Background(), cfg.Storage.MongoURI, cfg.Storage.DBName, baseLogger.Named("repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
		}
		store = mongoStore
	case config.DriverMemory:
		store = memory.NewStore()
		baseLogger.Warn("using in-memory storage, state is not persisted")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	var mirror auditsvc.Mirror
	if cfg.SheetsEnabled() {
		sheetsMirror, err := sheets.NewAuditMirror(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets audit mirror", zap.Error(err))
		}
		mirror = sheetsMirror
		baseLogger.Info("google sheets audit mirror enabled")
	}

	recorder := auditsvc.NewRecorder(store, mirror, baseLogger.Named("svc.audit"))
	ledgerSvc := ledgersvc.NewService(store, recorder, cfg.Ledger.MaxTxnAttempts, baseLogger.Named("svc.ledger"))
	querySvc := querysvc.NewService(store, baseLogger.Named("svc.query"))

	var webhookClient *webhook.Client
	notifiers := []watchsvc.Notifier{watchsvc.NewLogNotifier(baseLogger.Named("notify.log"))}
	if cfg.Alerts.WebhookURL != "" {
		webhookClient = webhook.NewClient(cfg.Alerts.WebhookURL)
		notifiers = append(notifiers, watchsvc.NewWebhookNotifier(webhookClient))
		baseLogger.Info("webhook alert delivery enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	watch := watchsvc.NewService(store, notifiers, baseLogger.Named("svc.stockwatch"))
	if err := watch.Start(ctx); err != nil {
		baseLogger.Fatal("failed to start stock watch", zap.Error(err))
	}

	sched := scheduler.NewScheduler(cfg.Reporting, querySvc, webhookClient, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	inventoryHandler := handlers.NewInventoryHandler(ledgerSvc, querySvc, baseLogger.Named("handlers.inventory"))
	engine := router.New(inventoryHandler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gestor-comercial/gestor/internal/app"
	"github.com/gestor-comercial/gestor/internal/directory"
	"github.com/gestor-comercial/gestor/internal/ledger"
	"github.com/gestor-comercial/gestor/internal/observability"
	"github.com/gestor-comercial/gestor/internal/platform/cache"
	"github.com/gestor-comercial/gestor/internal/platform/db"
	"github.com/gestor-comercial/gestor/internal/purchasing"
	"github.com/gestor-comercial/gestor/internal/reporting"
	"github.com/gestor-comercial/gestor/internal/shared"
	"github.com/gestor-comercial/gestor/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	directoryRepo := directory.NewRepository(pool)
	directoryService := directory.NewService(directoryRepo)
	directoryHandler := directory.NewHandler(logger, directoryService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, directoryService, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewNotifier(jobsClient)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(purchasingRepo, directoryService, auditLogger, notifier, idempotencyStore)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	reportingRepo := reporting.NewRepository(pool)
	reportingCache := reporting.NewCache(redisClient, cfg.CacheTTL)
	reportingService := reporting.NewService(reportingRepo, reportingCache)
	reportingHandler := reporting.NewHandler(logger, reportingService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		LedgerHandler:     ledgerHandler,
		PurchasingHandler: purchasingHandler,
		ReportingHandler:  reportingHandler,
		DirectoryHandler:  directoryHandler,
		JobsHandler:       jobsHandler,
		Pool:              pool,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/stockpoint-erp/stockpoint-erp/internal/app"
	"github.com/stockpoint-erp/stockpoint-erp/internal/auth"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/customers"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/warehouses"
	"github.com/stockpoint-erp/stockpoint-erp/internal/platform/cache"
	"github.com/stockpoint-erp/stockpoint-erp/internal/platform/db"
	"github.com/stockpoint-erp/stockpoint-erp/internal/settings"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
	"github.com/stockpoint-erp/stockpoint-erp/internal/transfer"
	"github.com/stockpoint-erp/stockpoint-erp/jobs"
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
		logger.Error("redis connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	sessions := auth.NewSessionManager(redisClient, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(pool), sessions)
	authHandler := auth.NewHandler(logger, authService)

	accounts := settings.NewResolver(pool, redisClient)
	auditLogger := shared.NewAuditLogger(pool)
	validate := validator.New()

	transferService := transfer.NewService(
		transfer.NewRepository(pool, accounts),
		warehouses.NewRepository(pool),
		customers.NewRepository(pool),
		auditLogger,
		jobs.NewNotifier(queue),
		logger,
	)
	transferHandler := transfer.NewHandler(transferService, validate, logger)
	ledgerHandler := ledger.NewHandler(ledger.New(ledger.NewStore(pool)), items.NewRepository(pool), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Sessions:        sessions,
		AuthHandler:     authHandler,
		TransferHandler: transferHandler,
		LedgerHandler:   ledgerHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

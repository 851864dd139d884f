package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stockpoint-erp/stockpoint-erp/internal/app"
	"github.com/stockpoint-erp/stockpoint-erp/internal/auth"
	"github.com/stockpoint-erp/stockpoint-erp/internal/platform/db"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
	"github.com/stockpoint-erp/stockpoint-erp/jobs"
)

// approverDirectory resolves approver emails from the users table.
type approverDirectory struct {
	repo auth.Repository
}

func (d approverDirectory) EmailByUserID(ctx context.Context, userID int64) (string, error) {
	user, err := d.repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	directory := approverDirectory{repo: auth.NewRepository(pool)}
	mailer := func(ctx context.Context, payload jobs.SendEmailPayload) error {
		_, err := queue.EnqueueSendEmail(ctx, payload)
		return err
	}

	cleanupTask := asynq.NewTask(jobs.TaskTypeIdempotencyCleanup, nil)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Idempotency: shared.NewIdempotencyStore(pool),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeApprovalRequest, Handler: jobs.NewApprovalRequestHandler(directory, mailer)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: cleanupTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

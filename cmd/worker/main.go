package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/facturly/facturly/internal/app"
	"github.com/facturly/facturly/jobs"
)

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

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer container.Close(logger)

	notifyJob := jobs.NewThresholdNotifyJob(nil, logger, container.JobMetrics)
	scanJob := jobs.NewFiscalScanJob(container.Users, container.Fiscal, cfg.ScanConcurrency, logger, container.JobMetrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(container.Idempotency, cfg.IdempotencyRetention, logger, container.JobMetrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.QueueRedisOpt(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskThresholdNotify, Handler: notifyJob.Handle},
			{Type: jobs.TaskFiscalScan, Handler: scanJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ScanCron, Task: jobs.NewFiscalScanTask()},
			{Spec: cfg.CleanupCron, Task: jobs.NewIdempotencyCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/facturly/facturly/internal/jobs"
)

// KeyPurger deletes idempotency keys older than a retention window.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges processed webhook event ids.
type IdempotencyCleanupJob struct {
	Store     KeyPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the purge handler.
func NewIdempotencyCleanupJob(store KeyPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle deletes expired keys.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	if j.Retention <= 0 {
		return errors.New("idempotency cleanup: retention must be positive")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deleted, err := j.Store.Cleanup(ctx, j.Retention)
	if err != nil {
		logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	logger.Info("idempotency cleanup completed",
		slog.Int64("deleted", deleted),
		slog.Duration("retention", j.Retention))
	return nil
}

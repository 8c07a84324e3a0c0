package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/facturly/facturly/internal/fiscal"
	jobmetrics "github.com/facturly/facturly/internal/jobs"
)

// UserLister enumerates the users subject to threshold monitoring.
type UserLister interface {
	MicroEntrepreneurs(ctx context.Context) ([]uuid.UUID, error)
}

// UserScanner recomputes the current period summary of one user.
type UserScanner interface {
	ScanUser(ctx context.Context, userID uuid.UUID) (fiscal.Summary, error)
}

// FiscalScanJob refreshes the current-period summary of every
// micro-entrepreneur, emitting threshold notifications along the way.
type FiscalScanJob struct {
	Users       UserLister
	Scanner     UserScanner
	Concurrency int
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewFiscalScanJob constructs the scan handler.
func NewFiscalScanJob(users UserLister, scanner UserScanner, concurrency int, logger *slog.Logger, metrics *jobmetrics.Metrics) *FiscalScanJob {
	return &FiscalScanJob{Users: users, Scanner: scanner, Concurrency: concurrency, Logger: logger, Metrics: metrics}
}

// Handle runs a full scan.
func (j *FiscalScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Users == nil || j.Scanner == nil {
		return errors.New("fiscal scan: handler not configured")
	}
	_, err := j.Run(ctx)
	return err
}

// ScanResult summarises one scan.
type ScanResult struct {
	Scanned int
	Skipped int
	Failed  int
}

// Run scans all micro-entrepreneurs. Users with an incomplete fiscal profile
// are skipped; any other failure fails the run after every user was tried.
func (j *FiscalScanJob) Run(ctx context.Context) (result ScanResult, err error) {
	tracker := j.metrics().Track(TaskFiscalScan)
	defer func() {
		err = tracker.End(err)
	}()

	ids, err := j.Users.MicroEntrepreneurs(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("fiscal scan: list users: %w", err)
	}
	logger := j.logger().With(slog.Int("users", len(ids)))
	logger.Info("starting fiscal scan")

	var scanned, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	limit := j.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			summary, err := j.Scanner.ScanUser(gctx, id)
			switch {
			case err == nil:
				scanned.Add(1)
				if summary.Threshold.State != fiscal.StateNominal {
					logger.Debug("user near threshold",
						slog.String("user_id", id.String()),
						slog.String("state", string(summary.Threshold.State)))
				}
			case isProfileGap(err):
				skipped.Add(1)
				logger.Warn("fiscal scan skipped user", slog.String("user_id", id.String()), slog.Any("error", err))
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				logger.Error("fiscal scan failed for user", slog.String("user_id", id.String()), slog.Any("error", err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}

	result = ScanResult{Scanned: int(scanned.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	logger.Info("fiscal scan completed",
		slog.Int("scanned", result.Scanned),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	if result.Failed > 0 {
		return result, fmt.Errorf("fiscal scan: %d users failed", result.Failed)
	}
	return result, nil
}

func isProfileGap(err error) bool {
	return errors.Is(err, fiscal.ErrNotMicroEntrepreneur) ||
		errors.Is(err, fiscal.ErrMissingActivityType) ||
		errors.Is(err, fiscal.ErrMissingFrequency) ||
		errors.Is(err, fiscal.ErrUserNotFound)
}

func (j *FiscalScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *FiscalScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

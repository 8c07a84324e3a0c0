package fiscal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ErrMissingFrequency indicates a micro-entrepreneur without declaration frequency.
var ErrMissingFrequency = errors.New("fiscal: declaration frequency missing")

// Repository exposes consistent read snapshots over invoices and sub-invoices.
type Repository interface {
	Snapshot(ctx context.Context, fn func(context.Context, SnapshotReader) error) error
}

// SnapshotReader reads within a single repeatable-read transaction so that a
// partially propagated payment state is never summed.
type SnapshotReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error)
	ListIssuedInvoices(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]IssuedInvoice, error)
	ListReceivedShares(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ReceivedShare, error)
}

// Notifier hands threshold events to the notification collaborator.
type Notifier interface {
	NotifyThreshold(ctx context.Context, event ThresholdEvent) error
}

// MetricsRecorder receives classification outcomes.
type MetricsRecorder interface {
	ObserveThreshold(state string)
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	Table    *RateTable
	Monitor  Monitor
	Cache    *SummaryCache
	Notifier Notifier
	Metrics  MetricsRecorder
	Logger   *slog.Logger
}

// Service computes fiscal summaries on demand and on schedule.
type Service struct {
	repo     Repository
	table    *RateTable
	monitor  Monitor
	cache    *SummaryCache
	notifier Notifier
	metrics  MetricsRecorder
	logger   *slog.Logger
	now      func() time.Time
	group    singleflight.Group
}

// NewService builds a Service. A nil table falls back to DefaultRateTable.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	table := cfg.Table
	if table == nil {
		table = DefaultRateTable()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		table:    table,
		monitor:  cfg.Monitor,
		cache:    cfg.Cache,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RatesFor exposes the injected rate table.
func (s *Service) RatesFor(activity ActivityType, at time.Time) (Rates, error) {
	return s.table.RatesFor(activity, at)
}

// ComputeSummary returns the fiscal summary of a user for the given period.
func (s *Service) ComputeSummary(ctx context.Context, userID uuid.UUID, period Period) (Summary, error) {
	if userID == uuid.Nil {
		return Summary{}, ErrUserNotFound
	}
	if err := period.Validate(); err != nil {
		return Summary{}, err
	}
	key, err := s.cache.BuildKey(ctx, userID.String(), period.Label())
	if err != nil {
		s.logger.Warn("fiscal summary cache key", slog.Any("error", err))
		return s.compute(ctx, userID, fixedPeriod(period))
	}
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("fiscal summary cache read", slog.Any("error", err))
	} else if ok {
		return cached, nil
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		summary, err := s.compute(ctx, userID, fixedPeriod(period))
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.logger.Warn("fiscal summary cache write", slog.Any("error", err))
		}
		return summary, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// ScanUser computes the summary of the user's current declaration period and
// emits a threshold event when the user is no longer nominal.
func (s *Service) ScanUser(ctx context.Context, userID uuid.UUID) (Summary, error) {
	at := s.now()
	summary, err := s.compute(ctx, userID, func(p Profile) (Period, error) {
		if !p.Frequency.Valid() {
			return Period{}, ErrMissingFrequency
		}
		return PeriodFor(p.Frequency, at)
	})
	if err != nil {
		return Summary{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveThreshold(string(summary.Threshold.State))
	}
	if summary.Threshold.State == StateNominal || s.notifier == nil {
		return summary, nil
	}
	event := ThresholdEvent{
		UserID:       summary.UserID,
		Period:       summary.Period,
		State:        summary.Threshold.State,
		Remaining:    summary.Threshold.Remaining,
		ProximityPct: summary.Threshold.ProximityPct,
		Turnover:     summary.YearToDateTurnover,
		Threshold:    summary.VATThreshold,
	}
	if err := s.notifier.NotifyThreshold(ctx, event); err != nil {
		return summary, fmt.Errorf("fiscal: notify threshold: %w", err)
	}
	return summary, nil
}

func fixedPeriod(p Period) func(Profile) (Period, error) {
	return func(Profile) (Period, error) { return p, nil }
}

func (s *Service) compute(ctx context.Context, userID uuid.UUID, periodFor func(Profile) (Period, error)) (Summary, error) {
	var summary Summary
	err := s.repo.Snapshot(ctx, func(ctx context.Context, r SnapshotReader) error {
		profile, err := r.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if !profile.Regime.IsMicro() {
			return ErrNotMicroEntrepreneur
		}
		if profile.Activity == "" {
			return ErrMissingActivityType
		}
		period, err := periodFor(profile)
		if err != nil {
			return err
		}
		from := period.YearStart()
		issued, err := r.ListIssuedInvoices(ctx, userID, from, period.End)
		if err != nil {
			return fmt.Errorf("fiscal: list issued invoices: %w", err)
		}
		received, err := r.ListReceivedShares(ctx, userID, from, period.End)
		if err != nil {
			return fmt.Errorf("fiscal: list received shares: %w", err)
		}
		summary, err = Aggregate(profile, period, issued, received, s.table, s.monitor)
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/facturly/facturly/internal/collectives"
	"github.com/facturly/facturly/internal/fiscal"
	"github.com/facturly/facturly/internal/invoicing"
	jobmetrics "github.com/facturly/facturly/internal/jobs"
	"github.com/facturly/facturly/internal/observability"
	"github.com/facturly/facturly/internal/platform/cache"
	"github.com/facturly/facturly/internal/platform/db"
	"github.com/facturly/facturly/internal/shared"
	"github.com/facturly/facturly/internal/users"
	"github.com/facturly/facturly/jobs"
)

// Container holds the wired services shared by the API and the worker.
type Container struct {
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Metrics     *observability.Metrics
	JobMetrics  *jobmetrics.Metrics
	Queue       *jobs.Client
	Users       *users.Service
	Fiscal      *fiscal.Service
	Invoicing   *invoicing.Service
	Idempotency *shared.IdempotencyStore
}

// Build connects to PostgreSQL and Redis and wires the domain services.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	table := fiscal.DefaultRateTable()
	if cfg.FiscalRatesFile != "" {
		loaded, err := fiscal.LoadRateTable(cfg.FiscalRatesFile)
		if err != nil {
			return nil, fmt.Errorf("app: load rates: %w", err)
		}
		table = loaded
	}
	pct, err := cfg.ApproachingPct()
	if err != nil {
		return nil, err
	}
	monitor, err := fiscal.NewMonitor(pct)
	if err != nil {
		return nil, err
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	c := &Container{
		Pool:        pool,
		Redis:       redisClient,
		Metrics:     metrics,
		JobMetrics:  jobmetrics.NewMetrics(metrics.Registerer()),
		Queue:       jobs.NewClient(cfg.QueueRedisOpt(), logger),
		Idempotency: shared.NewIdempotencyStore(pool),
	}

	summaryCache := fiscal.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)
	c.Users = users.NewService(users.NewRepository(pool))
	c.Fiscal = fiscal.NewService(fiscal.NewRepository(pool), fiscal.ServiceConfig{
		Table:    table,
		Monitor:  monitor,
		Cache:    summaryCache,
		Notifier: c.Queue,
		Metrics:  metrics,
		Logger:   logger.With(slog.String("component", "fiscal")),
	})
	c.Invoicing = invoicing.NewService(
		invoicing.NewRepository(pool),
		collectives.NewRepository(pool),
		c.Users,
		invoicing.ServiceConfig{
			Locker:      cache.NewLocker(redisClient, cfg.ShareLockTTL),
			Invalidator: summaryCache,
			Metrics:     metrics,
			Logger:      logger.With(slog.String("component", "invoicing")),
		},
	)
	return c, nil
}

// Close releases every connection held by the container.
func (c *Container) Close(logger *slog.Logger) {
	if c == nil {
		return
	}
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

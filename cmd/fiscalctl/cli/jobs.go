package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/facturly/facturly/internal/platform/cache"
	"github.com/facturly/facturly/jobs"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// JobsCLI wraps manual management helpers for background jobs.
type JobsCLI struct {
	client    taskEnqueuer
	inspector queueInspector
	closers   []func() error
}

// NewJobsCLI initialises the helpers against the provided Redis address or URL.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts, err := cache.QueueOpt(redisAddr)
	if err != nil {
		return nil, err
	}
	client := asynq.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []func() error{client.Close, inspector.Close}}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closeFn := range c.closers {
		err = errors.Join(err, closeFn())
	}
	return err
}

// Trigger enqueues a supported job by task type.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	switch name {
	case jobs.TaskFiscalScan:
		task = jobs.NewFiscalScanTask()
	case jobs.TaskIdempotencyCleanup:
		task = jobs.NewIdempotencyCleanupTask()
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
}

// InspectQueues reports the metrics of every application queue.
func (c *JobsCLI) InspectQueues() ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	var out []QueueStats
	for _, name := range []string{jobs.QueueDefault, jobs.QueueNotifications} {
		info, err := c.inspector.GetQueueInfo(name)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			out = append(out, QueueStats{Queue: name})
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, QueueStats{
			Queue:     name,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
		})
	}
	return out, nil
}

func newJobsCommand() *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{Use: "jobs", Short: "Trigger and inspect background jobs"}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address")

	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskFiscalScan, jobs.TaskIdempotencyCleanup},
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer jc.Close()
			info, err := jc.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Print queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jc, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer jc.Close()
			stats, err := jc.InspectQueues()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.AddCommand(trigger, inspect)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

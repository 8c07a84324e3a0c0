package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/facturly/facturly/internal/fiscal"
	jobmetrics "github.com/facturly/facturly/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries user-facing notifications.
	QueueNotifications = "notifications"

	// TaskThresholdNotify delivers a VAT threshold notification.
	TaskThresholdNotify = "fiscal:threshold"
	// TaskFiscalScan recomputes the current period of every micro-entrepreneur.
	TaskFiscalScan = "fiscal:scan"
	// TaskIdempotencyCleanup purges old idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

	// notificationRetention keeps completed notifications long enough for the
	// task id to deduplicate a whole quarterly period.
	notificationRetention = 93 * 24 * time.Hour
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewThresholdNotificationTask builds the notification task for event along
// with the options that route and deduplicate it.
func NewThresholdNotificationTask(event fiscal.ThresholdEvent) (*asynq.Task, []asynq.Option, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.TaskID(ThresholdTaskID(event)),
		asynq.Retention(notificationRetention),
		asynq.MaxRetry(5),
	}
	return asynq.NewTask(TaskThresholdNotify, body), opts, nil
}

// ThresholdTaskID identifies a notification per user, period and state.
func ThresholdTaskID(event fiscal.ThresholdEvent) string {
	return fmt.Sprintf("threshold:%s:%s:%s", event.UserID, event.Period, event.State)
}

// NewFiscalScanTask creates the periodic fiscal scan task.
func NewFiscalScanTask() *asynq.Task {
	return asynq.NewTask(TaskFiscalScan, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// NewIdempotencyCleanupTask creates the idempotency purge task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

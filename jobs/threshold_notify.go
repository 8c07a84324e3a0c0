package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/facturly/facturly/internal/fiscal"
	jobmetrics "github.com/facturly/facturly/internal/jobs"
)

// Sender delivers a rendered notification to a user.
type Sender interface {
	Send(ctx context.Context, event fiscal.ThresholdEvent, body string) error
}

// ThresholdNotifyJob renders and delivers threshold notifications.
type ThresholdNotifyJob struct {
	Sender  Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewThresholdNotifyJob constructs the notification handler. A nil sender
// only logs the rendered message.
func NewThresholdNotifyJob(sender Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *ThresholdNotifyJob {
	return &ThresholdNotifyJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle decodes the event and delivers it.
func (j *ThresholdNotifyJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("threshold notify: handler not configured")
	}
	var event fiscal.ThresholdEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("threshold notify: decode: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskThresholdNotify)
	defer func() {
		err = tracker.End(err)
	}()

	body := ThresholdMessage(event)
	logger := j.logger().With(
		slog.String("user_id", event.UserID.String()),
		slog.String("period", event.Period),
		slog.String("state", string(event.State)),
	)
	if j.Sender != nil {
		if err := j.Sender.Send(ctx, event, body); err != nil {
			logger.Error("threshold notification failed", slog.Any("error", err))
			return err
		}
	}
	j.metrics().AddNotifications(string(event.State), 1)
	logger.Info("threshold notification delivered", slog.String("message", body))
	return nil
}

var frenchPrinter = message.NewPrinter(language.French)

// ThresholdMessage renders the user-facing text of a threshold event.
func ThresholdMessage(event fiscal.ThresholdEvent) string {
	turnover, _ := event.Turnover.Float64()
	threshold, _ := event.Threshold.Float64()
	remaining, _ := event.Remaining.Float64()
	switch event.State {
	case fiscal.StateExceeded:
		return frenchPrinter.Sprintf("Période %s : votre chiffre d'affaires de %.2f € dépasse le seuil de franchise de TVA de %.2f €.",
			event.Period, turnover, threshold)
	case fiscal.StateApproaching:
		return frenchPrinter.Sprintf("Période %s : votre chiffre d'affaires de %.2f € approche le seuil de franchise de TVA de %.2f € (reste %.2f €).",
			event.Period, turnover, threshold, remaining)
	default:
		return frenchPrinter.Sprintf("Période %s : chiffre d'affaires de %.2f € sous le seuil de %.2f €.",
			event.Period, turnover, threshold)
	}
}

func (j *ThresholdNotifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ThresholdNotifyJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

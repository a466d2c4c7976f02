package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/fieldops/pkg/queue"
)

// Enqueuer hands completed orders to the worker. A nil client disables it.
type Enqueuer struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewEnqueuer(client *asynq.Client, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{client: client, logger: logger.With("component", "enqueuer")}
}

func (e *Enqueuer) NotifyCompleted(ctx context.Context, orgID uuid.UUID, reportID uint) error {
	if e.client == nil {
		e.logger.Warn("queue unavailable, skipping completion task", "report_id", reportID)
		return nil
	}

	task, err := NewReportCompletedTask(ReportCompletedPayload{ReportID: reportID, OrganizationID: orgID})
	if err != nil {
		return fmt.Errorf("building task: %w", err)
	}

	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue(queue.QueueDefault), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", TypeReportCompleted, err)
	}

	e.logger.Debug("enqueued completion task", "report_id", reportID, "task_id", info.ID)
	return nil
}

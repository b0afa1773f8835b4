// Package jobs wires the asynq queue that drains operational-visibility
// events out of the engine.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/partsync/partsync/internal/ops"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOpsReport is the task type for operational-visibility events.
	TaskTypeOpsReport = "ops:report"
)

// NewOpsReportTask constructs an Asynq task carrying one ops event.
func NewOpsReportTask(event ops.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOpsReport, data), nil
}

// HandleOpsReportTask processes TaskTypeOpsReport tasks. The handler is the
// diagnosis sink: events land in the worker's structured log where an
// external shipper picks them up.
func HandleOpsReportTask(ctx context.Context, t *asynq.Task) error {
	var event ops.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Error("ops report",
		slog.String("kind", event.Kind),
		slog.String("message", event.Message),
		slog.Time("reported_at", event.ReportedAt),
		slog.Any("fields", event.Fields),
	)
	return nil
}

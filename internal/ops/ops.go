// Package ops carries operational-visibility events out of the engine and
// user-facing messages toward whatever front end is attached.
package ops

import (
	"context"
	"log/slog"
	"time"
)

// Event describes a failure or noteworthy condition for later diagnosis.
type Event struct {
	Kind       string         `json:"kind"`
	Message    string         `json:"message"`
	Fields     map[string]any `json:"fields,omitempty"`
	ReportedAt time.Time      `json:"reported_at"`
}

// Reporter delivers events to the operational-visibility channel.
type Reporter interface {
	Report(ctx context.Context, event Event)
}

// LogReporter writes events to the application log.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter constructs a LogReporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs the event at error level.
func (r *LogReporter) Report(_ context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.Error("ops event",
		slog.String("kind", event.Kind),
		slog.String("message", event.Message),
		slog.Any("fields", event.Fields),
	)
}

// QueueReporter hands events to a background queue, falling back to the log
// when the enqueue fails. The enqueue function is wired from the jobs client.
type QueueReporter struct {
	enqueue func(context.Context, Event) error
	logger  *slog.Logger
}

// NewQueueReporter constructs a QueueReporter.
func NewQueueReporter(enqueue func(context.Context, Event) error, logger *slog.Logger) *QueueReporter {
	return &QueueReporter{enqueue: enqueue, logger: logger}
}

// Report enqueues the event for asynchronous processing.
func (r *QueueReporter) Report(ctx context.Context, event Event) {
	if r == nil || r.enqueue == nil {
		return
	}
	if event.ReportedAt.IsZero() {
		event.ReportedAt = time.Now().UTC()
	}
	if err := r.enqueue(ctx, event); err != nil && r.logger != nil {
		r.logger.Error("enqueue ops event", slog.Any("error", err), slog.String("kind", event.Kind))
	}
}

// Messenger surfaces one message per occurrence to the user.
type Messenger interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// LogMessenger is the daemon's default Messenger: messages land in the log at
// the matching level.
type LogMessenger struct {
	logger *slog.Logger
}

// NewLogMessenger constructs a LogMessenger.
func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

// Info logs an informational message.
func (m *LogMessenger) Info(msg string) {
	if m != nil && m.logger != nil {
		m.logger.Info(msg)
	}
}

// Success logs a success message.
func (m *LogMessenger) Success(msg string) {
	if m != nil && m.logger != nil {
		m.logger.Info(msg, slog.String("result", "success"))
	}
}

// Warning logs a warning message.
func (m *LogMessenger) Warning(msg string) {
	if m != nil && m.logger != nil {
		m.logger.Warn(msg)
	}
}

// Error logs an error message.
func (m *LogMessenger) Error(msg string) {
	if m != nil && m.logger != nil {
		m.logger.Error(msg)
	}
}

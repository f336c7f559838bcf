// Package activity provides the fire-and-forget activity log notified when a
// step completes. Sink failures are logged and swallowed — they must never
// fail the underlying operation.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// Entry is the payload recorded when a step completes.
type Entry struct {
	ID          id.ActivityID `json:"id"`
	JobID       id.JobID      `json:"job_id"`
	PlanID      id.PlanID     `json:"plan_id"`
	StepID      id.StepID     `json:"step_id"`
	StepNo      plan.StepNo   `json:"step_no"`
	StepName    string        `json:"step_name"`
	Quantity    int           `json:"quantity"`
	Wastage     int           `json:"wastage"`
	CompletedBy string        `json:"completed_by"`
	Reason      string        `json:"reason"`
	At          time.Time     `json:"at"`
}

// Logger receives step-completion notifications.
type Logger interface {
	StepCompleted(ctx context.Context, e *Entry)
}

// Discard is a Logger that drops everything.
type Discard struct{}

// StepCompleted drops the entry.
func (Discard) StepCompleted(context.Context, *Entry) {}

// SlogLogger writes entries to a structured logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a Logger over the given slog.Logger.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

// StepCompleted logs the entry at info level.
func (s *SlogLogger) StepCompleted(_ context.Context, e *Entry) {
	s.logger.Info("step completed",
		slog.String("job_id", e.JobID.String()),
		slog.String("plan_id", e.PlanID.String()),
		slog.String("step", e.StepName),
		slog.Int("quantity", e.Quantity),
		slog.Int("wastage", e.Wastage),
		slog.String("completed_by", e.CompletedBy),
		slog.String("reason", e.Reason),
	)
}

// NATSLogger publishes entries as JSON to a NATS subject.
type NATSLogger struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSLogger creates a Logger publishing to the given subject.
func NewNATSLogger(conn *nats.Conn, subject string, logger *slog.Logger) *NATSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSLogger{conn: conn, subject: subject, logger: logger}
}

// StepCompleted publishes the entry. Publish failures are logged, never returned.
func (n *NATSLogger) StepCompleted(_ context.Context, e *Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		n.logger.Error("activity: marshal entry", "error", err)
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.logger.Error("activity: publish entry",
			"subject", n.subject,
			"step", e.StepName,
			"error", err,
		)
	}
}

// Multi fans an entry out to several loggers.
type Multi []Logger

// StepCompleted forwards the entry to every sink.
func (m Multi) StepCompleted(ctx context.Context, e *Entry) {
	for _, l := range m {
		l.StepCompleted(ctx, e)
	}
}

package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/plantfloor/boxline/id"
)

// Service provides high-level ledger operations over a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a reconciliation service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Record builds an Entry from a failed best-effort update and persists it.
// A ledger write failure is itself logged and swallowed: the ledger is the
// last resort, not another thing that can abort the primary operation.
func (s *Service) Record(ctx context.Context, jobID id.JobID, planID id.PlanID, kind EntityKind, entityID id.ID, op string, cause error) {
	now := time.Now().UTC()
	e := &Entry{
		ID:         id.NewReconcileID(),
		JobID:      jobID,
		PlanID:     planID,
		EntityKind: kind,
		EntityID:   entityID,
		Op:         op,
		Cause:      cause.Error(),
		OccurredAt: now,
		CreatedAt:  now,
	}

	s.logger.Error("best-effort update failed, recorded for reconciliation",
		slog.String("op", op),
		slog.String("entity_kind", string(kind)),
		slog.String("entity_id", entityID.String()),
		slog.String("cause", cause.Error()),
	)

	if err := s.store.PushReconcile(ctx, e); err != nil {
		s.logger.Error("reconcile: ledger write failed",
			slog.String("op", op),
			slog.String("entity_id", entityID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Store returns the underlying ledger store for direct access to List,
// Get, Resolve, Purge, and Count operations.
func (s *Service) Store() Store { return s.store }

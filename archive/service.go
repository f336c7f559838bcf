package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
)

// Service snapshots a finished plan and tears down its live rows.
type Service struct {
	archives  Store
	jobs      job.Store
	plans     plan.Store
	machines  machine.Store
	details   detail.Store
	reconcile *reconcile.Service
	logger    *slog.Logger
}

// NewService creates an archive service.
func NewService(archives Store, jobs job.Store, plans plan.Store, machines machine.Store, details detail.Store, rec *reconcile.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		archives:  archives,
		jobs:      jobs,
		plans:     plans,
		machines:  machines,
		details:   details,
		reconcile: rec,
		logger:    logger,
	}
}

// Archive snapshots the plan's steps and detail records, writes the archive
// row, then deletes the live plan, step instances, work records, and detail
// records. The snapshot write is primary; teardown failures are best-effort
// and land in the reconciliation ledger.
func (s *Service) Archive(ctx context.Context, j *job.Job, planID id.PlanID) (*Archive, error) {
	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	steps, err := s.plans.ListSteps(ctx, planID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]StepSnapshot, 0, len(steps))
	for _, st := range steps {
		snap := StepSnapshot{
			StepNo:      st.StepNo,
			StepName:    st.StepNo.Name(),
			Status:      st.Status,
			CompletedBy: st.CompletedBy,
			CompletedAt: st.CompletedAt,
		}
		rec, derr := s.details.GetDetail(ctx, st.ID)
		if derr == nil {
			snap.Detail = rec
		} else if !errors.Is(derr, boxline.ErrDetailNotFound) {
			return nil, derr
		}
		snapshots = append(snapshots, snap)
	}

	now := time.Now().UTC()
	a := &Archive{
		ID:         id.NewArchiveID(),
		JobID:      j.ID,
		JobNumber:  j.JobNumber,
		PlanID:     planID,
		PONumber:   p.PONumber,
		Steps:      snapshots,
		ArchivedAt: now,
		CreatedAt:  now,
	}
	if err := s.archives.CreateArchive(ctx, a); err != nil {
		return nil, fmt.Errorf("archive: snapshot plan %s: %w", planID, err)
	}

	// Teardown. The snapshot is already durable; a straggler here is a
	// reconciliation item, not a failure.
	if err := s.machines.DeleteWorkRecordsByPlan(ctx, planID); err != nil {
		s.reconcile.Record(ctx, j.ID, planID, reconcile.KindWorkRecord, id.Nil, "archive_teardown", err)
	}
	if err := s.details.DeleteDetailsByPlan(ctx, planID); err != nil {
		s.reconcile.Record(ctx, j.ID, planID, reconcile.KindDetail, id.Nil, "archive_teardown", err)
	}
	if err := s.plans.DeletePlan(ctx, planID); err != nil {
		s.reconcile.Record(ctx, j.ID, planID, reconcile.KindStep, id.Nil, "archive_teardown", err)
	}

	j.Archived = true
	j.Touch()
	if err := s.jobs.UpdateJob(ctx, j); err != nil {
		s.reconcile.Record(ctx, j.ID, planID, reconcile.KindStep, j.ID, "archive_mark_job", err)
	}

	s.logger.Info("job archived",
		slog.String("job_number", j.JobNumber),
		slog.String("plan_id", planID.String()),
		slog.Int("steps", len(snapshots)),
	)
	return a, nil
}

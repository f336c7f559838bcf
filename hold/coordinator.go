// Package hold coordinates the job-wide production freeze. A major hold
// transitions every active machine work record and step detail record in
// scope to major_hold, capturing each entity's own previous status; resume
// restores each entity to exactly the status it was frozen from.
//
// Machine-record updates are the primary write set: a failure there aborts
// the operation. Detail-record updates are best-effort — a failure is logged,
// pushed to the reconciliation ledger, and the hold still reports success.
package hold

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
)

// Scope selects the entities a major hold covers: every plan of a job, or
// one plan when PlanID is set.
type Scope struct {
	JobID  id.JobID
	PlanID id.PlanID // optional; Nil means the whole job
}

// Coordinator applies and lifts major holds.
type Coordinator struct {
	plans     plan.Store
	machines  machine.Store
	details   detail.Store
	reconcile *reconcile.Service
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator over the given stores.
func NewCoordinator(plans plan.Store, machines machine.Store, details detail.Store, rec *reconcile.Service, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		plans:     plans,
		machines:  machines,
		details:   details,
		reconcile: rec,
		logger:    logger,
	}
}

// MajorHold freezes every active entity in scope. Role checks belong to the
// engine; the coordinator only moves state.
func (c *Coordinator) MajorHold(ctx context.Context, scope Scope) error {
	planIDs, err := c.resolvePlans(ctx, scope)
	if err != nil {
		return err
	}

	// Primary write set: machine work records. Abort on any failure so a
	// reader never observes a half-frozen machine set.
	records, err := c.machines.ListActiveWorkRecords(ctx, planIDs)
	if err != nil {
		return fmt.Errorf("hold: list active work records: %w", err)
	}
	var frozen int
	for _, r := range records {
		if r.Status == machine.StatusMajorHold {
			continue
		}
		if err := r.Freeze(); err != nil {
			return err
		}
		if err := c.machines.UpdateWorkRecord(ctx, r); err != nil {
			return fmt.Errorf("hold: freeze machine %s: %w", r.MachineCode, err)
		}
		frozen++
	}

	// Secondary write set: detail records, best-effort.
	c.eachActiveDetail(ctx, scope, planIDs, "major_hold", func(d *detail.Record) error {
		if d.Status == detail.StatusMajorHold {
			return nil
		}
		if err := d.Freeze(); err != nil {
			return err
		}
		return c.details.UpdateDetailStatus(ctx, d.ID, d.Status, d.PrevStatus)
	})

	c.logger.Info("major hold applied",
		slog.String("job_id", scope.JobID.String()),
		slog.String("plan_id", scope.PlanID.String()),
		slog.Int("machines_frozen", frozen),
	)
	return nil
}

// MajorResume lifts a major hold, restoring every frozen entity to its own
// prior status. Entities without a captured marker restore to in_progress
// (machines) or active (details).
func (c *Coordinator) MajorResume(ctx context.Context, scope Scope) error {
	planIDs, err := c.resolvePlans(ctx, scope)
	if err != nil {
		return err
	}

	records, err := c.machines.ListActiveWorkRecords(ctx, planIDs)
	if err != nil {
		return fmt.Errorf("hold: list active work records: %w", err)
	}

	var thawed int
	for _, r := range records {
		if r.Status != machine.StatusMajorHold {
			continue
		}
		if err := r.Thaw(); err != nil {
			return err
		}
		if err := c.machines.UpdateWorkRecord(ctx, r); err != nil {
			return fmt.Errorf("hold: thaw machine %s: %w", r.MachineCode, err)
		}
		thawed++
	}

	c.eachActiveDetail(ctx, scope, planIDs, "major_resume", func(d *detail.Record) error {
		if d.Status != detail.StatusMajorHold {
			return nil
		}
		if err := d.Thaw(); err != nil {
			return err
		}
		return c.details.UpdateDetailStatus(ctx, d.ID, d.Status, d.PrevStatus)
	})

	c.logger.Info("major hold lifted",
		slog.String("job_id", scope.JobID.String()),
		slog.String("plan_id", scope.PlanID.String()),
		slog.Int("machines_thawed", thawed),
	)
	return nil
}

// resolvePlans expands a scope into concrete plan IDs.
func (c *Coordinator) resolvePlans(ctx context.Context, scope Scope) ([]id.PlanID, error) {
	if !scope.PlanID.IsNil() {
		if _, err := c.plans.GetPlan(ctx, scope.PlanID); err != nil {
			return nil, err
		}
		return []id.PlanID{scope.PlanID}, nil
	}

	plans, err := c.plans.ListPlansByJob(ctx, scope.JobID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: job %s has no plans", boxline.ErrPlanNotFound, scope.JobID)
	}
	ids := make([]id.PlanID, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// eachActiveDetail applies fn to every active detail record in scope,
// recording failures in the reconciliation ledger instead of aborting.
func (c *Coordinator) eachActiveDetail(ctx context.Context, scope Scope, planIDs []id.PlanID, op string, fn func(*detail.Record) error) {
	details, err := c.details.ListActiveDetails(ctx, planIDs)
	if err != nil {
		c.reconcile.Record(ctx, scope.JobID, scope.PlanID, reconcile.KindDetail, id.Nil, op, err)
		return
	}
	for _, d := range details {
		if err := fn(d); err != nil {
			c.reconcile.Record(ctx, d.JobID, d.PlanID, reconcile.KindDetail, d.ID, op, err)
		}
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/activity"
	"github.com/plantfloor/boxline/completion"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	mw "github.com/plantfloor/boxline/middleware"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
)

// StartMachine transitions a machine from available to in_progress for one
// step. The caller must have machine access (bypassed for high-demand jobs)
// and the step's sequencing precondition must hold. The first machine to
// start also moves the step from planned to start.
func (e *Engine) StartMachine(ctx context.Context, cmd MachineCommand) error {
	op := e.op("start_machine", cmd)
	return e.run(ctx, op, func(ctx context.Context) error {
		j, step, err := e.load(ctx, cmd)
		if err != nil {
			return err
		}
		if step.Status == plan.StepStopped {
			return fmt.Errorf("%w: step %s is already %s",
				boxline.ErrInvalidTransition, cmd.StepNo.Name(), plan.StepStopped)
		}

		if !j.IsHighDemand() {
			ok, err := e.authz.CanOperateMachine(ctx, cmd.Actor, cmd.MachineCode)
			if err != nil {
				return fmt.Errorf("engine: machine access check: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: user %s has no access to machine %s",
					boxline.ErrUnauthorized, cmd.Actor.UserID, cmd.MachineCode)
			}
		}

		if err := e.guard.CanStart(ctx, cmd.PlanID, cmd.StepNo); err != nil {
			return err
		}

		if err := e.ensureRecords(ctx, step, cmd.MachineCode); err != nil {
			return err
		}

		rec, err := e.store.GetWorkRecord(ctx, step.ID, cmd.MachineCode)
		if err != nil {
			return err
		}
		if err := rec.Start(cmd.Actor.UserID, cmd.Actor.Name, e.clock.Now()); err != nil {
			return err
		}
		rec.Touch()
		if err := e.store.UpdateWorkRecord(ctx, rec); err != nil {
			return err
		}

		// First machine in moves the step itself. A concurrent start losing
		// the CAS just means another machine got there first.
		if step.Status == plan.StepPlanned {
			err := e.store.TransitionStep(ctx, step.ID, plan.StepPlanned, plan.StepStarted)
			switch {
			case err == nil:
				now := e.clock.Now().UTC()
				step.Status = plan.StepStarted
				step.StartedAt = &now
				step.Touch()
				if uerr := e.store.UpdateStep(ctx, step); uerr != nil {
					return uerr
				}
			case errors.Is(err, boxline.ErrConcurrentCompleted):
				// Raced with another start; nothing to do.
			default:
				return err
			}
		}
		return nil
	})
}

// SubmitWork persists a machine's submitted form data and then evaluates the
// step's completion criteria. Submission does not change the machine's state
// machine; it only writes the form payload and timestamps.
func (e *Engine) SubmitWork(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	if len(cmd.Form) == 0 {
		return nil, fmt.Errorf("%w: submission carries no form data", boxline.ErrValidationFailed)
	}

	var result *SubmitResult
	op := e.op("submit_work", cmd.MachineCommand)
	err := e.run(ctx, op, func(ctx context.Context) error {
		j, step, err := e.load(ctx, cmd.MachineCommand)
		if err != nil {
			return err
		}
		if step.Status == plan.StepStopped {
			return fmt.Errorf("%w: step %s is already %s",
				boxline.ErrInvalidTransition, cmd.StepNo.Name(), plan.StepStopped)
		}

		rec, err := e.store.GetWorkRecord(ctx, step.ID, cmd.MachineCode)
		if err != nil {
			return err
		}
		if rec.Status != machine.StatusInProgress {
			return fmt.Errorf("%w: machine %s is %s, submission requires %s",
				boxline.ErrInvalidTransition, cmd.MachineCode, rec.Status, machine.StatusInProgress)
		}

		rec.FormData = cmd.Form
		now := e.clock.Now().UTC()
		rec.SubmittedAt = &now
		if err := e.completionGate(ctx, j, step, rec); err != nil {
			return err
		}
		rec.Touch()
		if err := e.store.UpdateWorkRecord(ctx, rec); err != nil {
			return err
		}

		result, err = e.evaluateCompletion(ctx, j, step, cmd.Actor.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StopMachine closes a machine out for the step and evaluates completion —
// the all-machines-stopped rule can only ever fire here. An untouched
// planned machine may be stopped directly; its record is created on the way.
func (e *Engine) StopMachine(ctx context.Context, cmd MachineCommand) (*SubmitResult, error) {
	var result *SubmitResult
	op := e.op("stop_machine", cmd)
	err := e.run(ctx, op, func(ctx context.Context) error {
		j, step, err := e.load(ctx, cmd)
		if err != nil {
			return err
		}

		if err := e.ensureRecords(ctx, step, cmd.MachineCode); err != nil {
			return err
		}
		rec, err := e.store.GetWorkRecord(ctx, step.ID, cmd.MachineCode)
		if err != nil {
			return err
		}
		if err := rec.Stop(e.clock.Now()); err != nil {
			return err
		}
		if err := e.completionGate(ctx, j, step, rec); err != nil {
			return err
		}
		rec.Touch()
		if err := e.store.UpdateWorkRecord(ctx, rec); err != nil {
			return err
		}

		result, err = e.evaluateCompletion(ctx, j, step, cmd.Actor.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HoldMachine pauses one in-progress machine with a remark. Per-machine
// holds are reversible by any authorized worker and touch nothing else.
func (e *Engine) HoldMachine(ctx context.Context, cmd HoldCommand) error {
	op := e.op("hold_machine", cmd.MachineCommand)
	return e.run(ctx, op, func(ctx context.Context) error {
		_, step, err := e.load(ctx, cmd.MachineCommand)
		if err != nil {
			return err
		}
		rec, err := e.store.GetWorkRecord(ctx, step.ID, cmd.MachineCode)
		if err != nil {
			return err
		}
		if err := rec.Hold(cmd.Remark); err != nil {
			return err
		}
		rec.Touch()
		return e.store.UpdateWorkRecord(ctx, rec)
	})
}

// ResumeMachine re-enables submission on a held machine.
func (e *Engine) ResumeMachine(ctx context.Context, cmd MachineCommand) error {
	op := e.op("resume_machine", cmd)
	return e.run(ctx, op, func(ctx context.Context) error {
		_, step, err := e.load(ctx, cmd)
		if err != nil {
			return err
		}
		rec, err := e.store.GetWorkRecord(ctx, step.ID, cmd.MachineCode)
		if err != nil {
			return err
		}
		if err := rec.Resume(); err != nil {
			return err
		}
		rec.Touch()
		return e.store.UpdateWorkRecord(ctx, rec)
	})
}

// Status returns the read model for one step: its instance, work records,
// expected quantity, and what the completion evaluator would decide now.
// It is step-scoped; no machine is addressed.
func (e *Engine) Status(ctx context.Context, cmd StepCommand) (*StepStatus, error) {
	_, step, err := e.loadStep(ctx, cmd.JobID, cmd.PlanID, cmd.StepNo)
	if err != nil {
		return nil, err
	}
	records, err := e.store.ListWorkRecords(ctx, step.ID)
	if err != nil {
		return nil, err
	}
	expected, err := e.resolver.Expected(ctx, cmd.JobID, cmd.PlanID, cmd.StepNo)
	if err != nil {
		return nil, err
	}
	return &StepStatus{
		Step:     step,
		Records:  records,
		Expected: expected,
		Decision: completion.Evaluate(records, expected),
	}, nil
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

func (e *Engine) op(name string, cmd MachineCommand) *mw.Operation {
	return &mw.Operation{
		Name:        name,
		Job:         cmd.JobID.String(),
		StepName:    cmd.StepNo.Name(),
		MachineCode: cmd.MachineCode,
		Actor:       cmd.Actor.UserID,
	}
}

// load resolves and validates the job and step a machine command addresses.
func (e *Engine) load(ctx context.Context, cmd MachineCommand) (*job.Job, *plan.StepInstance, error) {
	if cmd.MachineCode == "" {
		return nil, nil, fmt.Errorf("%w: machine code required", boxline.ErrValidationFailed)
	}
	return e.loadStep(ctx, cmd.JobID, cmd.PlanID, cmd.StepNo)
}

// loadStep resolves a step instance and validates its job scope.
func (e *Engine) loadStep(ctx context.Context, jobID id.JobID, planID id.PlanID, stepNo plan.StepNo) (*job.Job, *plan.StepInstance, error) {
	if !stepNo.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown step %d", boxline.ErrValidationFailed, stepNo)
	}

	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if j.Archived {
		return nil, nil, fmt.Errorf("%w: job %s", boxline.ErrJobAlreadyArchived, j.JobNumber)
	}

	step, err := e.store.GetStepByNo(ctx, planID, stepNo)
	if err != nil {
		return nil, nil, err
	}
	if step.JobID != jobID {
		return nil, nil, fmt.Errorf("%w: plan %s does not belong to job %s",
			boxline.ErrPlanNotFound, planID, j.JobNumber)
	}
	return j, step, nil
}

// completionGate rejects a write that would close the step while an earlier
// step is still open. It runs before the write is persisted: once every
// machine is stopped no command re-triggers the evaluation, so a late
// rejection would strand the step in start with nothing left to retry.
func (e *Engine) completionGate(ctx context.Context, j *job.Job, step *plan.StepInstance, rec *machine.WorkRecord) error {
	records, err := e.store.ListWorkRecords(ctx, step.ID)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = rec
		}
	}
	expected, err := e.resolver.Expected(ctx, j.ID, step.PlanID, step.StepNo)
	if err != nil {
		return err
	}
	if !completion.Evaluate(records, expected).Complete {
		return nil
	}
	return e.guard.CanComplete(ctx, step.PlanID, step.StepNo)
}

// ensureRecords mirrors the step's planned machine list (plus the addressed
// machine) into work records, creating missing ones in available status.
func (e *Engine) ensureRecords(ctx context.Context, step *plan.StepInstance, machineCode string) error {
	codes := make([]string, 0, len(step.Machines)+1)
	seen := map[string]bool{}
	for _, m := range step.Machines {
		if !seen[m.Code] {
			seen[m.Code] = true
			codes = append(codes, m.Code)
		}
	}
	if machineCode != "" && !seen[machineCode] {
		codes = append(codes, machineCode)
	}

	records := make([]*machine.WorkRecord, 0, len(codes))
	for _, code := range codes {
		records = append(records, &machine.WorkRecord{
			Entity:      boxline.NewEntity(),
			ID:          id.NewWorkRecordID(),
			StepID:      step.ID,
			PlanID:      step.PlanID,
			JobID:       step.JobID,
			StepNo:      step.StepNo,
			MachineCode: code,
			Status:      machine.StatusAvailable,
		})
	}
	return e.store.EnsureWorkRecords(ctx, records)
}

// evaluateCompletion re-reads every work record for the step and applies the
// acceptance rules. When completion fires, the step-status CAS keeps the
// side effects (detail upsert, activity log, archival) at-most-once.
func (e *Engine) evaluateCompletion(ctx context.Context, j *job.Job, step *plan.StepInstance, actor string) (*SubmitResult, error) {
	records, err := e.store.ListWorkRecords(ctx, step.ID)
	if err != nil {
		return nil, err
	}
	expected, err := e.resolver.Expected(ctx, j.ID, step.PlanID, step.StepNo)
	if err != nil {
		return nil, err
	}

	d := completion.Evaluate(records, expected)
	if !d.Complete {
		return &SubmitResult{Completed: false, Reason: d.Reason, Decision: d}, nil
	}

	// Completion is stricter than starting: every predecessor must be closed.
	if err := e.guard.CanComplete(ctx, step.PlanID, step.StepNo); err != nil {
		return nil, err
	}

	err = e.store.TransitionStep(ctx, step.ID, plan.StepStarted, plan.StepStopped)
	if errors.Is(err, boxline.ErrConcurrentCompleted) {
		// A concurrent submission already closed the step; its side effects
		// stand and the detail upsert is idempotent either way.
		return &SubmitResult{Completed: true, Reason: d.Reason, Decision: d}, nil
	}
	if err != nil {
		return nil, err
	}

	rec := e.aggregator.Build(j, step, records, d, actor)

	now := e.clock.Now().UTC()
	step.Status = plan.StepStopped
	step.CompletedAt = &now
	step.CompletedBy = rec.CompletedBy
	step.Touch()
	if err := e.store.UpdateStep(ctx, step); err != nil {
		return nil, err
	}

	if err := e.store.UpsertDetail(ctx, rec); err != nil {
		return nil, err
	}

	e.activity.StepCompleted(ctx, &activity.Entry{
		ID:          id.NewActivityID(),
		JobID:       j.ID,
		PlanID:      step.PlanID,
		StepID:      step.ID,
		StepNo:      step.StepNo,
		StepName:    step.StepNo.Name(),
		Quantity:    d.OK,
		Wastage:     d.Wastage,
		CompletedBy: rec.CompletedBy,
		Reason:      d.Reason,
		At:          now,
	})

	// Terminal step closes the job: snapshot and tear down. The step is
	// already closed; an archival failure is a reconciliation item.
	if step.StepNo.IsTerminal() {
		if _, aerr := e.archiver.Archive(ctx, j, step.PlanID); aerr != nil {
			e.reconciler.Record(ctx, j.ID, step.PlanID, reconcile.KindStep, step.ID, "archive", aerr)
		}
	}

	return &SubmitResult{Completed: true, Reason: d.Reason, Decision: d}, nil
}

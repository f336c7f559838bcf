package engine

import (
	"context"
	"fmt"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/auth"
	"github.com/plantfloor/boxline/hold"
	mw "github.com/plantfloor/boxline/middleware"
)

// MajorHold freezes every active machine and detail record for the job (or a
// single plan when the command names one). Supervisor or admin only.
func (e *Engine) MajorHold(ctx context.Context, cmd ScopeCommand) error {
	op := e.scopeOp("major_hold", cmd)
	return e.run(ctx, op, func(ctx context.Context) error {
		j, err := e.store.GetJob(ctx, cmd.JobID)
		if err != nil {
			return err
		}
		if j.Archived {
			return fmt.Errorf("%w: job %s", boxline.ErrJobAlreadyArchived, j.JobNumber)
		}
		if !cmd.Actor.HasRole(auth.RoleSupervisor) {
			return fmt.Errorf("%w: major hold requires role %s",
				boxline.ErrUnauthorized, auth.RoleSupervisor)
		}
		return e.holds.MajorHold(ctx, hold.Scope{JobID: cmd.JobID, PlanID: cmd.PlanID})
	})
}

// MajorResume lifts a major hold, restoring each frozen entity to the status
// it was frozen from. Supervisor or admin only.
func (e *Engine) MajorResume(ctx context.Context, cmd ScopeCommand) error {
	op := e.scopeOp("major_resume", cmd)
	return e.run(ctx, op, func(ctx context.Context) error {
		if _, err := e.store.GetJob(ctx, cmd.JobID); err != nil {
			return err
		}
		if !cmd.Actor.HasRole(auth.RoleSupervisor) {
			return fmt.Errorf("%w: major resume requires role %s",
				boxline.ErrUnauthorized, auth.RoleSupervisor)
		}
		return e.holds.MajorResume(ctx, hold.Scope{JobID: cmd.JobID, PlanID: cmd.PlanID})
	})
}

func (e *Engine) scopeOp(name string, cmd ScopeCommand) *mw.Operation {
	return &mw.Operation{
		Name:  name,
		Job:   cmd.JobID.String(),
		Actor: cmd.Actor.UserID,
	}
}

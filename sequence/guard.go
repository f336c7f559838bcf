// Package sequence enforces step ordering: a step can only start once every
// upstream step has at least begun, and can only be accepted as complete
// once every upstream step is fully closed.
package sequence

import (
	"context"
	"fmt"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// Guard validates sequencing preconditions against the plan store.
type Guard struct {
	steps plan.Store
}

// NewGuard creates a Guard over the given plan store.
func NewGuard(steps plan.Store) *Guard {
	return &Guard{steps: steps}
}

// CanStart reports whether step stepNo of the plan may begin work.
// Step 1 has no precondition; step N>1 requires every step <N to be in
// start or stop — parallel work across steps is allowed once a predecessor
// has begun. A violation names the offending step and its status.
func (g *Guard) CanStart(ctx context.Context, planID id.PlanID, stepNo plan.StepNo) error {
	return g.check(ctx, planID, stepNo, false)
}

// CanComplete reports whether step stepNo may be accepted as complete.
// Stricter than CanStart: every step <N must already be in stop — a step
// cannot be closed while an upstream step is still only started.
func (g *Guard) CanComplete(ctx context.Context, planID id.PlanID, stepNo plan.StepNo) error {
	return g.check(ctx, planID, stepNo, true)
}

func (g *Guard) check(ctx context.Context, planID id.PlanID, stepNo plan.StepNo, requireStopped bool) error {
	if !stepNo.Valid() {
		return fmt.Errorf("%w: unknown step %d", boxline.ErrValidationFailed, stepNo)
	}

	for n := plan.FirstStep; n < stepNo; n++ {
		s, err := g.steps.GetStepByNo(ctx, planID, n)
		if err != nil {
			return fmt.Errorf("sequence: load step %s: %w", n.Name(), err)
		}

		if requireStopped {
			if s.Status != plan.StepStopped {
				return fmt.Errorf("%w: %s must be stopped before %s can complete, currently %s",
					boxline.ErrSequenceViolation, n.Name(), stepNo.Name(), s.Status)
			}
			continue
		}

		if s.Status != plan.StepStarted && s.Status != plan.StepStopped {
			return fmt.Errorf("%w: %s must be started before %s can begin, currently %s",
				boxline.ErrSequenceViolation, n.Name(), stepNo.Name(), s.Status)
		}
	}
	return nil
}

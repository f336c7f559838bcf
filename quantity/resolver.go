// Package quantity resolves the output quantity a step is expected to
// process by walking the fixed dependency graph back to the nearest step
// type that has produced a detail record.
package quantity

import (
	"context"
	"errors"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// Resolver derives expected quantities from prior-stage detail records.
type Resolver struct {
	steps   plan.Store
	details detail.Store
}

// NewResolver creates a Resolver over the given stores.
func NewResolver(steps plan.Store, details detail.Store) *Resolver {
	return &Resolver{steps: steps, details: details}
}

// Expected returns the quantity step stepNo of the given plan is expected to
// process. Zero means "no quantity gate": the completion evaluator must fall
// through to the all-stopped rule.
//
// Resolution order: the graph predecessor's own detail record; failing that,
// the most recently created detail record for the job with that step type
// (defensive fallback for historical/irregular data); failing that, zero.
func (r *Resolver) Expected(ctx context.Context, jobID id.JobID, planID id.PlanID, stepNo plan.StepNo) (int, error) {
	pred, ok := plan.Predecessor(stepNo)
	if !ok {
		return 0, nil
	}

	predStep, err := r.steps.GetStepByNo(ctx, planID, pred)
	if err == nil {
		rec, derr := r.details.GetDetail(ctx, predStep.ID)
		if derr == nil {
			return rec.Quantity, nil
		}
		if !errors.Is(derr, boxline.ErrDetailNotFound) {
			return 0, derr
		}
	} else if !errors.Is(err, boxline.ErrStepNotFound) {
		return 0, err
	}

	rec, err := r.details.LatestDetail(ctx, jobID, pred)
	if err != nil {
		if errors.Is(err, boxline.ErrDetailNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Quantity, nil
}

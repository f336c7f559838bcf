package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// CreatePlan persists a new plan together with its step instances in one
// transaction.
func (s *Store) CreatePlan(ctx context.Context, p *plan.StepPlan, steps []*plan.StepInstance) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(toPlanModel(p)).Exec(ctx); err != nil {
			return fmt.Errorf("boxline/bun: create plan: %w", err)
		}
		for _, st := range steps {
			if _, err := tx.NewInsert().Model(toStepModel(st)).Exec(ctx); err != nil {
				return fmt.Errorf("boxline/bun: create step %d: %w", st.StepNo, err)
			}
		}
		return nil
	})
}

// GetPlan retrieves a plan by ID.
func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.StepPlan, error) {
	m := new(planModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", planID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrPlanNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get plan: %w", err)
	}
	return fromPlanModel(m)
}

// ListPlansByJob returns all plans belonging to a job.
func (s *Store) ListPlansByJob(ctx context.Context, jobID id.JobID) ([]*plan.StepPlan, error) {
	var models []planModel
	err := s.db.NewSelect().Model(&models).
		Where("job_id = ?", jobID.String()).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list plans: %w", err)
	}

	plans := make([]*plan.StepPlan, 0, len(models))
	for i := range models {
		p, convErr := fromPlanModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list plans convert: %w", convErr)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// GetStep retrieves a step instance by ID.
func (s *Store) GetStep(ctx context.Context, stepID id.StepID) (*plan.StepInstance, error) {
	m := new(stepModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", stepID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrStepNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get step: %w", err)
	}
	return fromStepModel(m)
}

// GetStepByNo retrieves the step instance for a given plan and step number.
func (s *Store) GetStepByNo(ctx context.Context, planID id.PlanID, stepNo plan.StepNo) (*plan.StepInstance, error) {
	m := new(stepModel)
	err := s.db.NewSelect().Model(m).
		Where("plan_id = ?", planID.String()).
		Where("step_no = ?", int(stepNo)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrStepNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get step by no: %w", err)
	}
	return fromStepModel(m)
}

// ListSteps returns all step instances of a plan, ordered by step number.
func (s *Store) ListSteps(ctx context.Context, planID id.PlanID) ([]*plan.StepInstance, error) {
	var models []stepModel
	err := s.db.NewSelect().Model(&models).
		Where("plan_id = ?", planID.String()).
		Order("step_no ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list steps: %w", err)
	}

	steps := make([]*plan.StepInstance, 0, len(models))
	for i := range models {
		st, convErr := fromStepModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list steps convert: %w", convErr)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// UpdateStep persists changes to an existing step instance.
func (s *Store) UpdateStep(ctx context.Context, st *plan.StepInstance) error {
	m := toStepModel(st)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: update step: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return boxline.ErrStepNotFound
	}
	return nil
}

// TransitionStep atomically moves a step from one status to another via a
// conditional UPDATE. Zero affected rows on an existing step means the status
// changed under us.
func (s *Store) TransitionStep(ctx context.Context, stepID id.StepID, from, to plan.StepStatus) error {
	res, err := s.db.NewUpdate().
		TableExpr("boxline_steps").
		Set("status = ?", string(to)).
		Set("updated_at = NOW()").
		Where("id = ?", stepID.String()).
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: transition step: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows > 0 {
		return nil
	}

	exists, err := s.db.NewSelect().
		TableExpr("boxline_steps").
		Where("id = ?", stepID.String()).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: transition step check: %w", err)
	}
	if !exists {
		return boxline.ErrStepNotFound
	}
	return boxline.ErrConcurrentCompleted
}

// DeletePlan removes a plan and all of its step instances.
func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			TableExpr("boxline_plans").
			Where("id = ?", planID.String()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("boxline/bun: delete plan: %w", err)
		}
		rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
		if rows == 0 {
			return boxline.ErrPlanNotFound
		}

		if _, err := tx.NewDelete().
			TableExpr("boxline_steps").
			Where("plan_id = ?", planID.String()).
			Exec(ctx); err != nil {
			return fmt.Errorf("boxline/bun: delete plan steps: %w", err)
		}
		return nil
	})
}

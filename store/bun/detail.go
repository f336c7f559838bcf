package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// UpsertDetail creates or replaces the record keyed by its StepID. The
// original row identity (id, created_at) survives a replace.
func (s *Store) UpsertDetail(ctx context.Context, r *detail.Record) error {
	m := toDetailModel(r)
	m.UpdatedAt = time.Now().UTC()
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (step_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("prev_status = EXCLUDED.prev_status").
		Set("quantity = EXCLUDED.quantity").
		Set("wastage = EXCLUDED.wastage").
		Set("shift = EXCLUDED.shift").
		Set("machine_codes = EXCLUDED.machine_codes").
		Set("completed_by = EXCLUDED.completed_by").
		Set("completed_at = EXCLUDED.completed_at").
		Set("fields = EXCLUDED.fields").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: upsert detail: %w", err)
	}
	return nil
}

// GetDetail retrieves the record belonging to a step instance.
func (s *Store) GetDetail(ctx context.Context, stepID id.StepID) (*detail.Record, error) {
	m := new(detailModel)
	err := s.db.NewSelect().Model(m).
		Where("step_id = ?", stepID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrDetailNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get detail: %w", err)
	}
	return fromDetailModel(m)
}

// LatestDetail returns the most recently created record for (job, step type).
func (s *Store) LatestDetail(ctx context.Context, jobID id.JobID, stepNo plan.StepNo) (*detail.Record, error) {
	m := new(detailModel)
	err := s.db.NewSelect().Model(m).
		Where("job_id = ?", jobID.String()).
		Where("step_no = ?", int(stepNo)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrDetailNotFound
		}
		return nil, fmt.Errorf("boxline/bun: latest detail: %w", err)
	}
	return fromDetailModel(m)
}

// ListDetailsByPlan returns all records belonging to a plan.
func (s *Store) ListDetailsByPlan(ctx context.Context, planID id.PlanID) ([]*detail.Record, error) {
	var models []detailModel
	err := s.db.NewSelect().Model(&models).
		Where("plan_id = ?", planID.String()).
		Order("step_no ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list details: %w", err)
	}

	records := make([]*detail.Record, 0, len(models))
	for i := range models {
		r, convErr := fromDetailModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list details convert: %w", convErr)
		}
		records = append(records, r)
	}
	return records, nil
}

// ListActiveDetails returns every non-closed record in the given plans.
func (s *Store) ListActiveDetails(ctx context.Context, planIDs []id.PlanID) ([]*detail.Record, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(planIDs))
	for _, p := range planIDs {
		ids = append(ids, p.String())
	}

	var models []detailModel
	err := s.db.NewSelect().Model(&models).
		Where("plan_id IN (?)", bun.In(ids)).
		Where("status != ?", string(detail.StatusClosed)).
		Order("step_no ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list active details: %w", err)
	}

	records := make([]*detail.Record, 0, len(models))
	for i := range models {
		r, convErr := fromDetailModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list active details convert: %w", convErr)
		}
		records = append(records, r)
	}
	return records, nil
}

// UpdateDetailStatus persists a status/prev-status change only.
func (s *Store) UpdateDetailStatus(ctx context.Context, detailID id.DetailID, status, prevStatus detail.Status) error {
	res, err := s.db.NewUpdate().
		TableExpr("boxline_details").
		Set("status = ?", string(status)).
		Set("prev_status = ?", string(prevStatus)).
		Set("updated_at = NOW()").
		Where("id = ?", detailID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: update detail status: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return boxline.ErrDetailNotFound
	}
	return nil
}

// DeleteDetailsByPlan removes all records belonging to a plan.
func (s *Store) DeleteDetailsByPlan(ctx context.Context, planID id.PlanID) error {
	_, err := s.db.NewDelete().
		TableExpr("boxline_details").
		Where("plan_id = ?", planID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: delete details: %w", err)
	}
	return nil
}

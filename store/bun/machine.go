package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/machine"
)

// EnsureWorkRecords creates records that do not exist yet, leaving existing
// ones untouched. (step_id, machine_code) is unique; conflicts are skipped.
func (s *Store) EnsureWorkRecords(ctx context.Context, records []*machine.WorkRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]workRecordModel, 0, len(records))
	for _, r := range records {
		models = append(models, *toWorkRecordModel(r))
	}
	_, err := s.db.NewInsert().
		Model(&models).
		On("CONFLICT (step_id, machine_code) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: ensure work records: %w", err)
	}
	return nil
}

// GetWorkRecord retrieves the record for (step, machine code). Machine codes
// are matched case-insensitively.
func (s *Store) GetWorkRecord(ctx context.Context, stepID id.StepID, machineCode string) (*machine.WorkRecord, error) {
	m := new(workRecordModel)
	err := s.db.NewSelect().Model(m).
		Where("step_id = ?", stepID.String()).
		Where("UPPER(machine_code) = UPPER(?)", machineCode).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrWorkRecordNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get work record: %w", err)
	}
	return fromWorkRecordModel(m)
}

// UpdateWorkRecord persists changes to an existing record.
func (s *Store) UpdateWorkRecord(ctx context.Context, r *machine.WorkRecord) error {
	m := toWorkRecordModel(r)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: update work record: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return boxline.ErrWorkRecordNotFound
	}
	return nil
}

// ListWorkRecords returns all records for a step, ordered by machine code.
func (s *Store) ListWorkRecords(ctx context.Context, stepID id.StepID) ([]*machine.WorkRecord, error) {
	var models []workRecordModel
	err := s.db.NewSelect().Model(&models).
		Where("step_id = ?", stepID.String()).
		Order("machine_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list work records: %w", err)
	}

	records := make([]*machine.WorkRecord, 0, len(models))
	for i := range models {
		r, convErr := fromWorkRecordModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list work records convert: %w", convErr)
		}
		records = append(records, r)
	}
	return records, nil
}

// ListActiveWorkRecords returns every non-stopped record in the given plans.
func (s *Store) ListActiveWorkRecords(ctx context.Context, planIDs []id.PlanID) ([]*machine.WorkRecord, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(planIDs))
	for _, p := range planIDs {
		ids = append(ids, p.String())
	}

	var models []workRecordModel
	err := s.db.NewSelect().Model(&models).
		Where("plan_id IN (?)", bun.In(ids)).
		Where("status != ?", string(machine.StatusStop)).
		Order("step_no ASC").
		Order("machine_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list active work records: %w", err)
	}

	records := make([]*machine.WorkRecord, 0, len(models))
	for i := range models {
		r, convErr := fromWorkRecordModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list active work records convert: %w", convErr)
		}
		records = append(records, r)
	}
	return records, nil
}

// DeleteWorkRecordsByPlan removes all records belonging to a plan.
func (s *Store) DeleteWorkRecordsByPlan(ctx context.Context, planID id.PlanID) error {
	_, err := s.db.NewDelete().
		TableExpr("boxline_work_records").
		Where("plan_id = ?", planID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: delete work records: %w", err)
	}
	return nil
}

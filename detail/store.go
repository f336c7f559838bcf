package detail

import (
	"context"

	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// Store defines the persistence contract for step detail records.
type Store interface {
	// UpsertDetail creates or replaces the detail record keyed by its
	// StepID. A step instance never owns more than one record; a concurrent
	// double-write resolves to the same row.
	UpsertDetail(ctx context.Context, r *Record) error

	// GetDetail retrieves the record belonging to a step instance.
	GetDetail(ctx context.Context, stepID id.StepID) (*Record, error)

	// LatestDetail returns the most recently created record for the given
	// job and step type. Defensive fallback for historical/irregular data
	// where the predecessor instance carries no record of its own.
	LatestDetail(ctx context.Context, jobID id.JobID, stepNo plan.StepNo) (*Record, error)

	// ListDetailsByPlan returns all records belonging to a plan.
	ListDetailsByPlan(ctx context.Context, planID id.PlanID) ([]*Record, error)

	// ListActiveDetails returns every record in the given plans whose status
	// is not closed — the set a major hold freezes.
	ListActiveDetails(ctx context.Context, planIDs []id.PlanID) ([]*Record, error)

	// UpdateDetailStatus persists a status/prev-status change only.
	UpdateDetailStatus(ctx context.Context, detailID id.DetailID, status, prevStatus Status) error

	// DeleteDetailsByPlan removes all records belonging to a plan.
	// Used during archival teardown after the snapshot is written.
	DeleteDetailsByPlan(ctx context.Context, planID id.PlanID) error
}

package machine

import (
	"context"

	"github.com/plantfloor/boxline/id"
)

// Store defines the persistence contract for machine work records.
type Store interface {
	// EnsureWorkRecords creates a record in available status for every
	// planned machine code that does not yet have one, so the record set
	// stays a superset mirror of the step's planned machine list.
	// Existing records are left untouched.
	EnsureWorkRecords(ctx context.Context, records []*WorkRecord) error

	// GetWorkRecord retrieves the record for (step, machine code).
	GetWorkRecord(ctx context.Context, stepID id.StepID, machineCode string) (*WorkRecord, error)

	// UpdateWorkRecord persists changes to an existing record. The write is
	// an atomic read-modify-write against that record only.
	UpdateWorkRecord(ctx context.Context, r *WorkRecord) error

	// ListWorkRecords returns all records for a step instance, ordered by
	// machine code.
	ListWorkRecords(ctx context.Context, stepID id.StepID) ([]*WorkRecord, error)

	// ListActiveWorkRecords returns every record in the given plans whose
	// status is not stop — the working set a major hold freezes.
	ListActiveWorkRecords(ctx context.Context, planIDs []id.PlanID) ([]*WorkRecord, error)

	// DeleteWorkRecordsByPlan removes all records belonging to a plan.
	// Used during archival teardown.
	DeleteWorkRecordsByPlan(ctx context.Context, planID id.PlanID) error
}

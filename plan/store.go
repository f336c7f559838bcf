package plan

import (
	"context"

	"github.com/plantfloor/boxline/id"
)

// Store defines the persistence contract for step plans and step instances.
type Store interface {
	// CreatePlan persists a new plan together with its step instances.
	CreatePlan(ctx context.Context, p *StepPlan, steps []*StepInstance) error

	// GetPlan retrieves a plan by ID.
	GetPlan(ctx context.Context, planID id.PlanID) (*StepPlan, error)

	// ListPlansByJob returns all plans belonging to a job.
	ListPlansByJob(ctx context.Context, jobID id.JobID) ([]*StepPlan, error)

	// GetStep retrieves a step instance by ID.
	GetStep(ctx context.Context, stepID id.StepID) (*StepInstance, error)

	// GetStepByNo retrieves the step instance for a given plan and step number.
	GetStepByNo(ctx context.Context, planID id.PlanID, stepNo StepNo) (*StepInstance, error)

	// ListSteps returns all step instances of a plan, ordered by step number.
	ListSteps(ctx context.Context, planID id.PlanID) ([]*StepInstance, error)

	// UpdateStep persists changes to an existing step instance.
	UpdateStep(ctx context.Context, s *StepInstance) error

	// TransitionStep atomically moves a step instance from one status to
	// another. It fails with boxline.ErrConcurrentCompleted if the current
	// status is not exactly `from` — the compare-and-swap that keeps
	// completion side effects at-most-once under concurrent submissions.
	TransitionStep(ctx context.Context, stepID id.StepID, from, to StepStatus) error

	// DeletePlan removes a plan and all of its step instances.
	// Work records and detail records hang off the step instances and are
	// removed by their own stores during archival.
	DeletePlan(ctx context.Context, planID id.PlanID) error
}

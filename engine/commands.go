package engine

import (
	"github.com/plantfloor/boxline/auth"
	"github.com/plantfloor/boxline/completion"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
)

// MachineCommand addresses one machine working one step of one plan.
type MachineCommand struct {
	JobID       id.JobID      `json:"job_id"`
	PlanID      id.PlanID     `json:"plan_id"`
	StepNo      plan.StepNo   `json:"step_no"`
	MachineCode string        `json:"machine_code"`
	Actor       auth.Identity `json:"actor"`
}

// StepCommand addresses one step instance without naming a machine.
// Read-model queries use it.
type StepCommand struct {
	JobID  id.JobID      `json:"job_id"`
	PlanID id.PlanID     `json:"plan_id"`
	StepNo plan.StepNo   `json:"step_no"`
	Actor  auth.Identity `json:"actor"`
}

// SubmitCommand carries a work submission for one machine.
type SubmitCommand struct {
	MachineCommand
	// Form is the submitted work payload, interpreted per step type.
	// Field names may use historical spellings; they are normalized before
	// any business rule sees them.
	Form map[string]string `json:"form"`
}

// HoldCommand pauses one machine with a remark.
type HoldCommand struct {
	MachineCommand
	Remark string `json:"remark"`
}

// ScopeCommand addresses a whole job or one of its plans.
type ScopeCommand struct {
	JobID  id.JobID      `json:"job_id"`
	PlanID id.PlanID     `json:"plan_id,omitempty"` // Nil means the whole job
	Actor  auth.Identity `json:"actor"`
}

// SubmitResult reports whether a submission (or stop) fired completion,
// and the human-readable reason either way.
type SubmitResult struct {
	Completed bool                `json:"completed"`
	Reason    string              `json:"reason"`
	Decision  completion.Decision `json:"decision"`
}

// StepStatus is the read model for one step's progress.
type StepStatus struct {
	Step     *plan.StepInstance    `json:"step"`
	Records  []*machine.WorkRecord `json:"records"`
	Expected int                   `json:"expected"`
	Decision completion.Decision   `json:"decision"`
}

// Package plan defines the step plan for a job: the ordered list of step
// instances the engine mutates as production progresses, and the fixed
// (non-linear) dependency graph between pipeline steps.
//
// A job may carry more than one active plan (e.g. across purchase orders);
// hold operations accept either a job-wide or plan-scoped identifier set.
package plan

import (
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
)

// StepStatus is the coarse lifecycle status of a step instance.
type StepStatus string

const (
	// StepPlanned means no machine has begun work on the step.
	StepPlanned StepStatus = "planned"
	// StepStarted means at least one machine has begun work.
	StepStarted StepStatus = "start"
	// StepStopped means the step has been accepted as complete.
	StepStopped StepStatus = "stop"
)

// MachineRef is the planned-machine descriptor snapshotted onto a step
// instance at plan creation time. Every planned machine gets a work record
// the first time the step is touched, even if the machine itself never is.
type MachineRef struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// StepPlan is the ordered list of step instances belonging to one job.
// Created once; read-only for the engine apart from deletion at archival.
type StepPlan struct {
	boxline.Entity

	ID       id.PlanID `json:"id"`
	JobID    id.JobID  `json:"job_id"`
	PONumber string    `json:"po_number,omitempty"`
}

// StepInstance is one row per (plan, step number), mutated by the engine.
type StepInstance struct {
	boxline.Entity

	ID          id.StepID    `json:"id"`
	PlanID      id.PlanID    `json:"plan_id"`
	JobID       id.JobID     `json:"job_id"`
	StepNo      StepNo       `json:"step_no"`
	Status      StepStatus   `json:"status"`
	Machines    []MachineRef `json:"machines,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CompletedBy string       `json:"completed_by,omitempty"`
}

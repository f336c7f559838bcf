// Package detail defines the canonical, step-type-specific output record
// written when a step's completion criteria fire, plus the normalization
// table that maps historical submission field spellings onto canonical keys.
package detail

import (
	"fmt"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/shift"
)

// Status represents the lifecycle status of a detail record.
type Status string

const (
	// StatusActive means the record belongs to a live plan.
	StatusActive Status = "active"
	// StatusMajorHold means the record is frozen by a job-wide hold.
	StatusMajorHold Status = "major_hold"
	// StatusClosed means the owning step has been accepted as complete.
	StatusClosed Status = "closed"
)

// Record is the canonical output row for one step instance. At most one
// exists per step instance (upsert keyed by StepID).
type Record struct {
	boxline.Entity

	ID     id.DetailID `json:"id"`
	StepID id.StepID   `json:"step_id"`
	PlanID id.PlanID   `json:"plan_id"`
	JobID  id.JobID    `json:"job_id"`
	StepNo plan.StepNo `json:"step_no"`
	Status Status      `json:"status"`

	// PrevStatus remembers the status a major hold froze this record from.
	PrevStatus Status `json:"prev_status,omitempty"`

	// Calculated totals. These override any individual machine's raw figures.
	Quantity int `json:"quantity"`
	Wastage  int `json:"wastage"`

	Shift        shift.Shift `json:"shift,omitempty"`
	MachineCodes string      `json:"machine_codes,omitempty"`
	CompletedBy  string      `json:"completed_by,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`

	// Fields carries the merged per-machine submission values that are not
	// normalized into dedicated columns, later machines winning on conflict.
	Fields map[string]string `json:"fields,omitempty"`
}

// Freeze transitions the record to major_hold, capturing the current status.
func (r *Record) Freeze() error {
	if r.Status == StatusMajorHold {
		return fmt.Errorf("%w: detail for step %s already frozen",
			boxline.ErrInvalidTransition, r.StepID)
	}
	r.PrevStatus = r.Status
	r.Status = StatusMajorHold
	return nil
}

// Thaw restores the record to the status it was frozen from, defaulting to
// active when no marker was captured.
func (r *Record) Thaw() error {
	if r.Status != StatusMajorHold {
		return fmt.Errorf("%w: detail for step %s is %s, thaw requires %s",
			boxline.ErrInvalidTransition, r.StepID, r.Status, StatusMajorHold)
	}
	if r.PrevStatus != "" {
		r.Status = r.PrevStatus
	} else {
		r.Status = StatusActive
	}
	r.PrevStatus = ""
	return nil
}

// Package machine defines the machine work record: the unit of work tracking
// one physical machine's contribution to one step instance. Each record has
// its own lifecycle independent of the step's own status.
package machine

import (
	"fmt"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// Status represents the lifecycle status of a machine work record.
type Status string

const (
	// StatusAvailable means the machine is planned for the step but has not
	// been touched yet.
	StatusAvailable Status = "available"
	// StatusInProgress means an operator is working the machine.
	StatusInProgress Status = "in_progress"
	// StatusHold means the machine's work is temporarily paused.
	StatusHold Status = "hold"
	// StatusMajorHold means the machine is frozen by a job-wide hold.
	StatusMajorHold Status = "major_hold"
	// StatusStop means the machine has been closed out for this step. Terminal.
	StatusStop Status = "stop"
)

// WorkRecord tracks one machine's contribution to one step instance.
// (StepID, MachineCode) is unique; the set of records for a step is a
// superset mirror of the step's planned machine list.
type WorkRecord struct {
	boxline.Entity

	ID          id.WorkRecordID `json:"id"`
	StepID      id.StepID       `json:"step_id"`
	PlanID      id.PlanID       `json:"plan_id"`
	JobID       id.JobID        `json:"job_id"`
	StepNo      plan.StepNo     `json:"step_no"`
	MachineCode string          `json:"machine_code"`
	Status      Status          `json:"status"`

	// PrevStatus remembers the status a major hold froze this record from.
	// Set only during a major hold; cleared on resume.
	PrevStatus Status `json:"prev_status,omitempty"`

	// FormData is the submitted work payload, interpreted per step type.
	// Persisted only through the explicit submit action.
	FormData map[string]string `json:"form_data,omitempty"`

	OperatorID   string     `json:"operator_id,omitempty"`
	OperatorName string     `json:"operator_name,omitempty"`
	Remark       string     `json:"remark,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Submitted reports whether the record carries submitted form data.
func (r *WorkRecord) Submitted() bool { return len(r.FormData) > 0 }

// Start transitions the record from available to in_progress, binding the
// operator identity and stamping StartedAt. Machine access and step
// sequencing checks belong to the engine; this guards only the state machine.
func (r *WorkRecord) Start(operatorID, operatorName string, now time.Time) error {
	if r.Status != StatusAvailable {
		return fmt.Errorf("%w: machine %s is %s, can only start from %s",
			boxline.ErrInvalidTransition, r.MachineCode, r.Status, StatusAvailable)
	}
	r.Status = StatusInProgress
	r.OperatorID = operatorID
	r.OperatorName = operatorName
	t := now.UTC()
	r.StartedAt = &t
	return nil
}

// Hold pauses an in-progress record, recording the caller-supplied remark.
func (r *WorkRecord) Hold(remark string) error {
	if r.Status != StatusInProgress {
		return fmt.Errorf("%w: machine %s is %s, hold requires %s",
			boxline.ErrInvalidTransition, r.MachineCode, r.Status, StatusInProgress)
	}
	r.Status = StatusHold
	r.Remark = remark
	return nil
}

// Resume re-enables submission on a held record. Clears nothing else.
func (r *WorkRecord) Resume() error {
	if r.Status != StatusHold {
		return fmt.Errorf("%w: machine %s is %s, resume requires %s",
			boxline.ErrInvalidTransition, r.MachineCode, r.Status, StatusHold)
	}
	r.Status = StatusInProgress
	return nil
}

// Stop closes the record out, stamping CompletedAt. Submitted form data is
// untouched — data is only persisted through the explicit submit action.
// Stopping an already-stopped record fails.
func (r *WorkRecord) Stop(now time.Time) error {
	if r.Status == StatusStop {
		return fmt.Errorf("%w: machine %s is already stopped",
			boxline.ErrInvalidTransition, r.MachineCode)
	}
	if r.Status == StatusMajorHold {
		return fmt.Errorf("%w: machine %s is frozen by a major hold",
			boxline.ErrInvalidTransition, r.MachineCode)
	}
	r.Status = StatusStop
	t := now.UTC()
	r.CompletedAt = &t
	return nil
}

// Freeze transitions the record to major_hold, capturing the current status
// so Thaw can restore it exactly. Stopped records are never frozen.
func (r *WorkRecord) Freeze() error {
	if r.Status == StatusStop || r.Status == StatusMajorHold {
		return fmt.Errorf("%w: machine %s is %s, cannot freeze",
			boxline.ErrInvalidTransition, r.MachineCode, r.Status)
	}
	r.PrevStatus = r.Status
	r.Status = StatusMajorHold
	return nil
}

// Thaw restores the record to the status it was frozen from. A record with
// no captured previous status defaults to in_progress.
func (r *WorkRecord) Thaw() error {
	if r.Status != StatusMajorHold {
		return fmt.Errorf("%w: machine %s is %s, thaw requires %s",
			boxline.ErrInvalidTransition, r.MachineCode, r.Status, StatusMajorHold)
	}
	if r.PrevStatus != "" {
		r.Status = r.PrevStatus
	} else {
		r.Status = StatusInProgress
	}
	r.PrevStatus = ""
	return nil
}

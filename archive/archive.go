// Package archive writes the terminal snapshot of a job once its last
// pipeline step closes. After archival the plan, its step instances, work
// records, and live detail records are deleted; the job becomes read-only
// history.
package archive

import (
	"time"

	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// StepSnapshot captures one step's final state inside an archive.
type StepSnapshot struct {
	StepNo      plan.StepNo    `json:"step_no"`
	StepName    string         `json:"step_name"`
	Status      plan.StepStatus `json:"status"`
	CompletedBy string         `json:"completed_by,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Detail      *detail.Record `json:"detail,omitempty"`
}

// Archive is the terminal snapshot of a job's plan and detail records.
// Written once, when the terminal step accepts.
type Archive struct {
	ID         id.ArchiveID   `json:"id"`
	JobID      id.JobID       `json:"job_id"`
	JobNumber  string         `json:"job_number"`
	PlanID     id.PlanID      `json:"plan_id"`
	PONumber   string         `json:"po_number,omitempty"`
	Steps      []StepSnapshot `json:"steps"`
	ArchivedAt time.Time      `json:"archived_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

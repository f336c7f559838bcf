// Package job defines the production order entity. A job is identified by
// its job number and carries the board/material attributes the detail
// aggregator auto-fills into step records whose submission forms omit them.
package job

import (
	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
)

// Priority represents the demand priority of a job. High-priority jobs
// bypass per-machine operator access checks.
type Priority string

const (
	// PriorityNormal is the default demand priority.
	PriorityNormal Priority = "normal"
	// PriorityHigh marks a high-demand job; machine access checks are bypassed.
	PriorityHigh Priority = "high"
)

// Job represents one corrugated-box production order.
type Job struct {
	boxline.Entity

	ID        id.JobID `json:"id"`
	JobNumber string   `json:"job_number"`
	Customer  string   `json:"customer,omitempty"`
	Priority  Priority `json:"priority"`

	// Board/material attributes. The aggregator copies these into step
	// detail records whose schema expects them but whose submission form
	// does not collect them.
	Material    string `json:"material,omitempty"`
	GSM         string `json:"gsm,omitempty"`
	PaperSize   string `json:"paper_size,omitempty"`
	DieCode     string `json:"die_code,omitempty"`
	Ply         int    `json:"ply,omitempty"`
	PrintColors string `json:"print_colors,omitempty"`

	// Archived is set once the terminal step closes and the plan has been
	// snapshotted into the archive. Archived jobs are read-only history.
	Archived bool `json:"archived"`
}

// IsHighDemand reports whether machine access checks are bypassed for this job.
func (j *Job) IsHighDemand() bool { return j.Priority == PriorityHigh }

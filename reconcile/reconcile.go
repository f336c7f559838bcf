// Package reconcile keeps the ledger of best-effort secondary updates that
// failed mid-operation (e.g. one step-detail freeze among many during a major
// hold). The primary operation still reports success; these entries exist so
// operational tooling can reconcile the stragglers by hand.
package reconcile

import (
	"time"

	"github.com/plantfloor/boxline/id"
)

// EntityKind names the kind of entity a failed update targeted.
type EntityKind string

const (
	// KindWorkRecord is a machine work record.
	KindWorkRecord EntityKind = "work_record"
	// KindDetail is a step detail record.
	KindDetail EntityKind = "detail"
	// KindStep is a step instance.
	KindStep EntityKind = "step"
)

// Entry records one failed best-effort update awaiting manual reconciliation.
type Entry struct {
	ID         id.ReconcileID `json:"id"`
	JobID      id.JobID       `json:"job_id"`
	PlanID     id.PlanID      `json:"plan_id,omitempty"`
	EntityKind EntityKind     `json:"entity_kind"`
	EntityID   id.ID          `json:"entity_id"`
	Op         string         `json:"op"`
	Cause      string         `json:"cause"`
	OccurredAt time.Time      `json:"occurred_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Package aggregate merges per-machine submissions into the one canonical
// step detail record written when a step's completion criteria fire.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/completion"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/shift"
)

// Aggregator builds canonical detail records from machine submissions.
type Aggregator struct {
	clock    shift.Clock
	calendar shift.Calendar
}

// NewAggregator creates an Aggregator with the injected clock and calendar.
func NewAggregator(clock shift.Clock, calendar shift.Calendar) *Aggregator {
	return &Aggregator{clock: clock, calendar: calendar}
}

// Build assembles the canonical detail record for a completed step.
//
// Calculated totals from the completion decision override any individual
// machine's raw figures. All other submitted fields merge machine-by-machine
// in submission order, later machines winning on conflict, excluding keys
// already normalized onto dedicated columns. Fields the step's detail schema
// expects but the submission form does not collect are auto-populated from
// the parent job.
func (a *Aggregator) Build(j *job.Job, step *plan.StepInstance, records []*machine.WorkRecord, d completion.Decision, actor string) *detail.Record {
	now := a.clock.Now().UTC()

	rec := &detail.Record{
		Entity:   boxline.NewEntity(),
		ID:       id.NewDetailID(),
		StepID:   step.ID,
		PlanID:   step.PlanID,
		JobID:    step.JobID,
		StepNo:   step.StepNo,
		Status:   detail.StatusClosed,
		Quantity: d.OK,
		Wastage:  d.Wastage,
		Shift:    a.calendar.ShiftAt(now),
		Fields:   map[string]string{},
	}
	rec.CompletedAt = &now

	submitted := submittedInOrder(records)

	var codes []string
	seenWorkers := map[string]bool{}
	var workers []string
	for _, r := range submitted {
		codes = append(codes, r.MachineCode)
		name := r.OperatorName
		if name == "" {
			name = r.OperatorID
		}
		if name != "" && !seenWorkers[name] {
			seenWorkers[name] = true
			workers = append(workers, name)
		}
		for k, v := range r.FormData {
			ck := detail.Canonical(k)
			if detail.MergeExcluded(ck) || strings.TrimSpace(v) == "" {
				continue
			}
			rec.Fields[ck] = v
		}
	}

	rec.MachineCodes = strings.Join(codes, ",")
	if len(workers) > 0 {
		rec.CompletedBy = strings.Join(workers, ",")
	} else {
		// No machine ever carried form data: fall back to the caller.
		rec.CompletedBy = actor
	}

	a.autofill(rec, j)
	return rec
}

// autofill copies job attributes into detail fields the step's schema
// expects but whose submission form does not collect them. A submitted
// value always wins over the job's.
func (a *Aggregator) autofill(rec *detail.Record, j *job.Job) {
	if j == nil {
		return
	}
	fill := func(key, val string) {
		if val == "" {
			return
		}
		if _, ok := rec.Fields[key]; !ok {
			rec.Fields[key] = val
		}
	}

	switch rec.StepNo {
	case plan.StepPaperStore, plan.StepCorrugation, plan.StepFluteLamination:
		fill("material", j.Material)
		fill("gsm", j.GSM)
		fill("papersize", j.PaperSize)
	case plan.StepPrinting:
		fill("printcolors", j.PrintColors)
		fill("papersize", j.PaperSize)
	case plan.StepPunching:
		fill("diecode", j.DieCode)
	}
}

// submittedInOrder returns the records carrying form data, ordered by
// submission time (then machine code for records submitted in the same
// instant) so the later-wins merge is deterministic.
func submittedInOrder(records []*machine.WorkRecord) []*machine.WorkRecord {
	var out []*machine.WorkRecord
	for _, r := range records {
		if r.Submitted() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		ti, tk := submitTime(out[i]), submitTime(out[k])
		if ti.Equal(tk) {
			return out[i].MachineCode < out[k].MachineCode
		}
		return ti.Before(tk)
	})
	return out
}

func submitTime(r *machine.WorkRecord) time.Time {
	if r.SubmittedAt != nil {
		return *r.SubmittedAt
	}
	return r.UpdatedAt
}

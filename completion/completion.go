// Package completion decides whether a step being worked by N machines is
// done. Two independent acceptance rules apply, first match wins:
//
// Rule A (quantity closure): the summed ok+wastage across submitted machine
// records has reached the expected output of the previous stage.
//
// Rule B (explicit-stop closure): every machine record has been explicitly
// stopped, allowing the floor supervisor to accept a partial quantity.
//
// A machine that was never touched blocks Rule B: an untouched machine must
// not be silently treated as "not contributing" — the caller must either use
// it or explicitly stop it.
package completion

import (
	"fmt"
	"strings"

	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/machine"
)

// Rule identifies which acceptance rule fired.
type Rule string

const (
	// RuleQuantity is quantity closure (Rule A).
	RuleQuantity Rule = "quantity_match"
	// RuleAllStopped is explicit-stop closure (Rule B).
	RuleAllStopped Rule = "all_machines_stopped"
)

// Decision is the outcome of a completion evaluation.
type Decision struct {
	Complete bool   `json:"complete"`
	Rule     Rule   `json:"rule,omitempty"`
	Reason   string `json:"reason"`

	OK       int `json:"ok_quantity"`
	Wastage  int `json:"wastage"`
	Expected int `json:"expected"`

	Submitted int `json:"submitted_machines"`
	Stopped   int `json:"stopped_machines"`
	Untouched int `json:"untouched_machines"`
}

// Evaluate aggregates the submitted quantities across all work records for a
// step and decides whether the step is complete. Rule A is checked before
// Rule B; the order is load-bearing (see package doc).
func Evaluate(records []*machine.WorkRecord, expected int) Decision {
	d := Decision{Expected: expected}

	var untouched []string
	for _, r := range records {
		if r.Submitted() {
			d.Submitted++
			ok, waste := detail.Quantities(r.FormData)
			d.OK += ok
			d.Wastage += waste
		}
		switch r.Status {
		case machine.StatusStop:
			d.Stopped++
		case machine.StatusAvailable:
			d.Untouched++
			untouched = append(untouched, r.MachineCode)
		}
	}

	total := d.OK + d.Wastage

	// Rule A: quantity closure.
	if expected > 0 && total >= expected {
		d.Complete = true
		d.Rule = RuleQuantity
		d.Reason = fmt.Sprintf("quantity match: %d >= %d", total, expected)
		return d
	}

	// An untouched machine blocks everything short of quantity closure.
	if d.Untouched > 0 {
		d.Reason = fmt.Sprintf("%d/%d submitted, machine(s) %s never used: use or stop them",
			total, expected, strings.Join(untouched, ", "))
		return d
	}

	// Rule B: explicit-stop closure.
	if len(records) > 0 && d.Stopped == len(records) {
		d.Complete = true
		d.Rule = RuleAllStopped
		d.Reason = fmt.Sprintf("all machines stopped: accepting %d/%d", total, expected)
		return d
	}

	d.Reason = fmt.Sprintf("%d/%d submitted, %d/%d stopped",
		total, expected, d.Stopped, len(records))
	return d
}

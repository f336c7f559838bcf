package machine

import (
	"errors"
	"testing"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
)

func newRecord(status Status) *WorkRecord {
	return &WorkRecord{
		Entity:      boxline.NewEntity(),
		ID:          id.NewWorkRecordID(),
		StepID:      id.NewStepID(),
		MachineCode: "PRN-01",
		Status:      status,
	}
}

func TestStartBindsOperatorAndTimestamp(t *testing.T) {
	t.Parallel()

	r := newRecord(StatusAvailable)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	if err := r.Start("u-42", "Asha", now); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.Status != StatusInProgress {
		t.Fatalf("status = %s, want %s", r.Status, StatusInProgress)
	}
	if r.OperatorID != "u-42" || r.OperatorName != "Asha" {
		t.Fatalf("operator not bound: %q/%q", r.OperatorID, r.OperatorName)
	}
	if r.StartedAt == nil || !r.StartedAt.Equal(now) {
		t.Fatalf("StartedAt = %v, want %v", r.StartedAt, now)
	}
}

func TestTransitionGuards(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name string
		run  func() error
	}{
		{"start from in_progress", func() error { return newRecord(StatusInProgress).Start("u", "n", now) }},
		{"start from stop", func() error { return newRecord(StatusStop).Start("u", "n", now) }},
		{"hold from available", func() error { return newRecord(StatusAvailable).Hold("why") }},
		{"hold from stop", func() error { return newRecord(StatusStop).Hold("why") }},
		{"resume from in_progress", func() error { return newRecord(StatusInProgress).Resume() }},
		{"stop from major_hold", func() error { return newRecord(StatusMajorHold).Stop(now) }},
		{"freeze from stop", func() error { return newRecord(StatusStop).Freeze() }},
		{"thaw from in_progress", func() error { return newRecord(StatusInProgress).Thaw() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, boxline.ErrInvalidTransition) {
				t.Fatalf("err = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestStopIsNotIdempotent(t *testing.T) {
	t.Parallel()

	r := newRecord(StatusInProgress)
	now := time.Now().UTC()

	if err := r.Stop(now); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if r.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped")
	}

	err := r.Stop(now)
	if !errors.Is(err, boxline.ErrInvalidTransition) {
		t.Fatalf("second Stop err = %v, want ErrInvalidTransition", err)
	}
}

func TestStopAllowedFromAvailableAndHold(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	for _, status := range []Status{StatusAvailable, StatusHold, StatusInProgress} {
		r := newRecord(status)
		if err := r.Stop(now); err != nil {
			t.Fatalf("Stop from %s: %v", status, err)
		}
	}
}

func TestHoldResumeRoundTrip(t *testing.T) {
	t.Parallel()

	r := newRecord(StatusInProgress)
	if err := r.Hold("paper jam"); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if r.Remark != "paper jam" {
		t.Fatalf("remark = %q", r.Remark)
	}
	if err := r.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if r.Status != StatusInProgress {
		t.Fatalf("status after resume = %s", r.Status)
	}
	// Resume clears nothing: the remark history is preserved.
	if r.Remark != "paper jam" {
		t.Fatalf("remark cleared on resume: %q", r.Remark)
	}
}

func TestFreezeThawRestoresExactStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []Status{StatusAvailable, StatusInProgress, StatusHold} {
		r := newRecord(status)
		if err := r.Freeze(); err != nil {
			t.Fatalf("Freeze from %s: %v", status, err)
		}
		if r.Status != StatusMajorHold || r.PrevStatus != status {
			t.Fatalf("after freeze: status=%s prev=%s", r.Status, r.PrevStatus)
		}
		if err := r.Thaw(); err != nil {
			t.Fatalf("Thaw: %v", err)
		}
		if r.Status != status {
			t.Fatalf("thaw restored %s, want %s", r.Status, status)
		}
		if r.PrevStatus != "" {
			t.Fatalf("PrevStatus not cleared: %s", r.PrevStatus)
		}
	}
}

func TestThawWithoutMarkerDefaultsToInProgress(t *testing.T) {
	t.Parallel()

	r := newRecord(StatusMajorHold) // no PrevStatus captured
	if err := r.Thaw(); err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if r.Status != StatusInProgress {
		t.Fatalf("status = %s, want %s", r.Status, StatusInProgress)
	}
}

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
	"github.com/plantfloor/boxline/store/memory"
)

func newJob(number string) *job.Job {
	return &job.Job{
		Entity:    boxline.NewEntity(),
		ID:        id.NewJobID(),
		JobNumber: number,
		Priority:  job.PriorityNormal,
	}
}

func newPlan(t *testing.T, st *memory.Store, jobID id.JobID) (*plan.StepPlan, []*plan.StepInstance) {
	t.Helper()
	p := &plan.StepPlan{Entity: boxline.NewEntity(), ID: id.NewPlanID(), JobID: jobID}
	var steps []*plan.StepInstance
	for _, n := range plan.Steps() {
		steps = append(steps, &plan.StepInstance{
			Entity: boxline.NewEntity(),
			ID:     id.NewStepID(),
			PlanID: p.ID,
			JobID:  jobID,
			StepNo: n,
			Status: plan.StepPlanned,
		})
	}
	if err := st.CreatePlan(context.Background(), p, steps); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return p, steps
}

func TestJobStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()

	j := newJob("JOB-1")
	if err := st.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Job numbers are unique.
	dup := newJob("JOB-1")
	if err := st.CreateJob(ctx, dup); !errors.Is(err, boxline.ErrJobAlreadyExists) {
		t.Fatalf("duplicate job number: got %v, want ErrJobAlreadyExists", err)
	}

	got, err := st.GetJobByNumber(ctx, "JOB-1")
	if err != nil {
		t.Fatalf("GetJobByNumber: %v", err)
	}
	if got.ID != j.ID {
		t.Fatalf("got job %s, want %s", got.ID, j.ID)
	}

	// Reads return copies; mutating a read result must not leak back.
	got.Customer = "mutated"
	again, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.Customer == "mutated" {
		t.Fatal("store shared memory with a caller")
	}

	if _, err := st.GetJob(ctx, id.NewJobID()); !errors.Is(err, boxline.ErrJobNotFound) {
		t.Fatalf("unknown job: got %v, want ErrJobNotFound", err)
	}
}

func TestListJobsFilterAndPagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()

	for i, prio := range []job.Priority{job.PriorityNormal, job.PriorityHigh, job.PriorityHigh} {
		j := newJob("JOB-" + string(rune('A'+i)))
		j.Priority = prio
		if err := st.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	high, err := st.ListJobs(ctx, job.ListOpts{Priority: job.PriorityHigh})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(high) != 2 {
		t.Fatalf("high-priority jobs = %d, want 2", len(high))
	}

	page, err := st.ListJobs(ctx, job.ListOpts{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("page = %d jobs, want 1", len(page))
	}
}

func TestTransitionStepCAS(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()
	_, steps := newPlan(t, st, id.NewJobID())
	stepID := steps[0].ID

	if err := st.TransitionStep(ctx, stepID, plan.StepPlanned, plan.StepStarted); err != nil {
		t.Fatalf("TransitionStep: %v", err)
	}

	// The same swap again must lose: the status is no longer `planned`.
	err := st.TransitionStep(ctx, stepID, plan.StepPlanned, plan.StepStarted)
	if !errors.Is(err, boxline.ErrConcurrentCompleted) {
		t.Fatalf("stale swap: got %v, want ErrConcurrentCompleted", err)
	}

	s, err := st.GetStep(ctx, stepID)
	if err != nil {
		t.Fatalf("GetStep: %v", err)
	}
	if s.Status != plan.StepStarted {
		t.Fatalf("status = %s, want %s", s.Status, plan.StepStarted)
	}
}

func TestEnsureWorkRecordsLeavesExistingUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()
	p, steps := newPlan(t, st, id.NewJobID())
	stepID := steps[0].ID

	mk := func(code string, status machine.Status) *machine.WorkRecord {
		return &machine.WorkRecord{
			Entity:      boxline.NewEntity(),
			ID:          id.NewWorkRecordID(),
			StepID:      stepID,
			PlanID:      p.ID,
			JobID:       p.JobID,
			StepNo:      steps[0].StepNo,
			MachineCode: code,
			Status:      status,
		}
	}

	if err := st.EnsureWorkRecords(ctx, []*machine.WorkRecord{mk("M1", machine.StatusInProgress)}); err != nil {
		t.Fatalf("EnsureWorkRecords: %v", err)
	}
	// Re-ensuring with a fresh available record must not reset M1.
	if err := st.EnsureWorkRecords(ctx, []*machine.WorkRecord{
		mk("M1", machine.StatusAvailable),
		mk("M2", machine.StatusAvailable),
	}); err != nil {
		t.Fatalf("EnsureWorkRecords: %v", err)
	}

	r, err := st.GetWorkRecord(ctx, stepID, "M1")
	if err != nil {
		t.Fatalf("GetWorkRecord: %v", err)
	}
	if r.Status != machine.StatusInProgress {
		t.Fatalf("M1 status = %s, want preserved %s", r.Status, machine.StatusInProgress)
	}

	// Machine codes are matched case-insensitively.
	if _, err := st.GetWorkRecord(ctx, stepID, "m2"); err != nil {
		t.Fatalf("GetWorkRecord(lowercase): %v", err)
	}

	records, err := st.ListWorkRecords(ctx, stepID)
	if err != nil {
		t.Fatalf("ListWorkRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}

func TestUpsertDetailKeepsRowIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()
	p, steps := newPlan(t, st, id.NewJobID())
	stepID := steps[0].ID

	first := &detail.Record{
		Entity:   boxline.NewEntity(),
		ID:       id.NewDetailID(),
		StepID:   stepID,
		PlanID:   p.ID,
		JobID:    p.JobID,
		StepNo:   steps[0].StepNo,
		Status:   detail.StatusClosed,
		Quantity: 100,
	}
	if err := st.UpsertDetail(ctx, first); err != nil {
		t.Fatalf("UpsertDetail: %v", err)
	}

	second := &detail.Record{
		Entity:   boxline.NewEntity(),
		ID:       id.NewDetailID(),
		StepID:   stepID,
		PlanID:   p.ID,
		JobID:    p.JobID,
		StepNo:   steps[0].StepNo,
		Status:   detail.StatusClosed,
		Quantity: 250,
	}
	if err := st.UpsertDetail(ctx, second); err != nil {
		t.Fatalf("UpsertDetail (replace): %v", err)
	}

	got, err := st.GetDetail(ctx, stepID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("row identity changed on upsert: %s != %s", got.ID, first.ID)
	}
	if got.Quantity != 250 {
		t.Fatalf("quantity = %d, want replaced 250", got.Quantity)
	}
}

func TestDeleteByPlanTearsDownScopedRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()
	jobID := id.NewJobID()
	p1, steps1 := newPlan(t, st, jobID)
	p2, steps2 := newPlan(t, st, jobID)

	seed := []struct {
		p    *plan.StepPlan
		step *plan.StepInstance
	}{{p1, steps1[0]}, {p2, steps2[0]}}
	for _, s := range seed {
		p, step := s.p, s.step
		err := st.EnsureWorkRecords(ctx, []*machine.WorkRecord{{
			Entity:      boxline.NewEntity(),
			ID:          id.NewWorkRecordID(),
			StepID:      step.ID,
			PlanID:      p.ID,
			JobID:       jobID,
			StepNo:      step.StepNo,
			MachineCode: "M1",
			Status:      machine.StatusInProgress,
		}})
		if err != nil {
			t.Fatalf("EnsureWorkRecords: %v", err)
		}
	}

	if err := st.DeleteWorkRecordsByPlan(ctx, p1.ID); err != nil {
		t.Fatalf("DeleteWorkRecordsByPlan: %v", err)
	}
	if err := st.DeletePlan(ctx, p1.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}

	if _, err := st.GetWorkRecord(ctx, steps1[0].ID, "M1"); !errors.Is(err, boxline.ErrWorkRecordNotFound) {
		t.Fatalf("deleted record: got %v, want ErrWorkRecordNotFound", err)
	}
	if _, err := st.GetStepByNo(ctx, p1.ID, plan.StepPaperStore); !errors.Is(err, boxline.ErrStepNotFound) {
		t.Fatalf("deleted step: got %v, want ErrStepNotFound", err)
	}
	// The sibling plan is untouched.
	if _, err := st.GetWorkRecord(ctx, steps2[0].ID, "M1"); err != nil {
		t.Fatalf("sibling record: %v", err)
	}
}

func TestReconcileLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()

	e := &reconcile.Entry{
		ID:         id.NewReconcileID(),
		JobID:      id.NewJobID(),
		EntityKind: reconcile.KindDetail,
		EntityID:   id.NewDetailID(),
		Op:         "major_hold",
		Cause:      "detail update failed",
		OccurredAt: time.Now().UTC().Add(-time.Hour),
		CreatedAt:  time.Now().UTC(),
	}
	if err := st.PushReconcile(ctx, e); err != nil {
		t.Fatalf("PushReconcile: %v", err)
	}

	n, err := st.CountReconcile(ctx)
	if err != nil {
		t.Fatalf("CountReconcile: %v", err)
	}
	if n != 1 {
		t.Fatalf("unresolved = %d, want 1", n)
	}

	if err := st.ResolveReconcile(ctx, e.ID); err != nil {
		t.Fatalf("ResolveReconcile: %v", err)
	}

	open, err := st.ListReconcile(ctx, reconcile.ListOpts{})
	if err != nil {
		t.Fatalf("ListReconcile: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("open entries = %d, want 0 after resolve", len(open))
	}
	all, err := st.ListReconcile(ctx, reconcile.ListOpts{IncludeResolved: true})
	if err != nil {
		t.Fatalf("ListReconcile(resolved): %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("all entries = %d, want 1", len(all))
	}

	purged, err := st.PurgeReconcile(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("PurgeReconcile: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
}

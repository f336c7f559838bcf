// Package memory provides a fully in-memory store backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/archive"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle would not occur, but the
// subsystem checks read better); verify each subsystem.
var (
	_ job.Store       = (*Store)(nil)
	_ plan.Store      = (*Store)(nil)
	_ machine.Store   = (*Store)(nil)
	_ detail.Store    = (*Store)(nil)
	_ archive.Store   = (*Store)(nil)
	_ reconcile.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	jobs     map[string]*job.Job
	plans    map[string]*plan.StepPlan
	steps    map[string]*plan.StepInstance
	records  map[string]*machine.WorkRecord // key: "stepID:machineCode"
	details  map[string]*detail.Record      // key: stepID
	archives map[string]*archive.Archive
	ledger   map[string]*reconcile.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:     make(map[string]*job.Job),
		plans:    make(map[string]*plan.StepPlan),
		steps:    make(map[string]*plan.StepInstance),
		records:  make(map[string]*machine.WorkRecord),
		details:  make(map[string]*detail.Record),
		archives: make(map[string]*archive.Archive),
		ledger:   make(map[string]*reconcile.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// CreateJob persists a new job. Job numbers are unique.
func (m *Store) CreateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.jobs {
		if existing.JobNumber == j.JobNumber {
			return boxline.ErrJobAlreadyExists
		}
	}
	cp := *j
	m.jobs[j.ID.String()] = &cp
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, boxline.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// GetJobByNumber retrieves a job by its job number.
func (m *Store) GetJobByNumber(_ context.Context, jobNumber string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, j := range m.jobs {
		if j.JobNumber == jobNumber {
			cp := *j
			return &cp, nil
		}
	}
	return nil, boxline.ErrJobNotFound
}

// UpdateJob persists changes to an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID.String()]; !ok {
		return boxline.ErrJobNotFound
	}
	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[j.ID.String()] = &cp
	return nil
}

// DeleteJob removes a job by ID.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID.String()]; !ok {
		return boxline.ErrJobNotFound
	}
	delete(m.jobs, jobID.String())
	return nil
}

// ListJobs returns jobs matching the given options, newest first.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*job.Job
	for _, j := range m.jobs {
		if opts.Priority != "" && j.Priority != opts.Priority {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return paginate(out, opts.Limit, opts.Offset), nil
}

// ──────────────────────────────────────────────────
// Plan Store
// ──────────────────────────────────────────────────

// CreatePlan persists a new plan together with its step instances.
func (m *Store) CreatePlan(_ context.Context, p *plan.StepPlan, steps []*plan.StepInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.plans[p.ID.String()] = &cp
	for _, s := range steps {
		sc := *s
		m.steps[s.ID.String()] = &sc
	}
	return nil
}

// GetPlan retrieves a plan by ID.
func (m *Store) GetPlan(_ context.Context, planID id.PlanID) (*plan.StepPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[planID.String()]
	if !ok {
		return nil, boxline.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPlansByJob returns all plans belonging to a job.
func (m *Store) ListPlansByJob(_ context.Context, jobID id.JobID) ([]*plan.StepPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*plan.StepPlan
	for _, p := range m.plans {
		if p.JobID == jobID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID.String() < out[k].ID.String() })
	return out, nil
}

// GetStep retrieves a step instance by ID.
func (m *Store) GetStep(_ context.Context, stepID id.StepID) (*plan.StepInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.steps[stepID.String()]
	if !ok {
		return nil, boxline.ErrStepNotFound
	}
	return copyStep(s), nil
}

// GetStepByNo retrieves the step instance for a given plan and step number.
func (m *Store) GetStepByNo(_ context.Context, planID id.PlanID, stepNo plan.StepNo) (*plan.StepInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.steps {
		if s.PlanID == planID && s.StepNo == stepNo {
			return copyStep(s), nil
		}
	}
	return nil, boxline.ErrStepNotFound
}

// ListSteps returns all step instances of a plan, ordered by step number.
func (m *Store) ListSteps(_ context.Context, planID id.PlanID) ([]*plan.StepInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*plan.StepInstance
	for _, s := range m.steps {
		if s.PlanID == planID {
			out = append(out, copyStep(s))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StepNo < out[k].StepNo })
	return out, nil
}

// UpdateStep persists changes to an existing step instance.
func (m *Store) UpdateStep(_ context.Context, s *plan.StepInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.steps[s.ID.String()]; !ok {
		return boxline.ErrStepNotFound
	}
	cp := copyStep(s)
	cp.UpdatedAt = time.Now().UTC()
	m.steps[s.ID.String()] = cp
	return nil
}

// TransitionStep atomically moves a step from one status to another.
func (m *Store) TransitionStep(_ context.Context, stepID id.StepID, from, to plan.StepStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.steps[stepID.String()]
	if !ok {
		return boxline.ErrStepNotFound
	}
	if s.Status != from {
		return boxline.ErrConcurrentCompleted
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// DeletePlan removes a plan and all of its step instances.
func (m *Store) DeletePlan(_ context.Context, planID id.PlanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[planID.String()]; !ok {
		return boxline.ErrPlanNotFound
	}
	delete(m.plans, planID.String())
	for key, s := range m.steps {
		if s.PlanID == planID {
			delete(m.steps, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Machine Work Record Store
// ──────────────────────────────────────────────────

func recordKey(stepID id.StepID, machineCode string) string {
	return stepID.String() + ":" + strings.ToUpper(machineCode)
}

// EnsureWorkRecords creates records that do not exist yet, leaving existing
// ones untouched.
func (m *Store) EnsureWorkRecords(_ context.Context, records []*machine.WorkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		key := recordKey(r.StepID, r.MachineCode)
		if _, ok := m.records[key]; ok {
			continue
		}
		m.records[key] = copyRecord(r)
	}
	return nil
}

// GetWorkRecord retrieves the record for (step, machine code).
func (m *Store) GetWorkRecord(_ context.Context, stepID id.StepID, machineCode string) (*machine.WorkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[recordKey(stepID, machineCode)]
	if !ok {
		return nil, boxline.ErrWorkRecordNotFound
	}
	return copyRecord(r), nil
}

// UpdateWorkRecord persists changes to an existing record.
func (m *Store) UpdateWorkRecord(_ context.Context, r *machine.WorkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey(r.StepID, r.MachineCode)
	if _, ok := m.records[key]; !ok {
		return boxline.ErrWorkRecordNotFound
	}
	cp := copyRecord(r)
	cp.UpdatedAt = time.Now().UTC()
	m.records[key] = cp
	return nil
}

// ListWorkRecords returns all records for a step, ordered by machine code.
func (m *Store) ListWorkRecords(_ context.Context, stepID id.StepID) ([]*machine.WorkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*machine.WorkRecord
	for _, r := range m.records {
		if r.StepID == stepID {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].MachineCode < out[k].MachineCode })
	return out, nil
}

// ListActiveWorkRecords returns every non-stopped record in the given plans.
func (m *Store) ListActiveWorkRecords(_ context.Context, planIDs []id.PlanID) ([]*machine.WorkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]bool, len(planIDs))
	for _, p := range planIDs {
		want[p.String()] = true
	}

	var out []*machine.WorkRecord
	for _, r := range m.records {
		if want[r.PlanID.String()] && r.Status != machine.StatusStop {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].StepNo != out[k].StepNo {
			return out[i].StepNo < out[k].StepNo
		}
		return out[i].MachineCode < out[k].MachineCode
	})
	return out, nil
}

// DeleteWorkRecordsByPlan removes all records belonging to a plan.
func (m *Store) DeleteWorkRecordsByPlan(_ context.Context, planID id.PlanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, r := range m.records {
		if r.PlanID == planID {
			delete(m.records, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Detail Store
// ──────────────────────────────────────────────────

// UpsertDetail creates or replaces the record keyed by its StepID.
func (m *Store) UpsertDetail(_ context.Context, r *detail.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.StepID.String()
	if existing, ok := m.details[key]; ok {
		// Keep the original row identity on replace.
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	}
	cp := copyDetail(r)
	cp.UpdatedAt = time.Now().UTC()
	m.details[key] = cp
	return nil
}

// GetDetail retrieves the record belonging to a step instance.
func (m *Store) GetDetail(_ context.Context, stepID id.StepID) (*detail.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.details[stepID.String()]
	if !ok {
		return nil, boxline.ErrDetailNotFound
	}
	return copyDetail(r), nil
}

// LatestDetail returns the most recently created record for (job, step type).
func (m *Store) LatestDetail(_ context.Context, jobID id.JobID, stepNo plan.StepNo) (*detail.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *detail.Record
	for _, r := range m.details {
		if r.JobID != jobID || r.StepNo != stepNo {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, boxline.ErrDetailNotFound
	}
	return copyDetail(latest), nil
}

// ListDetailsByPlan returns all records belonging to a plan.
func (m *Store) ListDetailsByPlan(_ context.Context, planID id.PlanID) ([]*detail.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*detail.Record
	for _, r := range m.details {
		if r.PlanID == planID {
			out = append(out, copyDetail(r))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StepNo < out[k].StepNo })
	return out, nil
}

// ListActiveDetails returns every non-closed record in the given plans.
func (m *Store) ListActiveDetails(_ context.Context, planIDs []id.PlanID) ([]*detail.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]bool, len(planIDs))
	for _, p := range planIDs {
		want[p.String()] = true
	}

	var out []*detail.Record
	for _, r := range m.details {
		if want[r.PlanID.String()] && r.Status != detail.StatusClosed {
			out = append(out, copyDetail(r))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StepNo < out[k].StepNo })
	return out, nil
}

// UpdateDetailStatus persists a status/prev-status change only.
func (m *Store) UpdateDetailStatus(_ context.Context, detailID id.DetailID, status, prevStatus detail.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.details {
		if r.ID == detailID {
			r.Status = status
			r.PrevStatus = prevStatus
			r.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return boxline.ErrDetailNotFound
}

// DeleteDetailsByPlan removes all records belonging to a plan.
func (m *Store) DeleteDetailsByPlan(_ context.Context, planID id.PlanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, r := range m.details {
		if r.PlanID == planID {
			delete(m.details, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Archive Store
// ──────────────────────────────────────────────────

// CreateArchive persists a terminal snapshot.
func (m *Store) CreateArchive(_ context.Context, a *archive.Archive) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.archives {
		if existing.PlanID == a.PlanID {
			return boxline.ErrJobAlreadyArchived
		}
	}
	cp := *a
	cp.Steps = append([]archive.StepSnapshot(nil), a.Steps...)
	m.archives[a.ID.String()] = &cp
	return nil
}

// GetArchive retrieves an archive by ID.
func (m *Store) GetArchive(_ context.Context, archiveID id.ArchiveID) (*archive.Archive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.archives[archiveID.String()]
	if !ok {
		return nil, boxline.ErrArchiveNotFound
	}
	cp := *a
	cp.Steps = append([]archive.StepSnapshot(nil), a.Steps...)
	return &cp, nil
}

// ListArchivesByJob returns all archives for a job.
func (m *Store) ListArchivesByJob(_ context.Context, jobID id.JobID) ([]*archive.Archive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*archive.Archive
	for _, a := range m.archives {
		if a.JobID == jobID {
			cp := *a
			cp.Steps = append([]archive.StepSnapshot(nil), a.Steps...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ArchivedAt.Before(out[k].ArchivedAt) })
	return out, nil
}

// ──────────────────────────────────────────────────
// Reconcile Store
// ──────────────────────────────────────────────────

// PushReconcile adds a failed-update entry to the ledger.
func (m *Store) PushReconcile(_ context.Context, e *reconcile.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.ledger[e.ID.String()] = &cp
	return nil
}

// ListReconcile returns entries matching the given options, newest first.
func (m *Store) ListReconcile(_ context.Context, opts reconcile.ListOpts) ([]*reconcile.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*reconcile.Entry
	for _, e := range m.ledger {
		if !opts.IncludeResolved && e.ResolvedAt != nil {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].OccurredAt.After(out[k].OccurredAt) })
	return paginate(out, opts.Limit, opts.Offset), nil
}

// GetReconcile retrieves an entry by ID.
func (m *Store) GetReconcile(_ context.Context, entryID id.ReconcileID) (*reconcile.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.ledger[entryID.String()]
	if !ok {
		return nil, boxline.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

// ResolveReconcile marks an entry as manually reconciled.
func (m *Store) ResolveReconcile(_ context.Context, entryID id.ReconcileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.ledger[entryID.String()]
	if !ok {
		return boxline.ErrEntryNotFound
	}
	now := time.Now().UTC()
	e.ResolvedAt = &now
	return nil
}

// PurgeReconcile removes resolved entries older than the given time.
func (m *Store) PurgeReconcile(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, e := range m.ledger {
		if e.ResolvedAt != nil && e.OccurredAt.Before(before) {
			delete(m.ledger, key)
			n++
		}
	}
	return n, nil
}

// CountReconcile returns the number of unresolved entries.
func (m *Store) CountReconcile(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.ledger {
		if e.ResolvedAt == nil {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Copy helpers — callers never share memory with the store.
// ──────────────────────────────────────────────────

func copyStep(s *plan.StepInstance) *plan.StepInstance {
	cp := *s
	cp.Machines = append([]plan.MachineRef(nil), s.Machines...)
	return &cp
}

func copyRecord(r *machine.WorkRecord) *machine.WorkRecord {
	cp := *r
	if r.FormData != nil {
		cp.FormData = make(map[string]string, len(r.FormData))
		for k, v := range r.FormData {
			cp.FormData[k] = v
		}
	}
	return &cp
}

func copyDetail(r *detail.Record) *detail.Record {
	cp := *r
	if r.Fields != nil {
		cp.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			cp.Fields[k] = v
		}
	}
	return &cp
}

func paginate[T any](in []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

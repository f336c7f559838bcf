package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/archive"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
	"github.com/plantfloor/boxline/shift"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	bun.BaseModel `bun:"table:boxline_jobs"`

	ID          string    `bun:"id,pk"`
	JobNumber   string    `bun:"job_number,notnull"`
	Customer    string    `bun:"customer"`
	Priority    string    `bun:"priority,notnull,default:'normal'"`
	Material    string    `bun:"material"`
	GSM         string    `bun:"gsm"`
	PaperSize   string    `bun:"paper_size"`
	DieCode     string    `bun:"die_code"`
	Ply         int       `bun:"ply,notnull,default:0"`
	PrintColors string    `bun:"print_colors"`
	Archived    bool      `bun:"archived,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:          j.ID.String(),
		JobNumber:   j.JobNumber,
		Customer:    j.Customer,
		Priority:    string(j.Priority),
		Material:    j.Material,
		GSM:         j.GSM,
		PaperSize:   j.PaperSize,
		DieCode:     j.DieCode,
		Ply:         j.Ply,
		PrintColors: j.PrintColors,
		Archived:    j.Archived,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) (*job.Job, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse job id %q: %w", m.ID, err)
	}
	return &job.Job{
		Entity: boxline.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		JobNumber:   m.JobNumber,
		Customer:    m.Customer,
		Priority:    job.Priority(m.Priority),
		Material:    m.Material,
		GSM:         m.GSM,
		PaperSize:   m.PaperSize,
		DieCode:     m.DieCode,
		Ply:         m.Ply,
		PrintColors: m.PrintColors,
		Archived:    m.Archived,
	}, nil
}

// ── Step plan model ───────────────────────────────────────────────

type planModel struct {
	bun.BaseModel `bun:"table:boxline_plans"`

	ID        string    `bun:"id,pk"`
	JobID     string    `bun:"job_id,notnull"`
	PONumber  string    `bun:"po_number"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toPlanModel(p *plan.StepPlan) *planModel {
	return &planModel{
		ID:        p.ID.String(),
		JobID:     p.JobID.String(),
		PONumber:  p.PONumber,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.StepPlan, error) {
	parsedID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse plan id %q: %w", m.ID, err)
	}
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse plan job id %q: %w", m.JobID, err)
	}
	return &plan.StepPlan{
		Entity: boxline.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       parsedID,
		JobID:    jobID,
		PONumber: m.PONumber,
	}, nil
}

// ── Step instance model ───────────────────────────────────────────

type stepModel struct {
	bun.BaseModel `bun:"table:boxline_steps"`

	ID          string            `bun:"id,pk"`
	PlanID      string            `bun:"plan_id,notnull"`
	JobID       string            `bun:"job_id,notnull"`
	StepNo      int               `bun:"step_no,notnull"`
	Status      string            `bun:"status,notnull,default:'planned'"`
	Machines    []plan.MachineRef `bun:"machines,type:jsonb"`
	StartedAt   *time.Time        `bun:"started_at"`
	CompletedAt *time.Time        `bun:"completed_at"`
	CompletedBy string            `bun:"completed_by"`
	CreatedAt   time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
}

func toStepModel(s *plan.StepInstance) *stepModel {
	return &stepModel{
		ID:          s.ID.String(),
		PlanID:      s.PlanID.String(),
		JobID:       s.JobID.String(),
		StepNo:      int(s.StepNo),
		Status:      string(s.Status),
		Machines:    s.Machines,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		CompletedBy: s.CompletedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromStepModel(m *stepModel) (*plan.StepInstance, error) {
	parsedID, err := id.ParseStepID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse step id %q: %w", m.ID, err)
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse step plan id %q: %w", m.PlanID, err)
	}
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse step job id %q: %w", m.JobID, err)
	}
	return &plan.StepInstance{
		Entity: boxline.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		PlanID:      planID,
		JobID:       jobID,
		StepNo:      plan.StepNo(m.StepNo),
		Status:      plan.StepStatus(m.Status),
		Machines:    m.Machines,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		CompletedBy: m.CompletedBy,
	}, nil
}

// ── Machine work record model ─────────────────────────────────────

type workRecordModel struct {
	bun.BaseModel `bun:"table:boxline_work_records"`

	ID           string            `bun:"id,pk"`
	StepID       string            `bun:"step_id,notnull"`
	PlanID       string            `bun:"plan_id,notnull"`
	JobID        string            `bun:"job_id,notnull"`
	StepNo       int               `bun:"step_no,notnull"`
	MachineCode  string            `bun:"machine_code,notnull"`
	Status       string            `bun:"status,notnull,default:'available'"`
	PrevStatus   string            `bun:"prev_status"`
	FormData     map[string]string `bun:"form_data,type:jsonb"`
	OperatorID   string            `bun:"operator_id"`
	OperatorName string            `bun:"operator_name"`
	Remark       string            `bun:"remark"`
	StartedAt    *time.Time        `bun:"started_at"`
	SubmittedAt  *time.Time        `bun:"submitted_at"`
	CompletedAt  *time.Time        `bun:"completed_at"`
	CreatedAt    time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
}

func toWorkRecordModel(r *machine.WorkRecord) *workRecordModel {
	return &workRecordModel{
		ID:           r.ID.String(),
		StepID:       r.StepID.String(),
		PlanID:       r.PlanID.String(),
		JobID:        r.JobID.String(),
		StepNo:       int(r.StepNo),
		MachineCode:  r.MachineCode,
		Status:       string(r.Status),
		PrevStatus:   string(r.PrevStatus),
		FormData:     r.FormData,
		OperatorID:   r.OperatorID,
		OperatorName: r.OperatorName,
		Remark:       r.Remark,
		StartedAt:    r.StartedAt,
		SubmittedAt:  r.SubmittedAt,
		CompletedAt:  r.CompletedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromWorkRecordModel(m *workRecordModel) (*machine.WorkRecord, error) {
	parsedID, err := id.ParseWorkRecordID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse work record id %q: %w", m.ID, err)
	}
	stepID, err := id.ParseStepID(m.StepID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse work record step id %q: %w", m.StepID, err)
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse work record plan id %q: %w", m.PlanID, err)
	}
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse work record job id %q: %w", m.JobID, err)
	}
	return &machine.WorkRecord{
		Entity: boxline.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           parsedID,
		StepID:       stepID,
		PlanID:       planID,
		JobID:        jobID,
		StepNo:       plan.StepNo(m.StepNo),
		MachineCode:  m.MachineCode,
		Status:       machine.Status(m.Status),
		PrevStatus:   machine.Status(m.PrevStatus),
		FormData:     m.FormData,
		OperatorID:   m.OperatorID,
		OperatorName: m.OperatorName,
		Remark:       m.Remark,
		StartedAt:    m.StartedAt,
		SubmittedAt:  m.SubmittedAt,
		CompletedAt:  m.CompletedAt,
	}, nil
}

// ── Step detail model ─────────────────────────────────────────────

type detailModel struct {
	bun.BaseModel `bun:"table:boxline_details"`

	ID           string            `bun:"id,pk"`
	StepID       string            `bun:"step_id,notnull,unique"`
	PlanID       string            `bun:"plan_id,notnull"`
	JobID        string            `bun:"job_id,notnull"`
	StepNo       int               `bun:"step_no,notnull"`
	Status       string            `bun:"status,notnull,default:'active'"`
	PrevStatus   string            `bun:"prev_status"`
	Quantity     int               `bun:"quantity,notnull,default:0"`
	Wastage      int               `bun:"wastage,notnull,default:0"`
	Shift        string            `bun:"shift"`
	MachineCodes string            `bun:"machine_codes"`
	CompletedBy  string            `bun:"completed_by"`
	CompletedAt  *time.Time        `bun:"completed_at"`
	Fields       map[string]string `bun:"fields,type:jsonb"`
	CreatedAt    time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
}

func toDetailModel(r *detail.Record) *detailModel {
	return &detailModel{
		ID:           r.ID.String(),
		StepID:       r.StepID.String(),
		PlanID:       r.PlanID.String(),
		JobID:        r.JobID.String(),
		StepNo:       int(r.StepNo),
		Status:       string(r.Status),
		PrevStatus:   string(r.PrevStatus),
		Quantity:     r.Quantity,
		Wastage:      r.Wastage,
		Shift:        string(r.Shift),
		MachineCodes: r.MachineCodes,
		CompletedBy:  r.CompletedBy,
		CompletedAt:  r.CompletedAt,
		Fields:       r.Fields,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromDetailModel(m *detailModel) (*detail.Record, error) {
	parsedID, err := id.ParseDetailID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse detail id %q: %w", m.ID, err)
	}
	stepID, err := id.ParseStepID(m.StepID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse detail step id %q: %w", m.StepID, err)
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse detail plan id %q: %w", m.PlanID, err)
	}
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse detail job id %q: %w", m.JobID, err)
	}
	return &detail.Record{
		Entity: boxline.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           parsedID,
		StepID:       stepID,
		PlanID:       planID,
		JobID:        jobID,
		StepNo:       plan.StepNo(m.StepNo),
		Status:       detail.Status(m.Status),
		PrevStatus:   detail.Status(m.PrevStatus),
		Quantity:     m.Quantity,
		Wastage:      m.Wastage,
		Shift:        shift.Shift(m.Shift),
		MachineCodes: m.MachineCodes,
		CompletedBy:  m.CompletedBy,
		CompletedAt:  m.CompletedAt,
		Fields:       m.Fields,
	}, nil
}

// ── Archive model ─────────────────────────────────────────────────

type archiveModel struct {
	bun.BaseModel `bun:"table:boxline_archives"`

	ID         string                 `bun:"id,pk"`
	JobID      string                 `bun:"job_id,notnull"`
	JobNumber  string                 `bun:"job_number,notnull"`
	PlanID     string                 `bun:"plan_id,notnull,unique"`
	PONumber   string                 `bun:"po_number"`
	Steps      []archive.StepSnapshot `bun:"steps,type:jsonb"`
	ArchivedAt time.Time              `bun:"archived_at,notnull"`
	CreatedAt  time.Time              `bun:"created_at,notnull,default:current_timestamp"`
}

func toArchiveModel(a *archive.Archive) *archiveModel {
	return &archiveModel{
		ID:         a.ID.String(),
		JobID:      a.JobID.String(),
		JobNumber:  a.JobNumber,
		PlanID:     a.PlanID.String(),
		PONumber:   a.PONumber,
		Steps:      a.Steps,
		ArchivedAt: a.ArchivedAt,
		CreatedAt:  a.CreatedAt,
	}
}

func fromArchiveModel(m *archiveModel) (*archive.Archive, error) {
	parsedID, err := id.ParseArchiveID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse archive id %q: %w", m.ID, err)
	}
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse archive job id %q: %w", m.JobID, err)
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse archive plan id %q: %w", m.PlanID, err)
	}
	return &archive.Archive{
		ID:         parsedID,
		JobID:      jobID,
		JobNumber:  m.JobNumber,
		PlanID:     planID,
		PONumber:   m.PONumber,
		Steps:      m.Steps,
		ArchivedAt: m.ArchivedAt,
		CreatedAt:  m.CreatedAt,
	}, nil
}

// ── Reconcile entry model ─────────────────────────────────────────

type reconcileModel struct {
	bun.BaseModel `bun:"table:boxline_reconcile_entries"`

	ID         string     `bun:"id,pk"`
	JobID      string     `bun:"job_id"`
	PlanID     string     `bun:"plan_id"`
	EntityKind string     `bun:"entity_kind,notnull"`
	EntityID   string     `bun:"entity_id"`
	Op         string     `bun:"op,notnull"`
	Cause      string     `bun:"cause,notnull"`
	OccurredAt time.Time  `bun:"occurred_at,notnull"`
	ResolvedAt *time.Time `bun:"resolved_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

func toReconcileModel(e *reconcile.Entry) *reconcileModel {
	return &reconcileModel{
		ID:         e.ID.String(),
		JobID:      e.JobID.String(),
		PlanID:     e.PlanID.String(),
		EntityKind: string(e.EntityKind),
		EntityID:   e.EntityID.String(),
		Op:         e.Op,
		Cause:      e.Cause,
		OccurredAt: e.OccurredAt,
		ResolvedAt: e.ResolvedAt,
		CreatedAt:  e.CreatedAt,
	}
}

func fromReconcileModel(m *reconcileModel) (*reconcile.Entry, error) {
	parsedID, err := id.ParseReconcileID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: parse reconcile id %q: %w", m.ID, err)
	}
	e := &reconcile.Entry{
		ID:         parsedID,
		EntityKind: reconcile.EntityKind(m.EntityKind),
		Op:         m.Op,
		Cause:      m.Cause,
		OccurredAt: m.OccurredAt,
		ResolvedAt: m.ResolvedAt,
		CreatedAt:  m.CreatedAt,
	}
	// Scope and entity ids may be empty on ledger rows for list-level
	// failures; parse leniently.
	if m.JobID != "" {
		if v, perr := id.Parse(m.JobID); perr == nil {
			e.JobID = v
		}
	}
	if m.PlanID != "" {
		if v, perr := id.Parse(m.PlanID); perr == nil {
			e.PlanID = v
		}
	}
	if m.EntityID != "" {
		if v, perr := id.Parse(m.EntityID); perr == nil {
			e.EntityID = v
		}
	}
	return e, nil
}

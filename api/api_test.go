package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/api"
	"github.com/plantfloor/boxline/engine"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/store/memory"
)

type apiFixture struct {
	t      *testing.T
	srv    *httptest.Server
	store  *memory.Store
	job    *job.Job
	planID id.PlanID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	tr, err := boxline.New(
		boxline.WithStore(st),
		boxline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	eng, err := engine.Build(tr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	j := &job.Job{
		Entity:    boxline.NewEntity(),
		ID:        id.NewJobID(),
		JobNumber: "JOB-77",
		Priority:  job.PriorityNormal,
	}
	if err := st.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	p := &plan.StepPlan{Entity: boxline.NewEntity(), ID: id.NewPlanID(), JobID: j.ID}
	var steps []*plan.StepInstance
	for _, n := range plan.Steps() {
		steps = append(steps, &plan.StepInstance{
			Entity:   boxline.NewEntity(),
			ID:       id.NewStepID(),
			PlanID:   p.ID,
			JobID:    j.ID,
			StepNo:   n,
			Status:   plan.StepPlanned,
			Machines: []plan.MachineRef{{Code: "M1"}},
		})
	}
	if err := st.CreatePlan(ctx, p, steps); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	h := api.NewHandler(eng, api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &apiFixture{t: t, srv: srv, store: st, job: j, planID: p.ID}
}

func (f *apiFixture) do(method, path string, body any, roles string) *http.Response {
	f.t.Helper()

	var rd io.Reader = strings.NewReader("{}")
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		f.t.Fatalf("new request: %v", err)
	}
	req.Header.Set(api.HeaderUserID, "u-asha")
	req.Header.Set(api.HeaderUserName, "Asha")
	req.Header.Set(api.HeaderRoles, roles)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		f.t.Fatalf("%s %s: %v", method, path, err)
	}
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *apiFixture) machinePath(stepNo plan.StepNo, code, action string) string {
	return fmt.Sprintf("/jobs/%s/plans/%s/steps/%d/machines/%s/%s",
		f.job.JobNumber, f.planID, stepNo, code, action)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestMachineLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, f.machinePath(plan.StepPaperStore, "M1", "start"), nil, "operator")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}

	resp = f.do(http.MethodPost, f.machinePath(plan.StepPaperStore, "M1", "submit"),
		map[string]any{"form": map[string]string{"quantity": "500"}}, "operator")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: status %d", resp.StatusCode)
	}
	submitted := decode[engine.SubmitResult](t, resp)
	if submitted.Completed {
		t.Fatalf("completed on submit with no quantity gate: %s", submitted.Reason)
	}

	resp = f.do(http.MethodPost, f.machinePath(plan.StepPaperStore, "M1", "stop"), nil, "operator")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: status %d", resp.StatusCode)
	}
	stopped := decode[engine.SubmitResult](t, resp)
	if !stopped.Completed {
		t.Fatalf("not completed after final stop: %s", stopped.Reason)
	}

	resp = f.do(http.MethodGet,
		fmt.Sprintf("/jobs/%s/plans/%s/steps/%d", f.job.JobNumber, f.planID, plan.StepPaperStore),
		nil, "operator")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: status %d", resp.StatusCode)
	}
	st := decode[engine.StepStatus](t, resp)
	if st.Step.Status != plan.StepStopped {
		t.Fatalf("step status = %s, want %s", st.Step.Status, plan.StepStopped)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		roles  string
		want   int
	}{
		{
			name:   "unknown job is 404",
			method: http.MethodPost,
			path:   strings.Replace(f.machinePath(plan.StepPaperStore, "M1", "start"), "JOB-77", "NOPE", 1),
			roles:  "operator",
			want:   http.StatusNotFound,
		},
		{
			name:   "sequence violation is 409",
			method: http.MethodPost,
			path:   f.machinePath(plan.StepPrinting, "M1", "start"),
			roles:  "operator",
			want:   http.StatusConflict,
		},
		{
			name:   "operator major hold is 403",
			method: http.MethodPost,
			path:   "/jobs/JOB-77/hold",
			roles:  "operator",
			want:   http.StatusForbidden,
		},
		{
			name:   "bad step number is 422",
			method: http.MethodPost,
			path:   fmt.Sprintf("/jobs/JOB-77/plans/%s/steps/99/machines/M1/start", f.planID),
			roles:  "operator",
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "bad plan id is 422",
			method: http.MethodPost,
			path:   fmt.Sprintf("/jobs/JOB-77/plans/not-an-id/steps/%d/machines/M1/start", plan.StepPaperStore),
			roles:  "operator",
			want:   http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(tt.method, tt.path, tt.body, tt.roles)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			body := decode[map[string]string](t, resp)
			if body["error"] == "" {
				t.Fatal("error body missing")
			}
		})
	}
}

func TestMajorHoldOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	resp := f.do(http.MethodPost, f.machinePath(plan.StepPaperStore, "M1", "start"), nil, "operator")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}

	resp = f.do(http.MethodPost, "/jobs/JOB-77/hold?plan="+f.planID.String(), nil, "supervisor")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hold: status %d", resp.StatusCode)
	}

	// Floor commands bounce while frozen.
	resp = f.do(http.MethodPost, f.machinePath(plan.StepPaperStore, "M1", "submit"),
		map[string]any{"form": map[string]string{"quantity": "10"}}, "operator")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("submit while frozen: status %d, want 409", resp.StatusCode)
	}

	resp = f.do(http.MethodPost, "/jobs/JOB-77/resume?plan="+f.planID.String(), nil, "supervisor")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume: status %d", resp.StatusCode)
	}

	resp = f.do(http.MethodPost, f.machinePath(plan.StepPaperStore, "M1", "submit"),
		map[string]any{"form": map[string]string{"quantity": "10"}}, "operator")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit after resume: status %d", resp.StatusCode)
	}
}

// Package api exposes the engine's commands over a thin HTTP surface.
// Identity is supplied by the host's auth layer through request headers;
// this package performs no authentication of its own.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/auth"
	"github.com/plantfloor/boxline/engine"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/plan"
)

// Identity headers set by the host's auth layer.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
	HeaderRoles    = "X-User-Roles"
)

// Handler serves the engine command routes.
type Handler struct {
	eng    *engine.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler builds the HTTP handler for an engine.
func NewHandler(eng *engine.Engine, opts ...Option) *Handler {
	h := &Handler{
		eng:    eng,
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	const machinePrefix = "/jobs/{jobNo}/plans/{planID}/steps/{stepNo}/machines/{code}"
	h.mux.HandleFunc("POST "+machinePrefix+"/start", h.startMachine)
	h.mux.HandleFunc("POST "+machinePrefix+"/submit", h.submitWork)
	h.mux.HandleFunc("POST "+machinePrefix+"/stop", h.stopMachine)
	h.mux.HandleFunc("POST "+machinePrefix+"/hold", h.holdMachine)
	h.mux.HandleFunc("POST "+machinePrefix+"/resume", h.resumeMachine)
	h.mux.HandleFunc("GET /jobs/{jobNo}/plans/{planID}/steps/{stepNo}", h.stepStatus)
	h.mux.HandleFunc("POST /jobs/{jobNo}/hold", h.majorHold)
	h.mux.HandleFunc("POST /jobs/{jobNo}/resume", h.majorResume)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// ──────────────────────────────────────────────────
// Machine commands
// ──────────────────────────────────────────────────

func (h *Handler) startMachine(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.machineCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.eng.StartMachine(r.Context(), cmd); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handler) submitWork(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.machineCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body struct {
		Form map[string]string `json:"form"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.Join(boxline.ErrValidationFailed, err))
		return
	}

	res, err := h.eng.SubmitWork(r.Context(), engine.SubmitCommand{
		MachineCommand: cmd,
		Form:           body.Form,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) stopMachine(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.machineCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.eng.StopMachine(r.Context(), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) holdMachine(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.machineCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body struct {
		Remark string `json:"remark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.Join(boxline.ErrValidationFailed, err))
		return
	}

	if err := h.eng.HoldMachine(r.Context(), engine.HoldCommand{
		MachineCommand: cmd,
		Remark:         body.Remark,
	}); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "held"})
}

func (h *Handler) resumeMachine(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.machineCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.eng.ResumeMachine(r.Context(), cmd); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (h *Handler) stepStatus(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.stepCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	st, err := h.eng.Status(r.Context(), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// ──────────────────────────────────────────────────
// Job-scoped commands
// ──────────────────────────────────────────────────

func (h *Handler) majorHold(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.scopeCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.eng.MajorHold(r.Context(), cmd); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "held"})
}

func (h *Handler) majorResume(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.scopeCommand(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.eng.MajorResume(r.Context(), cmd); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// ──────────────────────────────────────────────────
// Request parsing
// ──────────────────────────────────────────────────

func identity(r *http.Request) auth.Identity {
	ident := auth.Identity{
		UserID: r.Header.Get(HeaderUserID),
		Name:   r.Header.Get(HeaderUserName),
	}
	if raw := r.Header.Get(HeaderRoles); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if role := strings.TrimSpace(part); role != "" {
				ident.Roles = append(ident.Roles, auth.Role(role))
			}
		}
	}
	return ident
}

func (h *Handler) resolveJob(r *http.Request) (id.JobID, error) {
	jobNo := r.PathValue("jobNo")
	if jobNo == "" {
		return id.Nil, boxline.ErrValidationFailed
	}
	j, err := h.eng.Store().GetJobByNumber(r.Context(), jobNo)
	if err != nil {
		return id.Nil, err
	}
	return j.ID, nil
}

func (h *Handler) stepCommand(r *http.Request) (engine.StepCommand, error) {
	jobID, err := h.resolveJob(r)
	if err != nil {
		return engine.StepCommand{}, err
	}
	planID, err := id.ParsePlanID(r.PathValue("planID"))
	if err != nil {
		return engine.StepCommand{}, errors.Join(boxline.ErrValidationFailed, err)
	}
	stepNo, err := strconv.Atoi(r.PathValue("stepNo"))
	if err != nil {
		return engine.StepCommand{}, errors.Join(boxline.ErrValidationFailed, err)
	}
	return engine.StepCommand{
		JobID:  jobID,
		PlanID: planID,
		StepNo: plan.StepNo(stepNo),
		Actor:  identity(r),
	}, nil
}

func (h *Handler) machineCommand(r *http.Request) (engine.MachineCommand, error) {
	sc, err := h.stepCommand(r)
	if err != nil {
		return engine.MachineCommand{}, err
	}
	return engine.MachineCommand{
		JobID:       sc.JobID,
		PlanID:      sc.PlanID,
		StepNo:      sc.StepNo,
		MachineCode: r.PathValue("code"),
		Actor:       sc.Actor,
	}, nil
}

func (h *Handler) scopeCommand(r *http.Request) (engine.ScopeCommand, error) {
	jobID, err := h.resolveJob(r)
	if err != nil {
		return engine.ScopeCommand{}, err
	}
	cmd := engine.ScopeCommand{JobID: jobID, Actor: identity(r)}
	if raw := r.URL.Query().Get("plan"); raw != "" {
		planID, perr := id.ParsePlanID(raw)
		if perr != nil {
			return engine.ScopeCommand{}, errors.Join(boxline.ErrValidationFailed, perr)
		}
		cmd.PlanID = planID
	}
	return cmd, nil
}

// ──────────────────────────────────────────────────
// Responses
// ──────────────────────────────────────────────────

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("api: encode response", "error", err)
	}
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, boxline.ErrJobNotFound),
		errors.Is(err, boxline.ErrPlanNotFound),
		errors.Is(err, boxline.ErrStepNotFound),
		errors.Is(err, boxline.ErrWorkRecordNotFound),
		errors.Is(err, boxline.ErrDetailNotFound),
		errors.Is(err, boxline.ErrArchiveNotFound):
		status = http.StatusNotFound
	case errors.Is(err, boxline.ErrInvalidTransition),
		errors.Is(err, boxline.ErrSequenceViolation),
		errors.Is(err, boxline.ErrJobAlreadyArchived),
		errors.Is(err, boxline.ErrJobAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, boxline.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, boxline.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("api: internal error", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// -----------------------------------------------------------------------
// Job handler - submission, status, cancellation and queue introspection
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// JobHandler handles job-related API requests
type JobHandler struct {
	jobs   interfaces.JobService
	logger arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs interfaces.JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// submitRequest is the POST body for job submission. Input is decoded against
// the kind's payload schema.
type submitRequest struct {
	Kind  string          `json:"kind"`
	Input json.RawMessage `json:"input"`
}

// SubmitJobHandler accepts a new job
// POST /api/jobs
func (h *JobHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := models.JobKind(req.Kind)
	if !models.ValidKind(kind) {
		WriteError(w, http.StatusBadRequest, "unknown job kind: "+req.Kind)
		return
	}
	if len(req.Input) == 0 {
		WriteError(w, http.StatusBadRequest, "input is required")
		return
	}

	input, err := models.DecodeInput(kind, req.Input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := h.jobs.Submit(r.Context(), kind, input)
	if err != nil {
		h.logger.Warn().Err(err).Str("kind", req.Kind).Msg("Job submission rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(models.JobStatusPending),
	})
}

// GetJobHandler returns the ledger record for a job
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	record, err := h.jobs.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to read job status")
		WriteError(w, http.StatusInternalServerError, "failed to read job status")
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// CancelJobHandler cancels a job
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID = strings.TrimSuffix(jobID, "/cancel")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	if err := h.jobs.Cancel(r.Context(), jobID); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found")
			return
		}
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteSuccess(w, "job cancelled")
}

// ListProjectJobsHandler returns every job submitted for a project
// GET /api/projects/{id}/jobs
func (h *JobHandler) ListProjectJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projectID := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	projectID = strings.TrimSuffix(projectID, "/jobs")
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "project id is required")
		return
	}

	records, err := h.jobs.ListByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list project jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list project jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"jobs":       records,
		"count":      len(records),
	})
}

// QueueCountsHandler returns the per-kind queue snapshots
// GET /api/queues
func (h *JobHandler) QueueCountsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	counts, err := h.jobs.QueueCounts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read queue counts")
		WriteError(w, http.StatusInternalServerError, "failed to read queue counts")
		return
	}

	WriteJSON(w, http.StatusOK, counts)
}

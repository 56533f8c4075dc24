package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/pkg/logger"
	"github.com/ignite/mailcheck/internal/service/jobs"
)

// jobListItem is the slim job shape for listings; poll GET
// /jobs/{job_id} for result, error, and the log stream.
type jobListItem struct {
	JobID     string           `json:"job_id"`
	Kind      domain.JobKind   `json:"kind"`
	Status    domain.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	LeadID    *int64           `json:"lead_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ListJobs lists the workspace's jobs, newest first.
//
//	GET /api/v1/jobs?active_only=true
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	activeOnly := r.URL.Query().Get("active_only") == "true"

	rows, err := h.deps.Jobs.List(r.Context(), ws.ID, activeOnly)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to list jobs", nil)
		return
	}

	items := make([]jobListItem, 0, len(rows))
	for _, j := range rows {
		items = append(items, jobListItem{
			JobID:     j.JobID,
			Kind:      j.Kind,
			Status:    j.Status,
			Progress:  j.Progress,
			LeadID:    j.LeadID,
			CreatedAt: j.CreatedAt,
		})
	}
	respondOK(w, map[string]any{"jobs": items})
}

// GetJob returns the poll view of one job: status, progress, result,
// error, and the log stream filtered by the viewer's privilege.
//
//	GET /api/v1/jobs/{jobID}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	jobID := chi.URLParam(r, "jobID")

	detail, err := h.deps.Jobs.Detail(r.Context(), ws.ID, jobID, privilegedFrom(r.Context()))
	if err != nil {
		respondJobErr(w, err, jobID)
		return
	}
	respondOK(w, detail)
}

// CancelJob stops a queued or running job. Admin only: cancellation
// yanks work out from under another caller's poll loop.
//
//	POST /api/v1/jobs/{jobID}/cancel
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	if !privilegedFrom(r.Context()) {
		respondErr(w, http.StatusForbidden, codeForbidden, "Admin key required", nil)
		return
	}
	ws := workspaceFrom(r.Context())
	jobID := chi.URLParam(r, "jobID")

	job, err := h.deps.Jobs.Cancel(r.Context(), ws.ID, jobID)
	if err != nil {
		var stateErr *jobs.InvalidStateError
		if errors.As(err, &stateErr) {
			respondErr(w, http.StatusConflict, codeInvalidState,
				fmt.Sprintf("Cannot cancel job in state %s", stateErr.Status),
				map[string]any{"job_id": jobID})
			return
		}
		respondJobErr(w, err, jobID)
		return
	}
	respondOK(w, map[string]any{"job_id": job.JobID, "status": job.Status})
}

// EnqueueExport queues a CSV snapshot of the workspace's leads and
// returns the job_id to poll; the finished job's result carries the CSV.
//
//	POST /api/v1/exports
func (h *Handlers) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	job, err := h.deps.Jobs.Enqueue(r.Context(), ws.ID, domain.JobKindExportCSV, nil)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to enqueue job", nil)
		return
	}
	if _, err := h.deps.Usage.IncrementExport(r.Context(), ws.ID); err != nil {
		logger.Error("increment export usage", "workspace_id", ws.ID, "error", err)
	}
	respondOK(w, map[string]any{"job_id": job.JobID})
}

// GetUsage returns the workspace's consumption for the current period
// against its plan limits.
//
//	GET /api/v1/usage
func (h *Handlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	summary, err := h.deps.Usage.Summarize(r.Context(), ws)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to load usage", nil)
		return
	}
	respondOK(w, summary)
}

func respondJobErr(w http.ResponseWriter, err error, jobID string) {
	if errors.Is(err, jobs.ErrNotFound) {
		respondErr(w, http.StatusNotFound, codeNotFound, "Job not found", map[string]any{"job_id": jobID})
		return
	}
	respondErr(w, http.StatusInternalServerError, codeInternal, "Job operation failed", nil)
}

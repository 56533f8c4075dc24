package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/leads"
	"github.com/ignite/mailcheck/internal/service/usage"
)

// CreateLead upserts a lead. A non-empty linkedin_url identifies the
// lead; otherwise the (domain, first, last, company) tuple does, case
// insensitively.
//
//	POST /api/v1/leads
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	var in leads.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}

	lead, err := h.deps.Leads.Create(r.Context(), ws.ID, in)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to create lead", nil)
			return
		}
		// The only non-storage failure is missing identity fields.
		respondErr(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	respondOK(w, lead)
}

// GetLead fetches one lead.
//
//	GET /api/v1/leads/{id}
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	lead, err := h.deps.Leads.Get(r.Context(), ws.ID, id)
	if err != nil {
		respondLeadErr(w, err, id)
		return
	}
	respondOK(w, lead)
}

// ListLeads returns a filtered page of the workspace's leads.
//
//	GET /api/v1/leads?page=&page_size=&domain=&verification_status=&sales_status=&search=
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	q := r.URL.Query()

	f := leads.ListFilter{
		Page:               intParam(q.Get("page"), 1),
		PageSize:           intParam(q.Get("page_size"), 20),
		Domain:             q.Get("domain"),
		VerificationStatus: q.Get("verification_status"),
		SalesStatus:        q.Get("sales_status"),
		Search:             q.Get("search"),
	}

	rows, total, err := h.deps.Leads.List(r.Context(), ws.ID, f)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to list leads", nil)
		return
	}
	if rows == nil {
		rows = []domain.Lead{}
	}
	respondOK(w, map[string]any{
		"items":     rows,
		"page":      f.Page,
		"page_size": f.PageSize,
		"total":     total,
	})
}

// UpdateLead applies a partial update; absent fields stay untouched.
//
//	PATCH /api/v1/leads/{id}
func (h *Handlers) UpdateLead(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	var in leads.UpdateInput
	if !decodeBody(w, r, &in) {
		return
	}

	lead, err := h.deps.Leads.Update(r.Context(), ws.ID, id, in)
	if err != nil {
		respondLeadErr(w, err, id)
		return
	}
	respondOK(w, lead)
}

// EnqueueVerify queues a verification job for a lead and returns the
// job_id to poll.
//
//	POST /api/v1/leads/{id}/verify
func (h *Handlers) EnqueueVerify(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	if err := h.deps.Usage.CheckVerificationQuota(r.Context(), ws); err != nil {
		var quotaErr *usage.QuotaExceededError
		if errors.As(err, &quotaErr) {
			respondErr(w, http.StatusTooManyRequests, codeQuotaExceeded, quotaErr.Error(),
				map[string]any{"code": "quota_exceeded"})
			return
		}
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to check quota", nil)
		return
	}

	if _, err := h.deps.Leads.EnsureVerifiable(r.Context(), ws.ID, id); err != nil {
		if errors.Is(err, leads.ErrOptedOut) {
			respondErr(w, http.StatusConflict, codeOptOut, "Lead has opted out", map[string]any{"id": id})
			return
		}
		respondLeadErr(w, err, id)
		return
	}

	job, err := h.deps.Jobs.Enqueue(r.Context(), ws.ID, domain.JobKindVerify, &id)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to enqueue job", nil)
		return
	}
	respondOK(w, map[string]any{"job_id": job.JobID})
}

func leadIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondErr(w, http.StatusBadRequest, codeValidation, "Invalid lead id", nil)
		return 0, false
	}
	return id, true
}

func respondLeadErr(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, leads.ErrNotFound) {
		respondErr(w, http.StatusNotFound, codeNotFound, "Lead not found", map[string]any{"id": id})
		return
	}
	respondErr(w, http.StatusInternalServerError, codeInternal, "Lead operation failed", nil)
}

func intParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

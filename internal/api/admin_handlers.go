package api

import "net/http"

// SMTPStatus reports the shared SMTP block sentinel: whether outbound
// probing is paused and which hosts tripped the timeout window.
//
//	GET /api/v1/admin/smtp-status
func (h *Handlers) SMTPStatus(w http.ResponseWriter, r *http.Request) {
	if !privilegedFrom(r.Context()) {
		respondErr(w, http.StatusForbidden, codeForbidden, "Admin key required", nil)
		return
	}
	if h.deps.Sentinel == nil {
		respondErr(w, http.StatusServiceUnavailable, codeUnavailable, "SMTP sentinel not configured", nil)
		return
	}
	respondOK(w, h.deps.Sentinel.Info(r.Context()))
}

// ClearSMTPStatus lifts the block and empties the timeout window so
// probing resumes immediately.
//
//	DELETE /api/v1/admin/smtp-status
func (h *Handlers) ClearSMTPStatus(w http.ResponseWriter, r *http.Request) {
	if !privilegedFrom(r.Context()) {
		respondErr(w, http.StatusForbidden, codeForbidden, "Admin key required", nil)
		return
	}
	if h.deps.Sentinel == nil {
		respondErr(w, http.StatusServiceUnavailable, codeUnavailable, "SMTP sentinel not configured", nil)
		return
	}
	if err := h.deps.Sentinel.Clear(r.Context()); err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to clear SMTP status", nil)
		return
	}
	respondOK(w, map[string]any{"cleared": true})
}

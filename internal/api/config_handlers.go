package api

import (
	"errors"
	"net/http"

	"github.com/ignite/mailcheck/internal/service/workspacecfg"
)

// GetConfig returns the workspace's effective verification config:
// stored overrides merged over the global defaults.
//
//	GET /api/v1/config
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	merged, err := h.deps.Config.Merged(r.Context(), ws.ID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to load config", nil)
		return
	}
	respondOK(w, merged)
}

// UpdateConfig applies a partial config update and returns the new
// effective config. Omitted fields keep their current value; explicit
// empty strings clear the override back to the global default.
//
//	PUT /api/v1/config
func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	var upd workspacecfg.Update
	if !decodeBody(w, r, &upd) {
		return
	}

	merged, err := h.deps.Config.Update(r.Context(), ws.ID, upd)
	if err != nil {
		var vErr *workspacecfg.ValidationError
		if errors.As(err, &vErr) {
			respondErr(w, http.StatusBadRequest, codeValidation, vErr.Message, vErr.Details)
			return
		}
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to update config", nil)
		return
	}
	respondOK(w, merged)
}

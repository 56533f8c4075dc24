package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/mailcheck/internal/pkg/logger"
	"github.com/ignite/mailcheck/internal/service/usage"
)

type verifyStatelessRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Domain    string `json:"domain"`
}

type verifyCandidate struct {
	Email           string `json:"email"`
	Status          string `json:"status"`
	ConfidenceScore int    `json:"confidence_score"`
	WebMentioned    bool   `json:"web_mentioned"`
}

// VerifyStateless runs the discovery pipeline without touching leads:
// name + domain in, candidates + best out. Counts against the
// verification quota like a lead verification does.
//
//	POST /api/v1/verify
func (h *Handlers) VerifyStateless(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	var body verifyStatelessRequest
	if !decodeBody(w, r, &body) {
		return
	}
	body.Domain = strings.TrimSpace(body.Domain)
	if body.Domain == "" {
		respondErr(w, http.StatusBadRequest, codeValidation, "domain is required", nil)
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

	candidates, bestEmail, best, _ := h.verifyFn(r.Context(), body.FirstName, body.LastName, body.Domain)

	if _, err := h.deps.Usage.IncrementVerification(r.Context(), ws.ID); err != nil {
		logger.Error("increment verification usage", "workspace_id", ws.ID, "error", err)
	}

	if candidates == nil {
		candidates = []string{}
	}
	data := map[string]any{
		"candidates":  candidates,
		"best":        nil,
		"best_result": nil,
	}
	if bestEmail != "" {
		data["best"] = bestEmail
	}
	if best != nil {
		data["best_result"] = verifyCandidate{
			Email:           best.Email,
			Status:          string(best.Status),
			ConfidenceScore: best.ConfidenceScore,
			WebMentioned:    best.WebMentioned,
		}
	}
	respondOK(w, data)
}

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
	"github.com/ignite/mailcheck/internal/repository/postgres"
	"github.com/ignite/mailcheck/internal/service/jobs"
	"github.com/ignite/mailcheck/internal/service/leads"
	"github.com/ignite/mailcheck/internal/service/usage"
	"github.com/ignite/mailcheck/internal/service/webhook"
	"github.com/ignite/mailcheck/internal/service/workspacecfg"
	"github.com/ignite/mailcheck/internal/verify"
)

// Error codes carried in the response envelope. Clients switch on these,
// not on HTTP status or message text.
const (
	codeUnauthorized  = "UNAUTHORIZED"
	codeForbidden     = "FORBIDDEN"
	codeNotFound      = "NOT_FOUND"
	codeOptOut        = "OPT_OUT"
	codeInvalidState  = "INVALID_STATE"
	codeValidation    = "VALIDATION_ERROR"
	codeQuotaExceeded = "QUOTA_EXCEEDED"
	codeInternal      = "INTERNAL"
	codeUnavailable   = "UNAVAILABLE"
)

// Deps are the collaborators the HTTP layer fronts.
type Deps struct {
	Workspaces *postgres.WorkspaceRepo
	Leads      *leads.Service
	Jobs       *jobs.Service
	Config     *workspacecfg.Service
	Usage      *usage.Service
	Webhooks   *webhook.Service
	Sentinel   *verify.Sentinel // optional; nil disables the admin SMTP endpoints
	AdminKey   string           // X-Admin-Key value granting privileged access; empty disables
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	deps Deps

	// verifyFn runs the stateless verification pipeline; tests swap it out.
	verifyFn statelessVerifyFunc
}

type statelessVerifyFunc func(ctx context.Context, firstName, lastName, domainName string) ([]string, string, *verify.Result, map[string]domain.ProbeResult)

// NewHandlers creates a Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	h := &Handlers{deps: deps}
	h.verifyFn = func(ctx context.Context, firstName, lastName, domainName string) ([]string, string, *verify.Result, map[string]domain.ProbeResult) {
		// Stateless verification runs with the built-in defaults rather
		// than the workspace's stored config: no custom timeouts, all
		// patterns, no web search.
		var sentinel verify.BlockSentinel
		if deps.Sentinel != nil {
			sentinel = deps.Sentinel
		}
		v := verify.New(verify.Config{Sentinel: sentinel})
		return v.VerifyAndPickBest(ctx, firstName, lastName, domainName, verify.PickOptions{}, joblog.NopSink)
	}
	return h
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondErr(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// decodeBody parses the request body into dst, responding with a
// validation error itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondErr(w, http.StatusBadRequest, codeValidation, "Invalid JSON body", nil)
		return false
	}
	return true
}

package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/repository/postgres"
)

type ctxKey int

const (
	workspaceCtxKey ctxKey = iota
	privilegedCtxKey
)

// withWorkspace resolves the calling workspace from the X-API-Key header
// and rejects requests that don't carry a valid key. It also marks the
// request privileged when X-Admin-Key matches the configured admin key;
// privilege gates diagnostic log visibility and the admin endpoints.
func (h *Handlers) withWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			respondErr(w, http.StatusUnauthorized, codeUnauthorized, "Missing API key", nil)
			return
		}

		ws, err := h.deps.Workspaces.GetByAPIKey(r.Context(), apiKey)
		if err != nil {
			if errors.Is(err, postgres.ErrWorkspaceNotFound) {
				respondErr(w, http.StatusUnauthorized, codeUnauthorized, "Invalid API key", nil)
				return
			}
			respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to resolve workspace", nil)
			return
		}

		ctx := context.WithValue(r.Context(), workspaceCtxKey, ws)
		if h.isAdmin(r) {
			ctx = context.WithValue(ctx, privilegedCtxKey, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) isAdmin(r *http.Request) bool {
	if h.deps.AdminKey == "" {
		return false
	}
	given := r.Header.Get("X-Admin-Key")
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.deps.AdminKey)) == 1
}

// workspaceFrom returns the authenticated workspace. Handlers behind
// withWorkspace can rely on it being present.
func workspaceFrom(ctx context.Context) *domain.Workspace {
	ws, _ := ctx.Value(workspaceCtxKey).(*domain.Workspace)
	return ws
}

func privilegedFrom(ctx context.Context) bool {
	p, _ := ctx.Value(privilegedCtxKey).(bool)
	return p
}

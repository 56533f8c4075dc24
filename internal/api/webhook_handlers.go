package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/webhook"
)

type createWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// webhookItem is the API shape of a subscription. Events is a list here
// even though storage keeps it comma-separated.
type webhookItem struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	Secret    string    `json:"secret,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toWebhookItem(hook *domain.Webhook, includeSecret bool) webhookItem {
	events := make([]string, 0, 2)
	for _, e := range strings.Split(hook.Events, ",") {
		if e = strings.TrimSpace(e); e != "" {
			events = append(events, e)
		}
	}
	item := webhookItem{
		ID:        hook.ID,
		URL:       hook.URL,
		Events:    events,
		IsActive:  hook.IsActive,
		CreatedAt: hook.CreatedAt,
	}
	if includeSecret {
		item.Secret = hook.Secret
	}
	return item
}

// CreateWebhook registers a delivery endpoint. The signing secret is
// returned here and never again; listings omit it.
//
//	POST /api/v1/webhooks
func (h *Handlers) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	var req createWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hook, err := h.deps.Webhooks.Create(r.Context(), ws.ID, req.URL, req.Events)
	if err != nil {
		respondErr(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	respondOK(w, toWebhookItem(hook, true))
}

// ListWebhooks lists the workspace's subscriptions without secrets.
//
//	GET /api/v1/webhooks
func (h *Handlers) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	hooks, err := h.deps.Webhooks.List(r.Context(), ws.ID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to list webhooks", nil)
		return
	}

	items := make([]webhookItem, 0, len(hooks))
	for i := range hooks {
		items = append(items, toWebhookItem(&hooks[i], false))
	}
	respondOK(w, map[string]any{"items": items})
}

// DeleteWebhook removes a subscription; pending deliveries for it are
// dropped by the dispatcher when the row disappears.
//
//	DELETE /api/v1/webhooks/{id}
func (h *Handlers) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondErr(w, http.StatusBadRequest, codeValidation, "Invalid webhook id", nil)
		return
	}

	if err := h.deps.Webhooks.Delete(r.Context(), ws.ID, id); err != nil {
		if errors.Is(err, webhook.ErrNotFound) {
			respondErr(w, http.StatusNotFound, codeNotFound, "Webhook not found", map[string]any{"id": id})
			return
		}
		respondErr(w, http.StatusInternalServerError, codeInternal, "Failed to delete webhook", nil)
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

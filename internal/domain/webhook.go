package domain

import (
	"strings"
	"time"
)

// Webhook event names dispatched by the job executor.
const (
	EventVerificationCompleted = "verification.completed"
	EventExportCompleted       = "export.completed"
)

// Webhook is a per-workspace subscription. Events is stored comma-separated
// ("verification.completed,export.completed").
type Webhook struct {
	ID          int64     `json:"id" db:"id"`
	WorkspaceID int64     `json:"workspace_id" db:"workspace_id"`
	URL         string    `json:"url" db:"url"`
	Secret      string    `json:"-" db:"secret"`
	Events      string    `json:"events" db:"events"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SubscribesTo reports whether the hook's event list contains event.
func (w Webhook) SubscribesTo(event string) bool {
	for _, e := range strings.Split(w.Events, ",") {
		if strings.TrimSpace(e) == event {
			return true
		}
	}
	return false
}

// WebhookDelivery records one delivery attempt to a subscription endpoint.
type WebhookDelivery struct {
	ID           int64     `json:"id" db:"id"`
	WebhookID    int64     `json:"webhook_id" db:"webhook_id"`
	Event        string    `json:"event" db:"event"`
	Payload      string    `json:"payload" db:"payload"`
	StatusCode   *int      `json:"status_code,omitempty" db:"status_code"`
	ResponseBody string    `json:"response_body,omitempty" db:"response_body"`
	Success      bool      `json:"success" db:"success"`
	RetryCount   int       `json:"retry_count" db:"retry_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

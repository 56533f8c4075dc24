package domain

import "time"

// Workspace is the tenancy boundary. APIKey is the credential presented by
// integrations; it identifies the workspace, never a user.
type Workspace struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Plan      string    `json:"plan" db:"plan"`
	APIKey    string    `json:"-" db:"api_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WorkspaceConfigEntry is one key-value override scoped to a workspace.
// Values are stored as strings; the config resolver parses them.
type WorkspaceConfigEntry struct {
	ID          int64     `json:"id" db:"id"`
	WorkspaceID int64     `json:"workspace_id" db:"workspace_id"`
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// UsageCounter accumulates per-workspace activity within a billing period
// (period format "YYYY-MM", UTC).
type UsageCounter struct {
	ID                 int64     `json:"id" db:"id"`
	WorkspaceID        int64     `json:"workspace_id" db:"workspace_id"`
	Period             string    `json:"period" db:"period"`
	VerificationsCount int       `json:"verifications_count" db:"verifications_count"`
	ExportsCount       int       `json:"exports_count" db:"exports_count"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

package domain

import (
	"encoding/json"
	"time"
)

// JobKind distinguishes the async task a Job row represents.
type JobKind string

const (
	JobKindVerify    JobKind = "verify"
	JobKindExportCSV JobKind = "export_csv"
)

// JobStatus is the lifecycle state of an async job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// Job is one asynchronous verification or export. JobID is the opaque
// identifier handed to clients; ID is the internal row key.
type Job struct {
	ID          int64           `json:"-" db:"id"`
	JobID       string          `json:"job_id" db:"job_id"`
	WorkspaceID int64           `json:"workspace_id" db:"workspace_id"`
	LeadID      *int64          `json:"lead_id,omitempty" db:"lead_id"`
	Kind        JobKind         `json:"kind" db:"kind"`
	Status      JobStatus       `json:"status" db:"status"`
	Progress    int             `json:"progress" db:"progress"`
	Result      json.RawMessage `json:"result,omitempty" db:"result"`
	Error       string          `json:"error,omitempty" db:"error"`
	LogLines    []string        `json:"log_lines,omitempty" db:"log_lines"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// JobLogLine is one entry of a job's append-only log stream. Seq is dense
// and contiguous from 0 within a job.
type JobLogLine struct {
	ID         int64     `json:"-" db:"id"`
	JobID      int64     `json:"-" db:"job_id"`
	Seq        int       `json:"seq" db:"seq"`
	Message    string    `json:"message" db:"message"`
	Level      string    `json:"level" db:"level"`
	Visibility string    `json:"visibility" db:"visibility"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

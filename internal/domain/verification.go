package domain

import "time"

// ProbeResult is the per-candidate outcome recorded in a VerificationLog.
type ProbeResult struct {
	Accepted        bool               `json:"accepted"`
	Detail          string             `json:"detail"`
	Status          VerificationStatus `json:"status"`
	ConfidenceScore int                `json:"confidence_score"`
}

// VerificationLog is the immutable audit record of one completed verify job.
type VerificationLog struct {
	ID             int64                  `json:"id" db:"id"`
	LeadID         int64                  `json:"lead_id" db:"lead_id"`
	JobID          *int64                 `json:"job_id,omitempty" db:"job_id"`
	MXHosts        []string               `json:"mx_hosts" db:"mx_hosts"`
	ProbeResults   map[string]ProbeResult `json:"probe_results" db:"probe_results"`
	Errors         string                 `json:"errors,omitempty" db:"errors"`
	BestEmail      string                 `json:"best_email" db:"best_email"`
	BestStatus     VerificationStatus     `json:"best_status" db:"best_status"`
	BestConfidence int                    `json:"best_confidence" db:"best_confidence"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

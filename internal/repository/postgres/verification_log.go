package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/mailcheck/internal/domain"
)

// VerificationLogRepo persists the immutable audit record written once
// per completed verify job.
type VerificationLogRepo struct{ db *sql.DB }

// NewVerificationLogRepo creates a Postgres-backed verification log repository.
func NewVerificationLogRepo(db *sql.DB) *VerificationLogRepo {
	return &VerificationLogRepo{db: db}
}

func (r *VerificationLogRepo) Create(ctx context.Context, log *domain.VerificationLog) error {
	probes, err := json.Marshal(log.ProbeResults)
	if err != nil {
		return fmt.Errorf("marshal probe results: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO verification_logs (lead_id, job_id, mx_hosts, probe_results, errors, best_email, best_status, best_confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`, log.LeadID, log.JobID, pq.Array(log.MXHosts), probes, log.Errors,
		log.BestEmail, log.BestStatus, log.BestConfidence,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create verification log: %w", err)
	}
	return nil
}

// LastByLead returns the most recent verification log for a lead, or
// nil when the lead has never completed a verify.
func (r *VerificationLogRepo) LastByLead(ctx context.Context, leadID int64) (*domain.VerificationLog, error) {
	log := &domain.VerificationLog{}
	var (
		jobID  sql.NullInt64
		probes string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, lead_id, job_id, mx_hosts, COALESCE(probe_results::text, '{}'),
		       COALESCE(errors, ''), best_email, best_status, best_confidence, created_at
		FROM verification_logs
		WHERE lead_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, leadID).Scan(
		&log.ID, &log.LeadID, &jobID, pq.Array(&log.MXHosts), &probes,
		&log.Errors, &log.BestEmail, &log.BestStatus, &log.BestConfidence, &log.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification log: %w", err)
	}
	if jobID.Valid {
		log.JobID = &jobID.Int64
	}
	if err := json.Unmarshal([]byte(probes), &log.ProbeResults); err != nil {
		log.ProbeResults = nil
	}
	return log, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/jobs"
)

// JobRepo implements jobs.Repository against PostgreSQL. The worker
// claims queued rows with its own SKIP LOCKED query; everything that
// reads or appends to a job row goes through here.
type JobRepo struct{ db *sql.DB }

// NewJobRepo creates a Postgres-backed job repository.
func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{db: db} }

func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO jobs (job_id, workspace_id, lead_id, kind, status, progress, error, log_lines, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', '[]'::jsonb, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, job.JobID, job.WorkspaceID, job.LeadID, job.Kind, job.Status, job.Progress,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepo) GetByJobID(ctx context.Context, workspaceID int64, jobID string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, job_id, workspace_id, lead_id, kind, status, progress,
		       COALESCE(result::text, ''), COALESCE(error, ''),
		       COALESCE(log_lines::text, '[]'), created_at, updated_at
		FROM jobs
		WHERE job_id = $1 AND workspace_id = $2
	`, jobID, workspaceID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, jobs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *JobRepo) List(ctx context.Context, workspaceID int64, activeOnly bool) ([]domain.Job, error) {
	q := `
		SELECT id, job_id, workspace_id, lead_id, kind, status, progress,
		       COALESCE(result::text, ''), COALESCE(error, ''),
		       COALESCE(log_lines::text, '[]'), created_at, updated_at
		FROM jobs
		WHERE workspace_id = $1`
	if activeOnly {
		q += " AND status IN ('queued', 'running')"
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, nil
}

func (r *JobRepo) CancelIfActive(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'running')
	`, id)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AppendLogLine inserts the next log row for the job and mirrors the
// message on jobs.log_lines, in one transaction so seq stays dense.
// All appends for a job come from a single writer at a time.
func (r *JobRepo) AppendLogLine(ctx context.Context, jobID int64, message, level, visibility string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_log_lines (job_id, seq, message, level, visibility, created_at)
		SELECT $1, COALESCE(MAX(seq) + 1, 0), $2, $3, $4, NOW()
		FROM job_log_lines WHERE job_id = $1
	`, jobID, message, level, visibility)
	if err != nil {
		return fmt.Errorf("insert log line: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET log_lines = COALESCE(log_lines, '[]'::jsonb) || to_jsonb($2::text), updated_at = NOW()
		WHERE id = $1
	`, jobID, message)
	if err != nil {
		return fmt.Errorf("mirror log line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	return nil
}

func (r *JobRepo) ListLogLines(ctx context.Context, jobID int64) ([]domain.JobLogLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, seq, message, level, visibility, created_at
		FROM job_log_lines
		WHERE job_id = $1
		ORDER BY seq
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list log lines: %w", err)
	}
	defer rows.Close()

	var out []domain.JobLogLine
	for rows.Next() {
		var l domain.JobLogLine
		if err := rows.Scan(&l.ID, &l.JobID, &l.Seq, &l.Message, &l.Level, &l.Visibility, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log line: %w", err)
		}
		out = append(out, l)
	}
	return out, nil
}

func scanJob(s interface{ Scan(...interface{}) error }) (*domain.Job, error) {
	j := &domain.Job{}
	var (
		leadID   sql.NullInt64
		result   string
		logLines string
	)
	err := s.Scan(
		&j.ID, &j.JobID, &j.WorkspaceID, &leadID, &j.Kind, &j.Status, &j.Progress,
		&result, &j.Error, &logLines, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if leadID.Valid {
		j.LeadID = &leadID.Int64
	}
	if result != "" {
		j.Result = json.RawMessage(result)
	}
	if err := json.Unmarshal([]byte(logLines), &j.LogLines); err != nil {
		j.LogLines = nil
	}
	return j, nil
}

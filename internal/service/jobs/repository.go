package jobs

import (
	"context"

	"github.com/ignite/mailcheck/internal/domain"
)

// Repository defines the data access contract for client-facing job
// operations. Worker-side claiming lives on the Postgres repository
// directly.
type Repository interface {
	// Create inserts a queued job and fills in its row ID.
	Create(ctx context.Context, job *domain.Job) error

	// GetByJobID fetches one job scoped to a workspace. Returns
	// ErrNotFound if no such job exists in the workspace.
	GetByJobID(ctx context.Context, workspaceID int64, jobID string) (*domain.Job, error)

	// List returns workspace jobs, newest first. With activeOnly only
	// queued and running jobs are returned.
	List(ctx context.Context, workspaceID int64, activeOnly bool) ([]domain.Job, error)

	// CancelIfActive flips a queued or running job to cancelled. Returns
	// false when the job was already terminal (lost the race).
	CancelIfActive(ctx context.Context, id int64) (bool, error)

	// AppendLogLine adds a log row with the next dense seq and mirrors
	// the message on jobs.log_lines.
	AppendLogLine(ctx context.Context, jobID int64, message, level, visibility string) error

	// ListLogLines returns a job's log rows ordered by seq.
	ListLogLines(ctx context.Context, jobID int64) ([]domain.JobLogLine, error)
}

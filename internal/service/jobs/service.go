package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
)

// Service implements job lifecycle business logic. It is safe for
// concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a jobs service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enqueue creates a queued job with a fresh opaque job_id. leadID is nil
// for jobs that don't target a single lead (exports).
func (s *Service) Enqueue(ctx context.Context, workspaceID int64, kind domain.JobKind, leadID *int64) (*domain.Job, error) {
	job := &domain.Job{
		JobID:       uuid.NewString(),
		WorkspaceID: workspaceID,
		LeadID:      leadID,
		Kind:        kind,
		Status:      domain.JobQueued,
		Progress:    0,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Get fetches one job scoped to the workspace.
func (s *Service) Get(ctx context.Context, workspaceID int64, jobID string) (*domain.Job, error) {
	return s.repo.GetByJobID(ctx, workspaceID, jobID)
}

// List returns workspace jobs, newest first; activeOnly keeps only
// queued and running ones.
func (s *Service) List(ctx context.Context, workspaceID int64, activeOnly bool) ([]domain.Job, error) {
	return s.repo.List(ctx, workspaceID, activeOnly)
}

// Cancel stops a queued or running job. The running worker notices the
// flip on its next checkpoint; the job keeps whatever progress it had.
// Returns InvalidStateError when the job is already terminal.
func (s *Service) Cancel(ctx context.Context, workspaceID int64, jobID string) (*domain.Job, error) {
	job, err := s.repo.GetByJobID(ctx, workspaceID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, &InvalidStateError{Status: job.Status}
	}

	ok, err := s.repo.CancelIfActive(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if !ok {
		// Lost the race against the worker finishing it.
		fresh, err := s.repo.GetByJobID(ctx, workspaceID, jobID)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidStateError{Status: fresh.Status}
	}

	rec := joblog.Record{Code: joblog.CodeJobCancelled}
	if err := s.repo.AppendLogLine(ctx, job.ID, rec.Message(), rec.Code.Level(), rec.Code.Visibility()); err != nil {
		return nil, fmt.Errorf("append cancel log: %w", err)
	}

	job.Status = domain.JobCancelled
	return job, nil
}

// LogEntry is one visible log line with its timestamp.
type LogEntry struct {
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// Detail is the poll response for one job. LogLines repeats the entry
// messages for clients that only want the stream.
type Detail struct {
	JobID      string           `json:"job_id"`
	Status     domain.JobStatus `json:"status"`
	Progress   int              `json:"progress"`
	Result     json.RawMessage  `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	LogLines   []string         `json:"log_lines,omitempty"`
	LogEntries []LogEntry       `json:"log_entries"`
}

// Detail returns the poll view for a job. Privileged viewers see
// diagnostic (privileged) log lines; everyone else only public ones.
// Jobs without log rows fall back to the jobs.log_lines mirror.
func (s *Service) Detail(ctx context.Context, workspaceID int64, jobID string, privileged bool) (*Detail, error) {
	job, err := s.repo.GetByJobID(ctx, workspaceID, jobID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLogLines(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list log lines: %w", err)
	}

	d := &Detail{
		JobID:      job.JobID,
		Status:     job.Status,
		Progress:   job.Progress,
		Result:     job.Result,
		Error:      job.Error,
		LogEntries: []LogEntry{},
	}

	if len(rows) == 0 {
		d.LogLines = FilterLogLines(job.LogLines, privileged)
		return d, nil
	}

	for _, row := range rows {
		if row.Visibility == joblog.VisibilityPrivileged && !privileged {
			continue
		}
		d.LogEntries = append(d.LogEntries, LogEntry{CreatedAt: row.CreatedAt, Message: row.Message})
		d.LogLines = append(d.LogLines, row.Message)
	}
	return d, nil
}

// FilterLogLines drops privileged records for unprivileged viewers.
// Lines that don't parse as log records stay visible.
func FilterLogLines(lines []string, privileged bool) []string {
	if privileged {
		return lines
	}
	var out []string
	for _, line := range lines {
		if rec, ok := joblog.ParseMessage(line); ok && rec.Code.Visibility() == joblog.VisibilityPrivileged {
			continue
		}
		out = append(out, line)
	}
	return out
}

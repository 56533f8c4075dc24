package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*domain.Job
	lines  map[int64][]domain.JobLogLine
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[int64]*domain.Job), lines: make(map[int64][]domain.JobLogLine)}
}

func (m *mockRepo) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	job.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockRepo) GetByJobID(_ context.Context, workspaceID int64, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.WorkspaceID == workspaceID && j.JobID == jobID {
			copied := *j
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, workspaceID int64, activeOnly bool) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.WorkspaceID != workspaceID {
			continue
		}
		if activeOnly && j.Status != domain.JobQueued && j.Status != domain.JobRunning {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func (m *mockRepo) CancelIfActive(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, nil
	}
	if j.Status != domain.JobQueued && j.Status != domain.JobRunning {
		return false, nil
	}
	j.Status = domain.JobCancelled
	return true, nil
}

func (m *mockRepo) AppendLogLine(_ context.Context, jobID int64, message, level, visibility string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[jobID] = append(m.lines[jobID], domain.JobLogLine{
		JobID:      jobID,
		Seq:        len(m.lines[jobID]),
		Message:    message,
		Level:      level,
		Visibility: visibility,
		CreatedAt:  time.Now(),
	})
	if j, ok := m.jobs[jobID]; ok {
		j.LogLines = append(j.LogLines, message)
	}
	return nil
}

func (m *mockRepo) ListLogLines(_ context.Context, jobID int64) ([]domain.JobLogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.JobLogLine, len(m.lines[jobID]))
	copy(out, m.lines[jobID])
	return out, nil
}

func (m *mockRepo) setStatus(jobID int64, status domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[jobID].Status = status
}

func TestEnqueue_CreatesQueuedJob(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	leadID := int64(42)

	job, err := s.Enqueue(context.Background(), 1, domain.JobKindVerify, &leadID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if job.Status != domain.JobQueued || job.Progress != 0 {
		t.Errorf("job = %+v", job)
	}
	if job.Kind != domain.JobKindVerify || job.LeadID == nil || *job.LeadID != 42 {
		t.Errorf("kind/lead = %v / %v", job.Kind, job.LeadID)
	}
	if len(job.JobID) != 36 {
		t.Errorf("job_id = %q, want UUID", job.JobID)
	}
	if job.ID == 0 {
		t.Error("row id not filled in")
	}
}

func TestCancel_FromQueued(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	job, _ := s.Enqueue(context.Background(), 1, domain.JobKindVerify, nil)

	cancelled, err := s.Cancel(context.Background(), 1, job.JobID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.JobCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}

	lines, _ := repo.ListLogLines(context.Background(), job.ID)
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1", len(lines))
	}
	rec, ok := joblog.ParseMessage(lines[0].Message)
	if !ok || rec.Code != joblog.CodeJobCancelled {
		t.Errorf("log line = %q", lines[0].Message)
	}
	if lines[0].Level != joblog.LevelInfo || lines[0].Visibility != joblog.VisibilityPublic {
		t.Errorf("level/visibility = %s/%s", lines[0].Level, lines[0].Visibility)
	}
}

func TestCancel_TerminalStateRejected(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	job, _ := s.Enqueue(context.Background(), 1, domain.JobKindVerify, nil)
	repo.setStatus(job.ID, domain.JobSucceeded)

	_, err := s.Cancel(context.Background(), 1, job.JobID)

	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}
	if ise.Status != domain.JobSucceeded {
		t.Errorf("state = %s", ise.Status)
	}
}

func TestCancel_UnknownJob(t *testing.T) {
	s := NewService(newMockRepo())

	_, err := s.Cancel(context.Background(), 1, "c3a8e0f0-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancel_OtherWorkspaceInvisible(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	job, _ := s.Enqueue(context.Background(), 1, domain.JobKindVerify, nil)

	if _, err := s.Cancel(context.Background(), 2, job.JobID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound across workspaces", err)
	}
}

func TestList_ActiveOnly(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	ctx := context.Background()

	queued, _ := s.Enqueue(ctx, 1, domain.JobKindVerify, nil)
	done, _ := s.Enqueue(ctx, 1, domain.JobKindVerify, nil)
	repo.setStatus(done.ID, domain.JobSucceeded)
	s.Enqueue(ctx, 2, domain.JobKindVerify, nil)

	all, err := s.List(ctx, 1, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d jobs, want 2", len(all))
	}

	active, err := s.List(ctx, 1, true)
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 1 || active[0].JobID != queued.JobID {
		t.Errorf("active = %+v", active)
	}
}

func TestDetail_FiltersPrivilegedRows(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	ctx := context.Background()
	job, _ := s.Enqueue(ctx, 1, domain.JobKindVerify, nil)

	started := joblog.Record{Code: joblog.CodeJobStarted, Params: joblog.Params{"job_id": job.JobID}}
	debug := joblog.Record{Code: joblog.CodeDebugMXLookup, Params: joblog.Params{"domain": "example.com"}}
	repo.AppendLogLine(ctx, job.ID, started.Message(), started.Code.Level(), started.Code.Visibility())
	repo.AppendLogLine(ctx, job.ID, debug.Message(), debug.Code.Level(), debug.Code.Visibility())

	public, err := s.Detail(ctx, 1, job.JobID, false)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if len(public.LogLines) != 1 || len(public.LogEntries) != 1 {
		t.Fatalf("public lines = %v", public.LogLines)
	}
	if rec, _ := joblog.ParseMessage(public.LogLines[0]); rec.Code != joblog.CodeJobStarted {
		t.Errorf("visible line = %q", public.LogLines[0])
	}

	admin, err := s.Detail(ctx, 1, job.JobID, true)
	if err != nil {
		t.Fatalf("Detail privileged: %v", err)
	}
	if len(admin.LogLines) != 2 {
		t.Errorf("privileged lines = %v", admin.LogLines)
	}
}

func TestDetail_FallsBackToMirror(t *testing.T) {
	repo := newMockRepo()
	s := NewService(repo)
	ctx := context.Background()
	job, _ := s.Enqueue(ctx, 1, domain.JobKindVerify, nil)

	started := joblog.Record{Code: joblog.CodeJobStarted}
	debug := joblog.Record{Code: joblog.CodeDebugConfig}
	repo.mu.Lock()
	repo.jobs[job.ID].LogLines = []string{started.Message(), debug.Message()}
	repo.mu.Unlock()

	d, err := s.Detail(ctx, 1, job.JobID, false)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if len(d.LogEntries) != 0 {
		t.Errorf("entries = %v, want none from mirror", d.LogEntries)
	}
	if len(d.LogLines) != 1 {
		t.Fatalf("mirror lines = %v", d.LogLines)
	}
	if rec, _ := joblog.ParseMessage(d.LogLines[0]); rec.Code != joblog.CodeJobStarted {
		t.Errorf("visible line = %q", d.LogLines[0])
	}
}

func TestFilterLogLines_KeepsUnparseableLines(t *testing.T) {
	debug := joblog.Record{Code: joblog.CodeDebugConfig}
	lines := []string{"plain text line", debug.Message()}

	got := FilterLogLines(lines, false)
	if len(got) != 1 || got[0] != "plain text line" {
		t.Errorf("filtered = %v", got)
	}
	if got := FilterLogLines(lines, true); len(got) != 2 {
		t.Errorf("privileged = %v", got)
	}
}

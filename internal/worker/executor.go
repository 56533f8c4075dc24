package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
	"github.com/ignite/mailcheck/internal/repository/postgres"
	"github.com/ignite/mailcheck/internal/service/usage"
	"github.com/ignite/mailcheck/internal/service/webhook"
	"github.com/ignite/mailcheck/internal/service/workspacecfg"
	"github.com/ignite/mailcheck/internal/verify"
)

const (
	// DefaultPollInterval is how often an idle worker checks for queued jobs.
	DefaultPollInterval = 2 * time.Second

	// DefaultNumWorkers is how many jobs one executor runs concurrently.
	DefaultNumWorkers = 2

	// JobSoftTimeout bounds one job run. Verification can take a while
	// (DNS, multiple MX hosts, SMTP per candidate), so the budget is
	// generous.
	JobSoftTimeout = 600 * time.Second

	// finisherTimeout bounds the status writes that happen after a job's
	// own context has already expired.
	finisherTimeout = 15 * time.Second

	// timeoutReason is the job error recorded when the budget runs out.
	timeoutReason = "Execution time exceeded (timeout)"
)

// Deps are the collaborators a job run needs besides the database.
type Deps struct {
	Jobs          *postgres.JobRepo
	Leads         *postgres.LeadRepo
	Verifications *postgres.VerificationLogRepo
	Config        *workspacecfg.Service
	Usage         *usage.Service
	Hooks         *webhook.Dispatcher
	Sentinel      verify.BlockSentinel
}

// Executor claims queued jobs and runs them to a terminal status.
// Several executors may poll the same table; FOR UPDATE SKIP LOCKED
// keeps two of them from claiming the same row.
type Executor struct {
	db   *sql.DB
	deps Deps

	workerID     string
	numWorkers   int
	pollInterval time.Duration
	jobTimeout   time.Duration

	// verifyFn and mxLookupFn run the network-bound parts of a verify
	// job; tests swap them out.
	verifyFn   verifyFunc
	mxLookupFn mxLookupFunc

	// Stats
	processed int64
	failed    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

type verifyFunc func(ctx context.Context, v *verify.Verifier, firstName, lastName, domainName string, opts verify.PickOptions, sink joblog.Sink) ([]string, string, *verify.Result, map[string]domain.ProbeResult)

type mxLookupFunc func(ctx context.Context, domainName string, timeout time.Duration) ([]verify.MX, error)

// NewExecutor creates a job executor pool over the given database.
func NewExecutor(db *sql.DB, deps Deps) *Executor {
	return &Executor{
		db:           db,
		deps:         deps,
		workerID:     fmt.Sprintf("executor-%s-%s", hostname(), uuid.New().String()[:8]),
		numWorkers:   DefaultNumWorkers,
		pollInterval: DefaultPollInterval,
		jobTimeout:   JobSoftTimeout,
		verifyFn: func(ctx context.Context, v *verify.Verifier, firstName, lastName, domainName string, opts verify.PickOptions, sink joblog.Sink) ([]string, string, *verify.Result, map[string]domain.ProbeResult) {
			return v.VerifyAndPickBest(ctx, firstName, lastName, domainName, opts, sink)
		},
		mxLookupFn: func(ctx context.Context, domainName string, timeout time.Duration) ([]verify.MX, error) {
			return verify.NewResolver(timeout).MXLookup(ctx, domainName)
		},
	}
}

// SetNumWorkers adjusts the pool size. Takes effect on Start.
func (e *Executor) SetNumWorkers(n int) {
	if n > 0 {
		e.numWorkers = n
	}
}

// SetPollInterval adjusts how often idle workers poll for work.
func (e *Executor) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

// Start launches the worker goroutines.
func (e *Executor) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("executor already running")
	}
	e.running = true
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.mu.Unlock()

	log.Printf("[JobExecutor] Starting %d workers (id: %s, poll: %v)", e.numWorkers, e.workerID, e.pollInterval)

	for i := 0; i < e.numWorkers; i++ {
		e.wg.Add(1)
		go e.workerLoop()
	}
	return nil
}

// Stop cancels the polling loops and waits for them to exit. A job
// interrupted mid-run is left in running state for the reaper.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	log.Printf("[JobExecutor] Stopping...")
	e.cancel()
	e.wg.Wait()
	log.Printf("[JobExecutor] Stopped. Processed: %d, Failed: %d",
		atomic.LoadInt64(&e.processed), atomic.LoadInt64(&e.failed))
}

func (e *Executor) workerLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		job, err := e.claimNext(e.ctx)
		if err != nil {
			if e.ctx.Err() == nil {
				log.Printf("[JobExecutor] Claim error: %v", err)
			}
			e.idle()
			continue
		}
		if job == nil {
			e.idle()
			continue
		}
		e.runJob(e.ctx, job)
	}
}

func (e *Executor) idle() {
	select {
	case <-e.ctx.Done():
	case <-time.After(e.pollInterval):
	}
}

// claimedJob is one row pulled off the queue.
type claimedJob struct {
	id          int64
	jobID       string
	workspaceID int64
	leadID      sql.NullInt64
	kind        string
}

// claimNext atomically flips the oldest queued job to running and
// returns it, or nil when the queue is empty. Only queued rows are
// eligible, so a cancel that lands before pickup is final: the job is
// simply never claimed.
func (e *Executor) claimNext(ctx context.Context) (*claimedJob, error) {
	row := e.db.QueryRowContext(ctx, `
		WITH claimed AS (
			UPDATE jobs
			SET status = 'running', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'queued'
				ORDER BY created_at
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING id, job_id, workspace_id, lead_id, kind
		)
		SELECT id, job_id, workspace_id, lead_id, kind FROM claimed
	`)
	j := &claimedJob{}
	err := row.Scan(&j.id, &j.jobID, &j.workspaceID, &j.leadID, &j.kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

func (e *Executor) runJob(parent context.Context, job *claimedJob) {
	ctx, cancel := context.WithTimeout(parent, e.jobTimeout)
	defer cancel()

	log.Printf("[JobExecutor] %s: picked up %s job %s", e.workerID, job.kind, job.jobID)

	switch domain.JobKind(job.kind) {
	case domain.JobKindVerify:
		e.runVerify(ctx, job)
	case domain.JobKindExportCSV:
		e.runExport(ctx, job)
	default:
		reason := "Unknown job kind: " + job.kind
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": reason}, reason)
	}
}

// setProgress bumps the job's progress percentage.
func (e *Executor) setProgress(ctx context.Context, id int64, progress int) error {
	_, err := e.db.ExecContext(ctx, `
		UPDATE jobs SET progress = $2, updated_at = NOW() WHERE id = $1
	`, id, progress)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// finishSucceeded writes the terminal success state in one statement.
func (e *Executor) finishSucceeded(ctx context.Context, id int64, result []byte) error {
	_, err := e.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'succeeded', progress = 100, result = $2, updated_at = NOW()
		WHERE id = $1
	`, id, result)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	atomic.AddInt64(&e.processed, 1)
	return nil
}

// markFailed appends the failure line, then flips the job to failed with
// reason as its error. The line goes first so a client streaming the log
// sees why before the status flips under it.
func (e *Executor) markFailed(ctx context.Context, job *claimedJob, code joblog.Code, params joblog.Params, reason string) {
	reason = truncate(reason, 500)
	rec := joblog.Record{Code: code, Params: params}
	if err := e.deps.Jobs.AppendLogLine(ctx, job.id, rec.Message(), code.Level(), code.Visibility()); err != nil {
		log.Printf("[JobExecutor] Job %s: append failure line: %v", job.jobID, err)
	}
	if _, err := e.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1
	`, job.id, reason); err != nil {
		log.Printf("[JobExecutor] Job %s: mark failed: %v", job.jobID, err)
	}
	atomic.AddInt64(&e.failed, 1)
}

// jobSink persists every emitted record onto the job's log stream. The
// first persistence failure is kept so the runner can fail the job: a
// verification whose log cannot be written must not report success.
type jobSink struct {
	ctx   context.Context
	repo  *postgres.JobRepo
	jobID int64

	mu  sync.Mutex
	err error
}

func (s *jobSink) Emit(code joblog.Code, params joblog.Params) {
	rec := joblog.Record{Code: code, Params: params}
	if err := s.repo.AppendLogLine(s.ctx, s.jobID, rec.Message(), code.Level(), code.Visibility()); err != nil {
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
}

func (s *jobSink) firstErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailcheck/internal/joblog"
	"github.com/ignite/mailcheck/internal/pkg/distlock"
	"github.com/ignite/mailcheck/internal/repository/postgres"
)

const (
	// DefaultReapInterval is how often stale jobs are swept.
	DefaultReapInterval = 30 * time.Second

	// DefaultStaleAfter is how long a job may sit in running before its
	// worker is presumed dead. Above the job budget, so a healthy run
	// always finishes or times out on its own first.
	DefaultStaleAfter = 660 * time.Second

	reaperLockKey = "jobs:reaper"
	reaperLockTTL = time.Minute
)

// Reaper fails jobs whose worker died mid-run. A crashed executor leaves
// its claims in running forever; the reaper flips anything stale to
// failed with the timeout reason so clients stop polling.
type Reaper struct {
	db          *sql.DB
	jobs        *postgres.JobRepo
	redisClient *redis.Client // optional; nil falls back to PG advisory locks

	interval   time.Duration
	staleAfter time.Duration

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewReaper creates a stale-job reaper.
func NewReaper(db *sql.DB, jobs *postgres.JobRepo, redisClient *redis.Client) *Reaper {
	return &Reaper{
		db:          db,
		jobs:        jobs,
		redisClient: redisClient,
		interval:    DefaultReapInterval,
		staleAfter:  DefaultStaleAfter,
	}
}

// Start launches the sweep loop.
func (r *Reaper) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reaper already running")
	}
	r.running = true
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.mu.Unlock()

	log.Printf("[JobReaper] Starting (interval: %v, stale after: %v)", r.interval, r.staleAfter)

	r.wg.Add(1)
	go r.loop()
	return nil
}

// Stop halts the sweep loop.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	log.Printf("[JobReaper] Stopped")
}

func (r *Reaper) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep runs one reap pass under a distributed lock: several worker
// processes may carry a reaper, but only one sweeps at a time.
func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(r.ctx, 30*time.Second)
	defer cancel()

	lock := distlock.NewLock(r.redisClient, r.db, reaperLockKey, reaperLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[JobReaper] Acquire lock: %v", err)
		return
	}
	if !acquired {
		return
	}
	defer lock.Release(ctx)

	n, err := r.ReapOnce(ctx)
	if err != nil {
		log.Printf("[JobReaper] Sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[JobReaper] Failed %d stale jobs", n)
	}
}

// ReapOnce fails every currently stale running job and returns how many
// rows it flipped.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id FROM jobs
		WHERE status = 'running' AND updated_at < NOW() - ($1 * INTERVAL '1 second')
	`, int(r.staleAfter.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()

	type staleJob struct {
		id    int64
		jobID string
	}
	var stale []staleJob
	for rows.Next() {
		var s staleJob
		if err := rows.Scan(&s.id, &s.jobID); err != nil {
			return 0, fmt.Errorf("scan stale job: %w", err)
		}
		stale = append(stale, s)
	}

	reaped := 0
	for _, s := range stale {
		// CAS on status: the owning worker may have finished between
		// the select and here.
		res, err := r.db.ExecContext(ctx, `
			UPDATE jobs SET status = 'failed', error = $2, updated_at = NOW()
			WHERE id = $1 AND status = 'running'
		`, s.id, timeoutReason)
		if err != nil {
			return reaped, fmt.Errorf("fail stale job: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		rec := joblog.Record{Code: joblog.CodeJobTimeout, Params: joblog.Params{"reason": timeoutReason}}
		if err := r.jobs.AppendLogLine(ctx, s.id, rec.Message(), joblog.CodeJobTimeout.Level(), joblog.CodeJobTimeout.Visibility()); err != nil {
			log.Printf("[JobReaper] Job %s: append timeout line: %v", s.jobID, err)
		}
		log.Printf("[JobReaper] Job %s: stale running, marked failed", s.jobID)
		reaped++
	}
	return reaped, nil
}

// Package distlock provides the mutual exclusion primitive for work
// that must run in at most one process at a time, such as the stale-job
// reaper sweep. Redis is the preferred backend; when no client is
// configured the lock degrades to a Postgres advisory lock on the
// shared database, so single-store deployments still get exclusion.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is a single-holder lock. An instance belongs to one
// goroutine; would-be concurrent holders create their own instances.
type DistLock interface {
	// Acquire attempts to take the lock without blocking and reports
	// whether it succeeded.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still holds it.
	Release(ctx context.Context) error
}

// NewLock picks the backend: Redis when a client is available,
// otherwise an advisory lock on db. Callers treat both the same.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// PGAdvisoryLock holds a session-scoped pg_advisory lock. Postgres
// releases it when the session ends, which covers crashed holders the
// way TTL expiry does for the Redis variant.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewPGAdvisoryLock derives the 64-bit advisory lock id from key with
// FNV-1a, so every process maps the same name to the same lock.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// Acquire is non-blocking: pg_try_advisory_lock returns immediately
// whether or not the lock was free.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release unlocks the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

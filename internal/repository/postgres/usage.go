package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/mailcheck/internal/domain"
)

// UsageRepo implements usage.Repository against PostgreSQL. Increments
// are atomic upserts so concurrent workers never lose a count.
type UsageRepo struct{ db *sql.DB }

// NewUsageRepo creates a Postgres-backed usage counter repository.
func NewUsageRepo(db *sql.DB) *UsageRepo { return &UsageRepo{db: db} }

func (r *UsageRepo) IncrementVerifications(ctx context.Context, workspaceID int64, period string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (workspace_id, period, verifications_count, exports_count, created_at, updated_at)
		VALUES ($1, $2, 1, 0, NOW(), NOW())
		ON CONFLICT (workspace_id, period)
		DO UPDATE SET verifications_count = usage_counters.verifications_count + 1, updated_at = NOW()
		RETURNING verifications_count
	`, workspaceID, period).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment verifications: %w", err)
	}
	return count, nil
}

func (r *UsageRepo) IncrementExports(ctx context.Context, workspaceID int64, period string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (workspace_id, period, verifications_count, exports_count, created_at, updated_at)
		VALUES ($1, $2, 0, 1, NOW(), NOW())
		ON CONFLICT (workspace_id, period)
		DO UPDATE SET exports_count = usage_counters.exports_count + 1, updated_at = NOW()
		RETURNING exports_count
	`, workspaceID, period).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment exports: %w", err)
	}
	return count, nil
}

func (r *UsageRepo) Get(ctx context.Context, workspaceID int64, period string) (*domain.UsageCounter, error) {
	u := &domain.UsageCounter{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, period, verifications_count, exports_count, created_at, updated_at
		FROM usage_counters
		WHERE workspace_id = $1 AND period = $2
	`, workspaceID, period).Scan(
		&u.ID, &u.WorkspaceID, &u.Period, &u.VerificationsCount, &u.ExportsCount, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return u, nil
}

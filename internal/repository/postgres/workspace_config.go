package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/workspacecfg"
)

// WorkspaceConfigRepo implements workspacecfg.Repository against
// PostgreSQL.
type WorkspaceConfigRepo struct{ db *sql.DB }

// NewWorkspaceConfigRepo creates a Postgres-backed config entry repository.
func NewWorkspaceConfigRepo(db *sql.DB) *WorkspaceConfigRepo {
	return &WorkspaceConfigRepo{db: db}
}

func (r *WorkspaceConfigRepo) ListEntries(ctx context.Context, workspaceID int64) ([]domain.WorkspaceConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, key, value, created_at, updated_at
		FROM workspace_config_entries
		WHERE workspace_id = $1
		ORDER BY key
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list config entries: %w", err)
	}
	defer rows.Close()

	var out []domain.WorkspaceConfigEntry
	for rows.Next() {
		var e domain.WorkspaceConfigEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.Key, &e.Value, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan config entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *WorkspaceConfigRepo) GetEntry(ctx context.Context, workspaceID int64, key string) (*domain.WorkspaceConfigEntry, error) {
	e := &domain.WorkspaceConfigEntry{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, key, value, created_at, updated_at
		FROM workspace_config_entries
		WHERE workspace_id = $1 AND key = $2
	`, workspaceID, key).Scan(&e.ID, &e.WorkspaceID, &e.Key, &e.Value, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, workspacecfg.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get config entry: %w", err)
	}
	return e, nil
}

func (r *WorkspaceConfigRepo) UpsertEntry(ctx context.Context, workspaceID int64, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workspace_config_entries (workspace_id, key, value, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (workspace_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, workspaceID, key, value)
	if err != nil {
		return fmt.Errorf("upsert config entry: %w", err)
	}
	return nil
}

func (r *WorkspaceConfigRepo) DeleteEntry(ctx context.Context, workspaceID int64, key string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM workspace_config_entries
		WHERE workspace_id = $1 AND key = $2
	`, workspaceID, key)
	if err != nil {
		return fmt.Errorf("delete config entry: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/mailcheck/internal/domain"
)

// ErrWorkspaceNotFound is returned when no workspace matches a lookup.
// There is no workspace service; callers (auth middleware, seeding)
// consume the repository directly.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// WorkspaceRepo implements workspace lookups against PostgreSQL.
type WorkspaceRepo struct{ db *sql.DB }

// NewWorkspaceRepo creates a Postgres-backed workspace repository.
func NewWorkspaceRepo(db *sql.DB) *WorkspaceRepo { return &WorkspaceRepo{db: db} }

// GetByAPIKey resolves the workspace an API key belongs to.
func (r *WorkspaceRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Workspace, error) {
	w := &domain.Workspace{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, plan, api_key, created_at, updated_at
		FROM workspaces
		WHERE api_key = $1
	`, apiKey).Scan(&w.ID, &w.Name, &w.Slug, &w.Plan, &w.APIKey, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace by api key: %w", err)
	}
	return w, nil
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id int64) (*domain.Workspace, error) {
	w := &domain.Workspace{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, plan, api_key, created_at, updated_at
		FROM workspaces
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Slug, &w.Plan, &w.APIKey, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

// Create inserts a workspace and fills in its ID. Used by seeding.
func (r *WorkspaceRepo) Create(ctx context.Context, w *domain.Workspace) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO workspaces (name, slug, plan, api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, w.Name, w.Slug, w.Plan, w.APIKey).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}

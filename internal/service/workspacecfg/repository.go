package workspacecfg

import (
	"context"

	"github.com/ignite/mailcheck/internal/domain"
)

// Repository defines the data access contract for workspace config entries.
type Repository interface {
	// ListEntries returns every config entry for the workspace.
	ListEntries(ctx context.Context, workspaceID int64) ([]domain.WorkspaceConfigEntry, error)

	// GetEntry returns one entry by key. Returns ErrEntryNotFound if the
	// workspace has no override for that key.
	GetEntry(ctx context.Context, workspaceID int64, key string) (*domain.WorkspaceConfigEntry, error)

	// UpsertEntry creates or replaces the value for (workspace, key).
	UpsertEntry(ctx context.Context, workspaceID int64, key, value string) error

	// DeleteEntry removes the override for (workspace, key). Deleting a
	// missing entry is not an error.
	DeleteEntry(ctx context.Context, workspaceID int64, key string) error
}

package usage

import (
	"context"

	"github.com/ignite/mailcheck/internal/domain"
)

// Repository defines the data access contract for usage counters.
type Repository interface {
	// IncrementVerifications atomically bumps the verification count for
	// (workspace, period), creating the row if needed, and returns the
	// new count.
	IncrementVerifications(ctx context.Context, workspaceID int64, period string) (int, error)

	// IncrementExports does the same for the export count.
	IncrementExports(ctx context.Context, workspaceID int64, period string) (int, error)

	// Get returns the counter row for (workspace, period), or nil when
	// the workspace has no activity in that period.
	Get(ctx context.Context, workspaceID int64, period string) (*domain.UsageCounter, error)
}

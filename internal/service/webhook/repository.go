package webhook

import (
	"context"

	"github.com/ignite/mailcheck/internal/domain"
)

// Repository defines the data access contract for webhook subscriptions
// and delivery records.
type Repository interface {
	// Create inserts a subscription and fills in its ID.
	Create(ctx context.Context, wh *domain.Webhook) error

	// ListByWorkspace returns all subscriptions of a workspace.
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Webhook, error)

	// ListActiveByWorkspace returns only active subscriptions.
	ListActiveByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Webhook, error)

	// GetByID returns one subscription. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id int64) (*domain.Webhook, error)

	// Delete removes a workspace's subscription. Returns ErrNotFound if
	// the workspace has no such subscription.
	Delete(ctx context.Context, workspaceID, id int64) error

	// RecordDelivery persists one delivery attempt.
	RecordDelivery(ctx context.Context, d *domain.WebhookDelivery) error
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/webhook"
)

// WebhookRepo implements webhook.Repository against PostgreSQL.
type WebhookRepo struct{ db *sql.DB }

// NewWebhookRepo creates a Postgres-backed webhook repository.
func NewWebhookRepo(db *sql.DB) *WebhookRepo { return &WebhookRepo{db: db} }

func (r *WebhookRepo) Create(ctx context.Context, wh *domain.Webhook) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO webhooks (workspace_id, url, secret, events, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, wh.WorkspaceID, wh.URL, wh.Secret, wh.Events, wh.IsActive,
	).Scan(&wh.ID, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}
	return nil
}

func (r *WebhookRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Webhook, error) {
	return r.list(ctx, workspaceID, false)
}

func (r *WebhookRepo) ListActiveByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Webhook, error) {
	return r.list(ctx, workspaceID, true)
}

func (r *WebhookRepo) list(ctx context.Context, workspaceID int64, activeOnly bool) ([]domain.Webhook, error) {
	q := `
		SELECT id, workspace_id, url, secret, events, is_active, created_at, updated_at
		FROM webhooks
		WHERE workspace_id = $1`
	if activeOnly {
		q += " AND is_active = TRUE"
	}
	q += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var out []domain.Webhook
	for rows.Next() {
		var wh domain.Webhook
		if err := rows.Scan(&wh.ID, &wh.WorkspaceID, &wh.URL, &wh.Secret, &wh.Events, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, wh)
	}
	return out, nil
}

func (r *WebhookRepo) GetByID(ctx context.Context, id int64) (*domain.Webhook, error) {
	wh := &domain.Webhook{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, url, secret, events, is_active, created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`, id).Scan(&wh.ID, &wh.WorkspaceID, &wh.URL, &wh.Secret, &wh.Events, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, webhook.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	return wh, nil
}

func (r *WebhookRepo) Delete(ctx context.Context, workspaceID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM webhooks
		WHERE id = $1 AND workspace_id = $2
	`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

func (r *WebhookRepo) RecordDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO webhook_deliveries (webhook_id, event, payload, status_code, response_body, success, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`, d.WebhookID, d.Event, d.Payload, d.StatusCode, d.ResponseBody, d.Success, d.RetryCount,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	return nil
}

package webhook

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ignite/mailcheck/internal/domain"
)

// Service implements subscription CRUD. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a webhook service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a subscription with a fresh secret. The secret is
// returned only here; afterwards the API never exposes it again.
func (s *Service) Create(ctx context.Context, workspaceID int64, url string, events []string) (*domain.Webhook, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	cleaned := make([]string, 0, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			cleaned = append(cleaned, e)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("at least one event is required")
	}

	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	wh := &domain.Webhook{
		WorkspaceID: workspaceID,
		URL:         url,
		Secret:      secret,
		Events:      strings.Join(cleaned, ","),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, wh); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return wh, nil
}

// List returns all subscriptions of a workspace.
func (s *Service) List(ctx context.Context, workspaceID int64) ([]domain.Webhook, error) {
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

// Delete removes a workspace's subscription.
func (s *Service) Delete(ctx context.Context, workspaceID, id int64) error {
	return s.repo.Delete(ctx, workspaceID, id)
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

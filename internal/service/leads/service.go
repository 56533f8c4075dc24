package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/mailcheck/internal/domain"
)

// CreateInput carries the caller-supplied fields for a new lead. Empty
// fields stay empty; on an upsert hit they leave the stored value alone.
type CreateInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Domain      string `json:"domain"`
	LinkedInURL string `json:"linkedin_url"`
}

// UpdateInput carries a partial update. Nil fields stay untouched.
type UpdateInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Title       *string `json:"title"`
	Company     *string `json:"company"`
	Domain      *string `json:"domain"`
	LinkedInURL *string `json:"linkedin_url"`
	SalesStatus *string `json:"sales_status"`
	Notes       *string `json:"notes"`
}

// Service implements lead management on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a lead service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create upserts a lead. A non-empty LinkedIn URL identifies the lead;
// otherwise the case-insensitive (domain, first, last, company) tuple
// does. On a hit, non-empty incoming fields replace the stored ones.
func (s *Service) Create(ctx context.Context, workspaceID int64, in CreateInput) (*domain.Lead, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.Domain = strings.TrimSpace(in.Domain)
	in.LinkedInURL = strings.TrimSpace(in.LinkedInURL)

	if in.Domain == "" && in.LinkedInURL == "" {
		return nil, fmt.Errorf("domain or linkedin_url is required")
	}

	existing, err := s.findExisting(ctx, workspaceID, in)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		f := UpdateFields{}
		setIfNonEmpty(&f.FirstName, in.FirstName)
		setIfNonEmpty(&f.LastName, in.LastName)
		setIfNonEmpty(&f.Title, in.Title)
		setIfNonEmpty(&f.Company, in.Company)
		setIfNonEmpty(&f.Domain, in.Domain)
		setIfNonEmpty(&f.LinkedInURL, in.LinkedInURL)
		if err := s.repo.Update(ctx, workspaceID, existing.ID, f); err != nil {
			return nil, err
		}
		return s.repo.GetByID(ctx, workspaceID, existing.ID)
	}

	lead := &domain.Lead{
		WorkspaceID:        workspaceID,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Title:              in.Title,
		Company:            in.Company,
		Domain:             in.Domain,
		LinkedInURL:        in.LinkedInURL,
		VerificationStatus: domain.VerificationPending,
		SalesStatus:        domain.SalesNew,
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *Service) findExisting(ctx context.Context, workspaceID int64, in CreateInput) (*domain.Lead, error) {
	if in.LinkedInURL != "" {
		return s.repo.FindByLinkedIn(ctx, workspaceID, in.LinkedInURL)
	}
	return s.repo.FindByIdentity(ctx, workspaceID,
		normalize(in.Domain), normalize(in.FirstName), normalize(in.LastName), normalize(in.Company))
}

// Get fetches one lead scoped to the workspace.
func (s *Service) Get(ctx context.Context, workspaceID, id int64) (*domain.Lead, error) {
	return s.repo.GetByID(ctx, workspaceID, id)
}

// List returns a filtered page of workspace leads and the total count.
func (s *Service) List(ctx context.Context, workspaceID int64, f ListFilter) ([]domain.Lead, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	return s.repo.List(ctx, workspaceID, f)
}

// Update applies a partial update. String fields are trimmed; domain is
// lowercased. Returns the updated lead.
func (s *Service) Update(ctx context.Context, workspaceID, id int64, in UpdateInput) (*domain.Lead, error) {
	f := UpdateFields{
		FirstName:   trimmed(in.FirstName),
		LastName:    trimmed(in.LastName),
		Title:       trimmed(in.Title),
		Company:     trimmed(in.Company),
		LinkedInURL: trimmed(in.LinkedInURL),
		SalesStatus: trimmed(in.SalesStatus),
		Notes:       trimmed(in.Notes),
	}
	if in.Domain != nil {
		d := strings.ToLower(strings.TrimSpace(*in.Domain))
		f.Domain = &d
	}
	if err := s.repo.Update(ctx, workspaceID, id, f); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, workspaceID, id)
}

// EnsureVerifiable loads a lead and confirms a verify job may be
// enqueued for it. Returns ErrNotFound or ErrOptedOut otherwise.
func (s *Service) EnsureVerifiable(ctx context.Context, workspaceID, id int64) (*domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if lead.OptOut {
		return nil, ErrOptedOut
	}
	return lead, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func setIfNonEmpty(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

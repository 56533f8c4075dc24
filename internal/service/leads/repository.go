package leads

import (
	"context"

	"github.com/ignite/mailcheck/internal/domain"
)

// ListFilter narrows and pages a lead listing. Zero values mean "no
// filter"; Search matches first name, last name, company, or best email.
type ListFilter struct {
	Domain             string
	VerificationStatus string
	SalesStatus        string
	Search             string
	Page               int
	PageSize           int
}

// UpdateFields selects which columns an update writes. Nil fields stay
// untouched.
type UpdateFields struct {
	FirstName   *string
	LastName    *string
	Title       *string
	Company     *string
	Domain      *string
	LinkedInURL *string
	SalesStatus *string
	Notes       *string
}

// Repository defines the data access contract for leads.
type Repository interface {
	// Create inserts a lead and fills in its row ID.
	Create(ctx context.Context, lead *domain.Lead) error

	// GetByID fetches one lead scoped to a workspace. Returns
	// ErrNotFound if no such lead exists in the workspace.
	GetByID(ctx context.Context, workspaceID, id int64) (*domain.Lead, error)

	// FindByLinkedIn returns the workspace's lead with the given
	// LinkedIn URL, or ErrNotFound.
	FindByLinkedIn(ctx context.Context, workspaceID int64, url string) (*domain.Lead, error)

	// FindByIdentity returns the workspace's lead matching the
	// case-insensitive (domain, first, last, company) tuple, or
	// ErrNotFound. Arguments are expected pre-normalized.
	FindByIdentity(ctx context.Context, workspaceID int64, domainName, firstName, lastName, company string) (*domain.Lead, error)

	// Update writes the selected fields. Returns ErrNotFound if the
	// workspace has no such lead.
	Update(ctx context.Context, workspaceID, id int64, f UpdateFields) error

	// List returns a filtered page of workspace leads plus the total
	// match count, most recently updated first.
	List(ctx context.Context, workspaceID int64, f ListFilter) ([]domain.Lead, int, error)
}

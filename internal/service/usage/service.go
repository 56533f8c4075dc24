package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/mailcheck/internal/domain"
)

// Plan names. Unknown plans get free limits.
const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanTeam = "team"
)

// Limits is a plan's monthly allowance.
type Limits struct {
	VerificationsPerMonth int
	MaxAPIKeys            int
}

var planLimits = map[string]Limits{
	PlanFree: {VerificationsPerMonth: 50, MaxAPIKeys: 1},
	PlanPro:  {VerificationsPerMonth: 500, MaxAPIKeys: 5},
	PlanTeam: {VerificationsPerMonth: 2000, MaxAPIKeys: 20},
}

// PlanLimits returns the allowances for a plan name.
func PlanLimits(plan string) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// Summary is the GET /usage response payload.
type Summary struct {
	Period             string `json:"period"`
	Verifications      int    `json:"verifications"`
	VerificationsLimit int    `json:"verifications_limit"`
	Exports            int    `json:"exports"`
	Plan               string `json:"plan"`
}

// QuotaExceededError reports a workspace over its monthly verification
// allowance.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Verification quota exceeded (%d/%d this month)", e.Used, e.Limit)
}

// Service implements usage accounting. It is safe for concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a usage service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Period returns the current billing period key, "YYYY-MM" in UTC.
func (s *Service) Period() string {
	return s.now().UTC().Format("2006-01")
}

// IncrementVerification counts one verification for the current period
// and returns the new count.
func (s *Service) IncrementVerification(ctx context.Context, workspaceID int64) (int, error) {
	n, err := s.repo.IncrementVerifications(ctx, workspaceID, s.Period())
	if err != nil {
		return 0, fmt.Errorf("increment verifications: %w", err)
	}
	return n, nil
}

// IncrementExport counts one export for the current period and returns
// the new count.
func (s *Service) IncrementExport(ctx context.Context, workspaceID int64) (int, error) {
	n, err := s.repo.IncrementExports(ctx, workspaceID, s.Period())
	if err != nil {
		return 0, fmt.Errorf("increment exports: %w", err)
	}
	return n, nil
}

// Current returns the workspace's counts for the current period.
func (s *Service) Current(ctx context.Context, workspaceID int64) (verifications, exports int, err error) {
	row, err := s.repo.Get(ctx, workspaceID, s.Period())
	if err != nil {
		return 0, 0, fmt.Errorf("load usage: %w", err)
	}
	if row == nil {
		return 0, 0, nil
	}
	return row.VerificationsCount, row.ExportsCount, nil
}

// Summarize builds the GET /usage payload for a workspace.
func (s *Service) Summarize(ctx context.Context, ws *domain.Workspace) (*Summary, error) {
	verifications, exports, err := s.Current(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	limits := PlanLimits(ws.Plan)
	return &Summary{
		Period:             s.Period(),
		Verifications:      verifications,
		VerificationsLimit: limits.VerificationsPerMonth,
		Exports:            exports,
		Plan:               ws.Plan,
	}, nil
}

// CheckVerificationQuota returns QuotaExceededError when the workspace
// has used up its plan's monthly verifications.
func (s *Service) CheckVerificationQuota(ctx context.Context, ws *domain.Workspace) error {
	verifications, _, err := s.Current(ctx, ws.ID)
	if err != nil {
		return err
	}
	limit := PlanLimits(ws.Plan).VerificationsPerMonth
	if verifications >= limit {
		return &QuotaExceededError{Used: verifications, Limit: limit}
	}
	return nil
}

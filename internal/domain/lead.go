package domain

import "time"

// VerificationStatus grades how much we trust a discovered mailbox.
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationValid   VerificationStatus = "valid"
	VerificationRisky   VerificationStatus = "risky"
	VerificationUnknown VerificationStatus = "unknown"
	VerificationInvalid VerificationStatus = "invalid"
)

// StatusRank orders verdicts for best-candidate selection: a higher rank wins
// a score tie. Unrecognized statuses rank lowest.
func StatusRank(s VerificationStatus) int {
	switch s {
	case VerificationValid:
		return 3
	case VerificationRisky:
		return 2
	case VerificationUnknown:
		return 1
	default:
		return 0
	}
}

// SalesStatus tracks where a lead sits in the outreach funnel.
type SalesStatus string

const (
	SalesNew          SalesStatus = "New"
	SalesContacted    SalesStatus = "Contacted"
	SalesReplied      SalesStatus = "Replied"
	SalesInterested   SalesStatus = "Interested"
	SalesNotNow       SalesStatus = "NotNow"
	SalesUnsubscribed SalesStatus = "Unsubscribed"
)

// Lead is a person whose mailbox we try to discover and verify.
// Verification fields (EmailBest through WebMentioned) are written only by
// the job executor; naming fields are owned by lead management.
type Lead struct {
	ID          int64  `json:"id" db:"id"`
	WorkspaceID int64  `json:"workspace_id" db:"workspace_id"`
	FirstName   string `json:"first_name" db:"first_name"`
	LastName    string `json:"last_name" db:"last_name"`
	Title       string `json:"title,omitempty" db:"title"`
	Company     string `json:"company,omitempty" db:"company"`
	Domain      string `json:"domain" db:"domain"`
	LinkedInURL string `json:"linkedin_url,omitempty" db:"linkedin_url"`

	EmailBest          string             `json:"email_best" db:"email_best"`
	EmailCandidates    []string           `json:"email_candidates,omitempty" db:"email_candidates"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	ConfidenceScore    int                `json:"confidence_score" db:"confidence_score"`
	MXFound            bool               `json:"mx_found" db:"mx_found"`
	CatchAll           bool               `json:"catch_all" db:"catch_all"`
	SMTPCheck          bool               `json:"smtp_check" db:"smtp_check"`
	Notes              string             `json:"notes,omitempty" db:"notes"`
	WebMentioned       bool               `json:"web_mentioned" db:"web_mentioned"`

	SalesStatus SalesStatus `json:"sales_status" db:"sales_status"`

	OptOut   bool       `json:"opt_out" db:"opt_out"`
	OptOutAt *time.Time `json:"opt_out_at,omitempty" db:"opt_out_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LeadVerification carries the fields the executor writes back onto a lead
// after a completed verification.
type LeadVerification struct {
	EmailCandidates []string
	EmailBest       string
	Status          VerificationStatus
	ConfidenceScore int
	MXFound         bool
	CatchAll        bool
	SMTPCheck       bool
	Notes           string
	WebMentioned    bool
}

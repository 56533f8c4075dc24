package verify

import "github.com/ignite/mailcheck/internal/domain"

// Result is the outcome of verifying a single address. CatchAll is nil
// when no catch-all probe reached a conclusive answer, so callers can
// tell "not catch-all" apart from "never checked".
type Result struct {
	Email           string                    `json:"email"`
	Status          domain.VerificationStatus `json:"status"`
	Reason          string                    `json:"reason"`
	ConfidenceScore int                       `json:"confidence_score"`

	MXFound      bool `json:"mx_found"`
	SPFPresent   bool `json:"spf_present"`
	DMARCPresent bool `json:"dmarc_present"`

	CatchAll      *bool  `json:"catch_all"`
	SMTPAttempted bool   `json:"smtp_attempted"`
	SMTPBlocked   bool   `json:"smtp_blocked"`
	SMTPCodeMsg   string `json:"smtp_code_msg,omitempty"`

	Provider     string `json:"provider"`
	WebMentioned bool   `json:"web_mentioned"`

	Signals []string `json:"signals"`
}

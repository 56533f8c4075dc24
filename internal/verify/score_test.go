package verify

import (
	"strings"
	"testing"

	"github.com/ignite/mailcheck/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestScoreAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		in         scoreInputs
		wantScore  int
		wantStatus domain.VerificationStatus
		wantReason string
	}{
		{
			name: "accepted no catch-all is valid",
			in: scoreInputs{
				mxFound: true, spfPresent: true, dmarcPresent: true,
				provider: "google", smtpAttempted: true, acceptedAny: true,
				catchAll:  boolPtr(false),
				detailAny: "mx1.example.com: RCPT accepted (250)",
			},
			wantScore:  100, // 35+20+10+10+10+25 clamped
			wantStatus: domain.VerificationValid,
			wantReason: "MX ok | SPF | DMARC | provider:google | no catch-all | SMTP: mx1.example.com: RCPT accepted (250)",
		},
		{
			name: "accepted behind catch-all is risky",
			in: scoreInputs{
				mxFound: true, smtpAttempted: true, acceptedAny: true,
				catchAll:  boolPtr(true),
				detailAny: "mx1.example.com: RCPT accepted (250)",
			},
			wantScore:  55, // 35+20-10+10
			wantStatus: domain.VerificationRisky,
		},
		{
			name: "hard rejection is invalid with floor",
			in: scoreInputs{
				mxFound: true, smtpAttempted: true,
				catchAll:  boolPtr(false),
				detailAny: "mx1.example.com: Rejected (550)",
			},
			wantScore:  25, // 35+20-30
			wantStatus: domain.VerificationInvalid,
			wantReason: "MX ok | no catch-all | SMTP rejected: mx1.example.com: Rejected (550)",
		},
		{
			name: "temporary failure is unknown",
			in: scoreInputs{
				mxFound: true, smtpAttempted: true,
				detailAny: "mx1.example.com: Temporary failure (451)",
			},
			wantScore:  55,
			wantStatus: domain.VerificationUnknown,
		},
		{
			name: "smtp error is unknown",
			in: scoreInputs{
				mxFound: true, smtpAttempted: true,
				detailAny: "mx1.example.com: SMTP error: connect timeout",
			},
			wantScore:  55,
			wantStatus: domain.VerificationUnknown,
		},
		{
			name: "blocked with dns signals is risky",
			in: scoreInputs{
				mxFound: true, spfPresent: true, dmarcPresent: true,
				provider: "microsoft", smtpBlocked: true,
			},
			wantScore:  85, // 35+20+10+10+10
			wantStatus: domain.VerificationRisky,
			wantReason: "MX ok | SPF | DMARC | provider:microsoft | SMTP blocked",
		},
		{
			name:       "blocked with bare mx gets floor of 50",
			in:         scoreInputs{mxFound: true, smtpBlocked: true},
			wantScore:  55, // 35+20, already above the floor
			wantStatus: domain.VerificationRisky,
		},
		{
			name:       "blocked without mx is unknown",
			in:         scoreInputs{smtpBlocked: true},
			wantScore:  35,
			wantStatus: domain.VerificationUnknown,
			wantReason: "SMTP blocked",
		},
		{
			name:       "not attempted with mx is risky",
			in:         scoreInputs{mxFound: true},
			wantScore:  55,
			wantStatus: domain.VerificationRisky,
			wantReason: "MX ok | SMTP not attempted",
		},
		{
			name:       "not attempted without mx is unknown",
			in:         scoreInputs{},
			wantScore:  35,
			wantStatus: domain.VerificationUnknown,
			wantReason: "SMTP not attempted",
		},
		{
			name: "unknown provider gets no bonus",
			in: scoreInputs{
				mxFound: true, provider: "ovh", smtpAttempted: true, acceptedAny: true,
				detailAny: "mx1: RCPT accepted (250)",
			},
			wantScore:  80, // 35+20+25, no provider bonus for ovh
			wantStatus: domain.VerificationValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, status, reason := scoreAndStatus(tt.in)
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d", score, tt.wantScore)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			if tt.wantReason != "" && reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestScoreAndStatus_RejectionFloor(t *testing.T) {
	// A rejection with no other signals cannot go below 5.
	score, status, _ := scoreAndStatus(scoreInputs{
		mxFound: false, smtpAttempted: true,
		detailAny: "mx1: Rejected (550)",
	})
	if score != 5 {
		t.Errorf("score = %d, want 5", score)
	}
	if status != domain.VerificationInvalid {
		t.Errorf("status = %s, want invalid", status)
	}
}

func TestScoreAndStatus_ReasonJoinsWithPipes(t *testing.T) {
	_, _, reason := scoreAndStatus(scoreInputs{
		mxFound: true, spfPresent: true, smtpBlocked: true,
	})
	if !strings.Contains(reason, " | ") {
		t.Errorf("reason %q should join parts with pipes", reason)
	}
}

package verify

import (
	"strings"

	"github.com/ignite/mailcheck/internal/domain"
)

// baseScore is the starting confidence before any signal contributes.
const baseScore = 35

// scoreInputs are the collected signals for one address.
type scoreInputs struct {
	mxFound       bool
	spfPresent    bool
	dmarcPresent  bool
	provider      string
	smtpBlocked   bool
	smtpAttempted bool
	acceptedAny   bool
	catchAll      *bool
	detailAny     string
}

// scoreAndStatus turns signals into (confidence, status, reason).
//
// Additive weights: MX +20, SPF +10, DMARC +10, known provider +10,
// SMTP accept +25 (or +10 behind a catch-all), catch-all -10, hard
// rejection -30. When probing is blocked the DNS signals alone decide,
// and an MX-bearing domain never drops below 50.
func scoreAndStatus(in scoreInputs) (int, domain.VerificationStatus, string) {
	score := baseScore
	var parts []string

	if in.mxFound {
		score += 20
		parts = append(parts, "MX ok")
	}
	if in.spfPresent {
		score += 10
		parts = append(parts, "SPF")
	}
	if in.dmarcPresent {
		score += 10
		parts = append(parts, "DMARC")
	}
	if scoredProviders[in.provider] {
		score += 10
		parts = append(parts, "provider:"+in.provider)
	}

	var status domain.VerificationStatus
	switch {
	case in.smtpBlocked:
		parts = append(parts, "SMTP blocked")
		switch {
		case in.mxFound && (in.spfPresent || in.dmarcPresent || in.provider != ProviderOther):
			status = domain.VerificationRisky
		case in.mxFound:
			status = domain.VerificationRisky
			if score < 50 {
				score = 50
			}
		default:
			status = domain.VerificationUnknown
		}

	case in.smtpAttempted:
		if in.catchAll != nil {
			if *in.catchAll {
				score -= 10
				parts = append(parts, "catch-all")
			} else {
				parts = append(parts, "no catch-all")
			}
		}

		switch {
		case in.acceptedAny && (in.catchAll == nil || !*in.catchAll):
			score += 25
			status = domain.VerificationValid
			parts = append(parts, "SMTP: "+in.detailAny)
		case in.acceptedAny:
			score += 10
			status = domain.VerificationRisky
			parts = append(parts, "SMTP: "+in.detailAny)
		case containsAny(in.detailAny, "SMTP error", "Temporary", "Timeout"):
			status = domain.VerificationUnknown
			parts = append(parts, "SMTP: "+in.detailAny)
		default:
			// Hard rejection (5xx)
			score -= 30
			if score < 5 {
				score = 5
			}
			status = domain.VerificationInvalid
			parts = append(parts, "SMTP rejected: "+in.detailAny)
		}

	default:
		parts = append(parts, "SMTP not attempted")
		if in.mxFound {
			status = domain.VerificationRisky
		} else {
			status = domain.VerificationUnknown
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, status, strings.Join(parts, " | ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

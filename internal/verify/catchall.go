package verify

import (
	"context"
	"strings"

	"github.com/ignite/mailcheck/internal/joblog"
)

// DetectCatchAll probes the first two MX hosts with a random mailbox.
// A server that accepts it accepts anything, so an accepted candidate
// on that domain proves nothing about the mailbox existing.
//
// Returns (catchAll, attempted, reason): attempted is false when no
// host gave a usable answer, in which case catchAll is meaningless and
// the caller must treat the question as unanswered.
func (p *Prober) DetectCatchAll(ctx context.Context, mxHosts []string, domain, mailFrom string, sink joblog.Sink) (bool, bool, string) {
	testEmail := p.randLocal() + "@" + domain
	sink.Emit(joblog.CodeDebugCatchallChecking, joblog.Params{"test_email": testEmail})

	hosts := mxHosts
	if len(hosts) > 2 {
		hosts = hosts[:2]
	}
	for _, mx := range hosts {
		sink.Emit(joblog.CodeDebugCatchallTesting, joblog.Params{"mx_host": mx})

		accepted, detail, short := p.Probe(ctx, mx, testEmail, mailFrom, sink)

		resultDetail := short
		if resultDetail == "" {
			resultDetail = detail
		}
		sink.Emit(joblog.CodeDebugCatchallResult, joblog.Params{
			"mx_host":  mx,
			"accepted": accepted,
			"detail":   resultDetail,
		})

		if accepted {
			return true, true, "Random RCPT accepted on " + mx + ": " + detail
		}
		if strings.Contains(detail, "SMTP error") || strings.Contains(detail, "Temporary") {
			continue
		}
		return false, true, "Random RCPT rejected on " + mx + ": " + detail
	}

	sink.Emit(joblog.CodeDebugCatchallInconclusive, nil)
	return false, false, "Could not reliably probe catch-all"
}

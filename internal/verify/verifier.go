package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
)

// candidatesPreviewLimit caps how many candidates the generation log
// line spells out.
const candidatesPreviewLimit = 10

// Config assembles a Verifier for one workspace's resolved settings.
type Config struct {
	MailFrom    string
	SMTPTimeout time.Duration
	DNSTimeout  time.Duration
	Sentinel    BlockSentinel
	Searcher    *WebSearcher
}

// Verifier runs the verification pipeline for single addresses and for
// candidate sets.
type Verifier struct {
	resolver *Resolver
	prober   *Prober
	sentinel BlockSentinel
	searcher *WebSearcher
	mailFrom string
}

// New builds a Verifier. Zero timeouts fall back to the defaults, a nil
// sentinel disables outbound-block handling, and a nil searcher
// disables web mentions.
func New(cfg Config) *Verifier {
	mailFrom := cfg.MailFrom
	if mailFrom == "" {
		mailFrom = DefaultMailFrom
	}
	resolver := NewResolver(cfg.DNSTimeout)
	return &Verifier{
		resolver: resolver,
		prober:   NewProber(resolver, cfg.Sentinel, cfg.SMTPTimeout),
		sentinel: cfg.Sentinel,
		searcher: cfg.Searcher,
		mailFrom: mailFrom,
	}
}

// VerifyEmail checks one address: format, disposable domain, MX,
// SPF/DMARC, provider, catch-all, then RCPT probes on the first two MX
// hosts. When the sentinel reports outbound SMTP as blocked, the DNS
// signals alone produce the verdict.
func (v *Verifier) VerifyEmail(ctx context.Context, email string, sink joblog.Sink) Result {
	blocked := v.sentinel != nil && v.sentinel.IsBlocked(ctx)

	at := strings.Index(email, "@")
	if at < 0 {
		return invalidResult(email, "Malformed email", 0, blocked)
	}
	local := strings.TrimSpace(email[:at])
	domainName := strings.ToLower(strings.TrimSpace(email[at+1:]))

	if local == "" || domainName == "" || !strings.Contains(domainName, ".") || strings.Contains(email, " ") {
		return invalidResult(email, "Invalid email format", 0, blocked)
	}

	if IsDisposableDomain(domainName) {
		sink.Emit(joblog.CodeDebugDisposableDomain, joblog.Params{"domain": domainName})
		return invalidResult(email, "Disposable or temporary domain", 0, blocked)
	}

	mx, err := v.resolver.MXLookup(ctx, domainName)
	if err != nil {
		sink.Emit(joblog.CodeDebugMXLookupFailed, joblog.Params{
			"domain":     domainName,
			"error_type": dnsErrorType(err),
			"error":      err.Error(),
		})
		return invalidResult(email, "No MX records (or DNS failed)", 5, blocked)
	}

	mxHosts := make([]string, len(mx))
	pairs := make([]string, len(mx))
	for i, rec := range mx {
		mxHosts[i] = rec.Host
		pairs[i] = fmt.Sprintf("%d=%s", rec.Pref, rec.Host)
	}
	sink.Emit(joblog.CodeDebugMXLookup, joblog.Params{
		"domain": domainName,
		"count":  len(mx),
		"hosts":  strings.Join(pairs, ", "),
	})

	provider := DetectProvider(mx)
	if provider != ProviderOther {
		sink.Emit(joblog.CodeDebugProviderDetected, joblog.Params{"provider": provider})
	}

	spfPresent, dmarcPresent := v.resolver.CheckSPFDMARC(ctx, domainName)
	sink.Emit(joblog.CodeDebugDNSSPFDMARC, joblog.Params{"spf": spfPresent, "dmarc": dmarcPresent})

	var (
		catchAll      *bool
		smtpAttempted bool
		acceptedAny   bool
		detailAny     string
		smtpShort     string
	)

	if blocked {
		sink.Emit(joblog.CodeDebugSMTPSkipped, nil)
	} else {
		caught, attempted, _ := v.prober.DetectCatchAll(ctx, mxHosts, domainName, v.mailFrom, sink)
		if attempted {
			catchAll = &caught
		}

		probeHosts := mxHosts
		if len(probeHosts) > 2 {
			probeHosts = probeHosts[:2]
		}
		for _, mxh := range probeHosts {
			sink.Emit(joblog.CodeDebugRcptVerifying, joblog.Params{"email": email, "mx_host": mxh})

			accepted, detail, short := v.prober.Probe(ctx, mxh, email, v.mailFrom, sink)
			smtpAttempted = true
			detailAny = mxh + ": " + detail
			if short != "" {
				smtpShort = short
			}
			if accepted {
				acceptedAny = true
				break
			}
			if strings.Contains(detail, "Temporary") || strings.Contains(detail, "SMTP error") {
				continue
			}
			if strings.Contains(detail, "Rejected") {
				break
			}
		}
	}

	var signals []string
	signals = append(signals, "mx")
	if spfPresent {
		signals = append(signals, "spf")
	}
	if dmarcPresent {
		signals = append(signals, "dmarc")
	}
	if provider != ProviderOther {
		signals = append(signals, "provider:"+provider)
	}
	if blocked {
		signals = append(signals, "smtp_blocked")
	}

	score, status, reason := scoreAndStatus(scoreInputs{
		mxFound:       true,
		spfPresent:    spfPresent,
		dmarcPresent:  dmarcPresent,
		provider:      provider,
		smtpBlocked:   blocked,
		smtpAttempted: smtpAttempted,
		acceptedAny:   acceptedAny,
		catchAll:      catchAll,
		detailAny:     detailAny,
	})

	return Result{
		Email:           email,
		Status:          status,
		Reason:          reason,
		ConfidenceScore: score,
		MXFound:         true,
		SPFPresent:      spfPresent,
		DMARCPresent:    dmarcPresent,
		CatchAll:        catchAll,
		SMTPAttempted:   smtpAttempted,
		SMTPBlocked:     blocked,
		SMTPCodeMsg:     smtpShort,
		Provider:        provider,
		Signals:         signals,
	}
}

func invalidResult(email, reason string, score int, blocked bool) Result {
	return Result{
		Email:           email,
		Status:          domain.VerificationInvalid,
		Reason:          reason,
		ConfidenceScore: score,
		SMTPBlocked:     blocked,
		Provider:        ProviderOther,
	}
}

// PickOptions adjusts candidate generation and the optional web mention
// lookup for one VerifyAndPickBest run.
type PickOptions struct {
	EnabledPatternIndices []int
	AllowNoLastname       bool
	CustomPatterns        []string
	WebSearchProvider     string
	WebSearchAPIKey       string
	// OnWebSearch fires once per performed search, for usage counting.
	OnWebSearch func(provider string)
}

// VerifyAndPickBest generates candidates for the lead, verifies each,
// and returns all candidates, the winning address, its result, and the
// per-candidate probe map. The winner is the highest (score, status
// rank) pair; earlier candidates win ties because common patterns are
// ordered by prevalence.
func (v *Verifier) VerifyAndPickBest(ctx context.Context, firstName, lastName, domainName string, opts PickOptions, sink joblog.Sink) ([]string, string, *Result, map[string]domain.ProbeResult) {
	candidates := GenerateCandidates(firstName, lastName, domainName, CandidateOptions{
		EnabledPatternIndices: opts.EnabledPatternIndices,
		AllowNoLastname:       opts.AllowNoLastname,
		CustomPatterns:        opts.CustomPatterns,
	})
	if len(candidates) == 0 {
		return nil, "", nil, map[string]domain.ProbeResult{}
	}

	sink.Emit(joblog.CodeDebugConfig, joblog.Params{
		"mail_from":    v.mailFrom,
		"smtp_timeout": int(v.prober.timeout.Seconds()),
		"dns_timeout":  v.resolver.Timeout.Seconds(),
	})

	preview := strings.Join(candidates[:min(len(candidates), candidatesPreviewLimit)], ", ")
	if len(candidates) > candidatesPreviewLimit {
		preview += "..."
	}
	sink.Emit(joblog.CodeDebugCandidatesGenerated, joblog.Params{
		"domain":  domainName,
		"count":   len(candidates),
		"preview": preview,
	})

	var (
		bestEmail string
		best      *Result
	)
	probes := make(map[string]domain.ProbeResult, len(candidates))
	total := len(candidates)

	for i, cand := range candidates {
		sink.Emit(joblog.CodeDebugCandidateHeader, joblog.Params{"index": i + 1, "total": total, "email": cand})
		sink.Emit(joblog.CodeVerifyCandidate, joblog.Params{"index": i + 1, "total": total, "email": cand})

		res := v.VerifyEmail(ctx, cand, sink)

		probes[cand] = domain.ProbeResult{
			Accepted:        (res.Status == domain.VerificationValid || res.Status == domain.VerificationRisky) && res.MXFound,
			Detail:          res.Reason,
			Status:          res.Status,
			ConfidenceScore: res.ConfidenceScore,
		}

		if best == nil || beats(res, *best) {
			r := res
			best = &r
			bestEmail = cand
		}
	}

	if best != nil && bestEmail != "" {
		v.webMentionPass(ctx, bestEmail, best, opts, sink)
	}

	if bestEmail == "" {
		bestEmail = candidates[0]
	}
	return candidates, bestEmail, best, probes
}

// beats reports whether a strictly outranks b.
func beats(a, b Result) bool {
	if a.ConfidenceScore != b.ConfidenceScore {
		return a.ConfidenceScore > b.ConfidenceScore
	}
	return domain.StatusRank(a.Status) > domain.StatusRank(b.Status)
}

// webMentionPass optionally searches public sources for the winning
// address and upgrades the result in place when it is found.
func (v *Verifier) webMentionPass(ctx context.Context, bestEmail string, best *Result, opts PickOptions, sink joblog.Sink) {
	provider := opts.WebSearchProvider
	apiKey := opts.WebSearchAPIKey

	if provider == "" || apiKey == "" {
		if provider == "" {
			sink.Emit(joblog.CodeDebugWebSkippedNoProvider, nil)
		} else {
			sink.Emit(joblog.CodeDebugWebSkippedNoKey, joblog.Params{"provider": provider})
		}
		return
	}
	if v.searcher == nil {
		return
	}

	sink.Emit(joblog.CodeDebugWebSearching, joblog.Params{"provider": provider})

	found, errMsg := v.searcher.CheckMentioned(ctx, bestEmail, provider, apiKey)
	if opts.OnWebSearch != nil {
		opts.OnWebSearch(provider)
	}

	switch {
	case found:
		best.WebMentioned = true
		best.Reason = strings.TrimRight(best.Reason, " \t\r\n") + " | Email found in public sources."
		best.Signals = append(best.Signals, "web")
		sink.Emit(joblog.CodeDebugWebFound, nil)
	case errMsg != "":
		sink.Emit(joblog.CodeDebugWebError, joblog.Params{"error": errMsg})
	default:
		sink.Emit(joblog.CodeDebugWebNotFound, nil)
	}
}

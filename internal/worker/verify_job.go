package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
	"github.com/ignite/mailcheck/internal/pkg/logger"
	"github.com/ignite/mailcheck/internal/service/leads"
	"github.com/ignite/mailcheck/internal/verify"
)

// maxLoggedCandidates caps per-candidate log lines on large candidate
// sets; the full set still lands in the verification log row.
const maxLoggedCandidates = 15

// runVerify executes one verify job end to end: load the lead, resolve
// the workspace config, run the candidate pipeline, persist the audit
// record, write the outcome back onto the lead, and finish the job.
func (e *Executor) runVerify(ctx context.Context, job *claimedJob) {
	sink := &jobSink{ctx: ctx, repo: e.deps.Jobs, jobID: job.id}

	if err := e.setProgress(ctx, job.id, 10); err != nil {
		log.Printf("[JobExecutor] Job %s: %v", job.jobID, err)
	}

	if !job.leadID.Valid {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": "Job has no lead"}, "Job has no lead")
		return
	}
	leadID := job.leadID.Int64

	sink.Emit(joblog.CodeJobStarted, joblog.Params{
		"job_type": "verify", "lead_id": leadID, "workspace_id": job.workspaceID,
	})
	sink.Emit(joblog.CodeJobStartingVerification, nil)
	sink.Emit(joblog.CodeDebugWorkerProcessing, joblog.Params{
		"job_id": job.jobID, "lead_id": leadID, "workspace_id": job.workspaceID,
	})

	lead, err := e.deps.Leads.GetByID(ctx, job.workspaceID, leadID)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			e.markFailed(ctx, job, joblog.CodeErrorLeadNotFound, joblog.Params{"lead_id": leadID}, "Lead not found")
		} else {
			e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		}
		return
	}
	if lead.OptOut {
		e.markFailed(ctx, job, joblog.CodeErrorLeadOptedOut, joblog.Params{"lead_id": leadID}, "Lead opted out")
		return
	}

	sink.Emit(joblog.CodeDebugLeadLoaded, joblog.Params{
		"lead_id": lead.ID, "domain": lead.Domain, "first_name": lead.FirstName, "last_name": lead.LastName,
	})
	sink.Emit(joblog.CodeVerifyDomain, joblog.Params{"domain": lead.Domain})
	sink.Emit(joblog.CodeVerifyGeneratingCandidates, nil)
	sink.Emit(joblog.CodeVerifyCheckingMailServer, nil)

	cfg, err := e.deps.Config.Resolve(ctx, job.workspaceID)
	if err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	sink.Emit(joblog.CodeDebugCallingVerifier, joblog.Params{
		"first_name": lead.FirstName, "last_name": lead.LastName, "domain": lead.Domain,
	})

	verifier := verify.New(verify.Config{
		MailFrom:    cfg.MailFrom,
		SMTPTimeout: cfg.SMTPTimeout(),
		DNSTimeout:  cfg.DNSTimeout(),
		Sentinel:    e.deps.Sentinel,
		Searcher:    verify.NewWebSearcher(),
	})
	opts := verify.PickOptions{
		EnabledPatternIndices: cfg.EnabledPatternIndices,
		AllowNoLastname:       cfg.AllowNoLastname,
		CustomPatterns:        cfg.CustomPatterns,
		WebSearchProvider:     cfg.WebSearchProvider,
		WebSearchAPIKey:       cfg.WebSearchAPIKey,
		OnWebSearch: func(provider string) {
			if provider != "serper" {
				return
			}
			if _, err := e.deps.Config.IncrementSerperUsage(ctx, job.workspaceID); err != nil {
				sink.Emit(joblog.CodeDebugMXException, joblog.Params{"error": err.Error()})
			}
		},
	}

	candidates, bestEmail, best, probes := e.verifyFn(ctx, verifier, lead.FirstName, lead.LastName, lead.Domain, opts, sink)

	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Pool shutdown mid-job. Leave the row running; the reaper
			// reconciles it.
			return
		}
		fctx, fcancel := context.WithTimeout(context.Background(), finisherTimeout)
		defer fcancel()
		e.markFailed(fctx, job, joblog.CodeJobTimeout, joblog.Params{"reason": timeoutReason}, timeoutReason)
		return
	}
	if err := sink.firstErr(); err != nil {
		msg := truncate(err.Error(), 500)
		e.markFailed(ctx, job, joblog.CodeErrorGeneric, joblog.Params{"error": msg}, msg)
		return
	}

	sink.Emit(joblog.CodeDebugVerifierResult, joblog.Params{"count": len(candidates), "email": bestEmail})

	// Dedicated MX lookup for the audit record; the pipeline's own MX
	// results stay internal to it.
	var mxHosts []string
	mx, err := e.mxLookupFn(ctx, lead.Domain, cfg.DNSTimeout())
	if err != nil {
		sink.Emit(joblog.CodeDebugMXException, joblog.Params{"error": fmt.Sprintf("%T: %v", err, err)})
	} else {
		mxHosts = make([]string, 0, len(mx))
		for _, rec := range mx {
			mxHosts = append(mxHosts, rec.Host)
		}
		sink.Emit(joblog.CodeDebugMXLookup, joblog.Params{"count": len(mxHosts)})
	}

	if len(mxHosts) > 0 {
		sink.Emit(joblog.CodeVerifyMXRecords, joblog.Params{"hosts": strings.Join(mxHosts, ", ")})
	} else {
		sink.Emit(joblog.CodeVerifyMXNotFound, nil)
	}

	logged := 0
	for _, cand := range candidates {
		info, ok := probes[cand]
		if !ok {
			continue
		}
		if logged >= maxLoggedCandidates {
			sink.Emit(joblog.CodeDebugMoreCandidates, joblog.Params{"count": len(probes) - maxLoggedCandidates})
			break
		}
		sink.Emit(joblog.CodeDebugCandidateStatus, joblog.Params{
			"email": cand, "status": string(info.Status), "detail": truncate(info.Detail, 100),
		})
		logged++
	}

	bestStatus := domain.VerificationUnknown
	bestConfidence := 0
	var mxFound, catchAll, smtpCheck, webMentioned bool
	notes := ""
	if best != nil {
		bestStatus = best.Status
		bestConfidence = best.ConfidenceScore
		mxFound = best.MXFound
		catchAll = best.CatchAll != nil && *best.CatchAll
		smtpCheck = best.SMTPAttempted
		notes = best.Reason
		webMentioned = best.WebMentioned
	}

	vlog := &domain.VerificationLog{
		LeadID:         lead.ID,
		JobID:          &job.id,
		MXHosts:        mxHosts,
		ProbeResults:   probes,
		BestEmail:      bestEmail,
		BestStatus:     bestStatus,
		BestConfidence: bestConfidence,
	}
	if err := e.deps.Verifications.Create(ctx, vlog); err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	if err := e.deps.Leads.UpdateVerification(ctx, lead.ID, domain.LeadVerification{
		EmailCandidates: candidates,
		EmailBest:       bestEmail,
		Status:          bestStatus,
		ConfidenceScore: bestConfidence,
		MXFound:         mxFound,
		CatchAll:        catchAll,
		SMTPCheck:       smtpCheck,
		Notes:           notes,
		WebMentioned:    webMentioned,
	}); err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	if bestEmail != "" {
		sink.Emit(joblog.CodeVerifyCompleted, joblog.Params{"email": bestEmail})
		log.Printf("[JobExecutor] Job %s: lead %d best candidate %s (%s)",
			job.jobID, leadID, logger.RedactEmail(bestEmail), bestStatus)
	} else {
		sink.Emit(joblog.CodeVerifyNoEmailFound, nil)
	}
	sink.Emit(joblog.CodeJobCompleted, joblog.Params{"lead_id": leadID})

	result, _ := json.Marshal(map[string]any{
		"lead_id":             leadID,
		"email_best":          bestEmail,
		"verification_status": bestStatus,
	})
	if err := e.finishSucceeded(ctx, job.id, result); err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	// The job is terminal at this point; usage and webhook trouble is
	// logged, not reflected back onto its status.
	if _, err := e.deps.Usage.IncrementVerification(ctx, job.workspaceID); err != nil {
		log.Printf("[JobExecutor] Job %s: increment usage: %v", job.jobID, err)
	}
	if e.deps.Hooks != nil {
		err := e.deps.Hooks.Dispatch(ctx, job.workspaceID, domain.EventVerificationCompleted, map[string]any{
			"job_id":              job.jobID,
			"lead_id":             leadID,
			"email_best":          bestEmail,
			"verification_status": bestStatus,
			"confidence_score":    bestConfidence,
		})
		if err != nil {
			log.Printf("[JobExecutor] Job %s: dispatch webhook: %v", job.jobID, err)
		}
	}
}

package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/joblog"
)

// exportColumns is the fixed CSV header, in lead-field order.
var exportColumns = []string{
	"id", "first_name", "last_name", "title", "company", "domain", "linkedin_url",
	"email_best", "verification_status", "confidence_score", "sales_status",
	"created_at", "updated_at",
}

// runExport snapshots the workspace's leads as CSV into the job result.
// Opted-out leads are excluded. Export jobs carry no log stream; a
// failure lands on the job's error field only.
func (e *Executor) runExport(ctx context.Context, job *claimedJob) {
	if err := e.setProgress(ctx, job.id, 20); err != nil {
		log.Printf("[JobExecutor] Job %s: %v", job.jobID, err)
	}

	rows, err := e.deps.Leads.ListForExport(ctx, job.workspaceID)
	if err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(exportColumns)
	for _, l := range rows {
		w.Write([]string{
			strconv.FormatInt(l.ID, 10),
			l.FirstName, l.LastName, l.Title, l.Company, l.Domain, l.LinkedInURL,
			l.EmailBest, string(l.VerificationStatus), strconv.Itoa(l.ConfidenceScore),
			string(l.SalesStatus),
			exportTime(l.CreatedAt), exportTime(l.UpdatedAt),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	result, _ := json.Marshal(map[string]any{"csv": buf.String(), "row_count": len(rows)})
	if err := e.finishSucceeded(ctx, job.id, result); err != nil {
		e.markFailed(ctx, job, joblog.CodeJobFailed, joblog.Params{"reason": err.Error()}, err.Error())
		return
	}

	if e.deps.Hooks != nil {
		err := e.deps.Hooks.Dispatch(ctx, job.workspaceID, domain.EventExportCompleted, map[string]any{
			"job_id": job.jobID, "row_count": len(rows),
		})
		if err != nil {
			log.Printf("[JobExecutor] Job %s: dispatch webhook: %v", job.jobID, err)
		}
	}
}

func exportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

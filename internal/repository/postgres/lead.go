package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/leads"
)

// leadColumns is the full column list every lead query selects, in scan
// order for scanLead.
const leadColumns = `id, workspace_id, first_name, last_name, title, company, domain, linkedin_url,
	       email_best, email_candidates, verification_status, confidence_score,
	       mx_found, catch_all, smtp_check, notes, web_mentioned, sales_status,
	       opt_out, opt_out_at, created_at, updated_at`

// LeadRepo implements leads.Repository against PostgreSQL. It also
// carries the verification write-back and export listing used by the
// job workers.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

func scanLead(s interface{ Scan(...interface{}) error }) (*domain.Lead, error) {
	l := &domain.Lead{}
	var optOutAt sql.NullTime
	err := s.Scan(
		&l.ID, &l.WorkspaceID, &l.FirstName, &l.LastName, &l.Title, &l.Company, &l.Domain, &l.LinkedInURL,
		&l.EmailBest, pq.Array(&l.EmailCandidates), &l.VerificationStatus, &l.ConfidenceScore,
		&l.MXFound, &l.CatchAll, &l.SMTPCheck, &l.Notes, &l.WebMentioned, &l.SalesStatus,
		&l.OptOut, &optOutAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if optOutAt.Valid {
		l.OptOutAt = &optOutAt.Time
	}
	return l, nil
}

func (r *LeadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO leads
			(workspace_id, first_name, last_name, title, company, domain, linkedin_url,
			 verification_status, sales_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, lead.WorkspaceID, lead.FirstName, lead.LastName, lead.Title, lead.Company,
		lead.Domain, lead.LinkedInURL, lead.VerificationStatus, lead.SalesStatus,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (r *LeadRepo) GetByID(ctx context.Context, workspaceID, id int64) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND workspace_id = $2
	`, id, workspaceID)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, leads.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepo) FindByLinkedIn(ctx context.Context, workspaceID int64, url string) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE workspace_id = $1 AND linkedin_url = $2
		ORDER BY id
		LIMIT 1
	`, workspaceID, url)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, leads.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead by linkedin: %w", err)
	}
	return lead, nil
}

func (r *LeadRepo) FindByIdentity(ctx context.Context, workspaceID int64, domainName, firstName, lastName, company string) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE workspace_id = $1
		  AND LOWER(domain) = $2 AND LOWER(first_name) = $3
		  AND LOWER(last_name) = $4 AND LOWER(company) = $5
		ORDER BY id
		LIMIT 1
	`, workspaceID, domainName, firstName, lastName, company)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, leads.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead by identity: %w", err)
	}
	return lead, nil
}

func (r *LeadRepo) Update(ctx context.Context, workspaceID, id int64, f leads.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if f.FirstName != nil {
		add("first_name", *f.FirstName)
	}
	if f.LastName != nil {
		add("last_name", *f.LastName)
	}
	if f.Title != nil {
		add("title", *f.Title)
	}
	if f.Company != nil {
		add("company", *f.Company)
	}
	if f.Domain != nil {
		add("domain", *f.Domain)
	}
	if f.LinkedInURL != nil {
		add("linkedin_url", *f.LinkedInURL)
	}
	if f.SalesStatus != nil {
		add("sales_status", *f.SalesStatus)
	}
	if f.Notes != nil {
		add("notes", *f.Notes)
	}

	if len(sets) == 0 {
		// Nothing to write; still confirm the lead exists.
		_, err := r.GetByID(ctx, workspaceID, id)
		return err
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d AND workspace_id = $%d",
		strings.Join(sets, ", "), idx, idx+1)
	args = append(args, id, workspaceID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return leads.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) List(ctx context.Context, workspaceID int64, f leads.ListFilter) ([]domain.Lead, int, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	where := "WHERE workspace_id = $1"
	args := []interface{}{workspaceID}
	idx := 2

	if f.Domain != "" {
		where += fmt.Sprintf(" AND domain ILIKE $%d", idx)
		args = append(args, "%"+f.Domain+"%")
		idx++
	}
	if f.VerificationStatus != "" {
		where += fmt.Sprintf(" AND verification_status = $%d", idx)
		args = append(args, f.VerificationStatus)
		idx++
	}
	if f.SalesStatus != "" {
		where += fmt.Sprintf(" AND sales_status = $%d", idx)
		args = append(args, f.SalesStatus)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR company ILIKE $%d OR email_best ILIKE $%d)",
			idx, idx, idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	q := fmt.Sprintf("SELECT %s FROM leads %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d",
		leadColumns, where, idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *lead)
	}
	return out, total, nil
}

// ListForExport returns every lead in the workspace that has not opted
// out, in insertion order.
func (r *LeadRepo) ListForExport(ctx context.Context, workspaceID int64) ([]domain.Lead, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE workspace_id = $1 AND opt_out = FALSE
		ORDER BY id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list leads for export: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *lead)
	}
	return out, nil
}

// UpdateVerification writes the executor's verification outcome onto
// the lead.
func (r *LeadRepo) UpdateVerification(ctx context.Context, id int64, v domain.LeadVerification) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET email_candidates = $2, email_best = $3, verification_status = $4,
		    confidence_score = $5, mx_found = $6, catch_all = $7, smtp_check = $8,
		    notes = $9, web_mentioned = $10, updated_at = NOW()
		WHERE id = $1
	`, id, pq.Array(v.EmailCandidates), v.EmailBest, v.Status, v.ConfidenceScore,
		v.MXFound, v.CatchAll, v.SMTPCheck, v.Notes, v.WebMentioned)
	if err != nil {
		return fmt.Errorf("update lead verification: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/service/leads"
)

var leadTestColumns = []string{
	"id", "workspace_id", "first_name", "last_name", "title", "company", "domain", "linkedin_url",
	"email_best", "email_candidates", "verification_status", "confidence_score",
	"mx_found", "catch_all", "smtp_check", "notes", "web_mentioned", "sales_status",
	"opt_out", "opt_out_at", "created_at", "updated_at",
}

func leadRow(id int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(leadTestColumns).AddRow(
		id, int64(1), "John", "Doe", "CTO", "Acme", "acme.com", "",
		"john.doe@acme.com", []byte("{john@acme.com,john.doe@acme.com}"), "valid", 100,
		true, false, true, "MX ok | SPF | DMARC", false, "New",
		false, nil, now, now,
	)
}

func TestLeadRepo_GetByID(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM leads").
		WithArgs(int64(5), int64(1)).
		WillReturnRows(leadRow(5))

	lead, err := NewLeadRepo(db).GetByID(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if lead.EmailBest != "john.doe@acme.com" {
		t.Errorf("email_best = %q", lead.EmailBest)
	}
	if len(lead.EmailCandidates) != 2 || lead.EmailCandidates[1] != "john.doe@acme.com" {
		t.Errorf("email_candidates = %v", lead.EmailCandidates)
	}
	if lead.OptOutAt != nil {
		t.Errorf("opt_out_at = %v, want nil", lead.OptOutAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLeadRepo_GetByID_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM leads").
		WithArgs(int64(5), int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewLeadRepo(db).GetByID(context.Background(), 1, 5)
	if !errors.Is(err, leads.ErrNotFound) {
		t.Fatalf("err = %v, want leads.ErrNotFound", err)
	}
}

func TestLeadRepo_Create(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(int64(1), "John", "Doe", "CTO", "Acme", "acme.com", "", "pending", "New").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(12, now, now))

	lead := &domain.Lead{
		WorkspaceID:        1,
		FirstName:          "John",
		LastName:           "Doe",
		Title:              "CTO",
		Company:            "Acme",
		Domain:             "acme.com",
		VerificationStatus: domain.VerificationPending,
		SalesStatus:        domain.SalesNew,
	}
	if err := NewLeadRepo(db).Create(context.Background(), lead); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lead.ID != 12 {
		t.Errorf("ID = %d, want 12", lead.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLeadRepo_Update_WritesOnlySelectedFields(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE leads SET").
		WithArgs("VP Engineering", "acme.io", int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	title := "VP Engineering"
	domainName := "acme.io"
	err := NewLeadRepo(db).Update(context.Background(), 1, 5, leads.UpdateFields{
		Title:  &title,
		Domain: &domainName,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLeadRepo_Update_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE leads SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	title := "CTO"
	err := NewLeadRepo(db).Update(context.Background(), 1, 99, leads.UpdateFields{Title: &title})
	if !errors.Is(err, leads.ErrNotFound) {
		t.Fatalf("err = %v, want leads.ErrNotFound", err)
	}
}

func TestLeadRepo_List_AppliesFilters(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(1), "valid", "%doe%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM leads").
		WithArgs(int64(1), "valid", "%doe%", 20, 0).
		WillReturnRows(leadRow(5))

	out, total, err := NewLeadRepo(db).List(context.Background(), 1, leads.ListFilter{
		VerificationStatus: "valid",
		Search:             "doe",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(out) != 1 {
		t.Errorf("total = %d, len = %d", total, len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLeadRepo_ListForExport_SkipsOptedOut(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("opt_out = FALSE").
		WithArgs(int64(1)).
		WillReturnRows(leadRow(5))

	out, err := NewLeadRepo(db).ListForExport(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListForExport: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("len = %d, want 1", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLeadRepo_UpdateVerification(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE leads").
		WithArgs(int64(5), pq.Array([]string{"john@acme.com"}), "john@acme.com", "valid", 100,
			true, false, true, "MX ok | SPF", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewLeadRepo(db).UpdateVerification(context.Background(), 5, domain.LeadVerification{
		EmailCandidates: []string{"john@acme.com"},
		EmailBest:       "john@acme.com",
		Status:          domain.VerificationValid,
		ConfidenceScore: 100,
		MXFound:         true,
		SMTPCheck:       true,
		Notes:           "MX ok | SPF",
		WebMentioned:    true,
	})
	if err != nil {
		t.Fatalf("UpdateVerification: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

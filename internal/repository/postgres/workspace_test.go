package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/mailcheck/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func TestWorkspaceRepo_GetByAPIKey(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, slug, plan, api_key").
		WithArgs("wk_live_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "api_key", "created_at", "updated_at"}).
			AddRow(7, "Acme", "acme", "pro", "wk_live_abc", now, now))

	w, err := NewWorkspaceRepo(db).GetByAPIKey(context.Background(), "wk_live_abc")
	if err != nil {
		t.Fatalf("GetByAPIKey: %v", err)
	}
	if w.ID != 7 || w.Plan != "pro" {
		t.Errorf("workspace = %+v", w)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWorkspaceRepo_GetByAPIKey_Unknown(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, name, slug, plan, api_key").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := NewWorkspaceRepo(db).GetByAPIKey(context.Background(), "nope")
	if !errors.Is(err, ErrWorkspaceNotFound) {
		t.Fatalf("err = %v, want ErrWorkspaceNotFound", err)
	}
}

func TestWorkspaceRepo_Create(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO workspaces").
		WithArgs("Acme", "acme", "free", "wk_live_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	ws := domain.Workspace{Name: "Acme", Slug: "acme", Plan: "free", APIKey: "wk_live_abc"}
	err := NewWorkspaceRepo(db).Create(context.Background(), &ws)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.ID != 1 {
		t.Errorf("ID = %d, want filled", ws.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

package documents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/dbctx"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// single connection so the in-memory database is shared
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&domain.Document{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return NewRepo(gdb, log)
}

func testCtx() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

func TestCreateAssignsIDAndPendingStatus(t *testing.T) {
	repo := newTestRepo(t)

	doc, err := repo.Create(testCtx(), &domain.Document{
		FileName: "report.pdf",
		FilePath: "uploads/abc_report.pdf",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID == uuid.Nil {
		t.Fatalf("id not assigned")
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("status: want=%s got=%s", domain.StatusPending, doc.Status)
	}

	got, err := repo.GetByID(testCtx(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FileName != "report.pdf" || got.FilePath != "uploads/abc_report.pdf" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCreateNilDocument(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Create(testCtx(), nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("want apperr.ErrInvalidArgument, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetByID(testCtx(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want apperr.ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := newTestRepo(t)
	doc, err := repo.Create(testCtx(), &domain.Document{FileName: "a.txt", FilePath: "uploads/a.txt"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := repo.UpdateStatus(testCtx(), doc.ID, domain.StatusProcessing)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domain.StatusProcessing {
		t.Fatalf("status: want=%s got=%s", domain.StatusProcessing, updated.Status)
	}

	updated, err = repo.UpdateStatus(testCtx(), doc.ID, domain.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("status: want=%s got=%s", domain.StatusCompleted, updated.Status)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := newTestRepo(t)
	doc, err := repo.Create(testCtx(), &domain.Document{FileName: "a.txt", FilePath: "uploads/a.txt"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.UpdateStatus(testCtx(), doc.ID, "ARCHIVED"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("want apperr.ErrInvalidArgument, got %v", err)
	}
}

func TestUpdateStatusMissingDocument(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.UpdateStatus(testCtx(), uuid.New(), domain.StatusProcessing); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want apperr.ErrNotFound, got %v", err)
	}
}

func TestSetFailureRecordsMessage(t *testing.T) {
	repo := newTestRepo(t)
	doc, err := repo.Create(testCtx(), &domain.Document{FileName: "a.txt", FilePath: "uploads/a.txt"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.SetFailure(testCtx(), doc.ID, "extract", "extract: unreadable document format"); err != nil {
		t.Fatalf("SetFailure: %v", err)
	}
	got, err := repo.GetByID(testCtx(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusFailed {
		t.Fatalf("status: want=%s got=%s", domain.StatusFailed, got.Status)
	}
	if got.ProcessingError != "extract: unreadable document format" {
		t.Fatalf("processing_error: got=%q", got.ProcessingError)
	}
}

func TestSetFailureWritesDiagnostics(t *testing.T) {
	repo := newTestRepo(t)
	doc, err := repo.Create(testCtx(), &domain.Document{FileName: "a.txt", FilePath: "uploads/a.txt"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := time.Now().UTC().Add(-time.Second)
	if err := repo.SetFailure(testCtx(), doc.ID, "index", "index: backend unavailable"); err != nil {
		t.Fatalf("SetFailure: %v", err)
	}
	got, err := repo.GetByID(testCtx(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Diagnostics) == 0 {
		t.Fatalf("diagnostics not written")
	}

	var diag FailureDiagnostics
	if err := json.Unmarshal(got.Diagnostics, &diag); err != nil {
		t.Fatalf("unmarshal diagnostics: %v", err)
	}
	if diag.Step != "index" {
		t.Fatalf("step: want=index got=%q", diag.Step)
	}
	if diag.Error != "index: backend unavailable" {
		t.Fatalf("error: got=%q", diag.Error)
	}
	if diag.FailedAt.Before(before) {
		t.Fatalf("failed_at not set: got=%v", diag.FailedAt)
	}
}

func TestSetFailureMissingDocument(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SetFailure(testCtx(), uuid.New(), "extract", "boom"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want apperr.ErrNotFound, got %v", err)
	}
}

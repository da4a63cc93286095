package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/auralabs/aura-backend/internal/data/repos/documents"
	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/dbctx"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (string, error) {
	return f.text, f.err
}

type fakeIndexer struct {
	calls  int
	chunks []string
	err    error
}

func (f *fakeIndexer) IndexChunks(ctx context.Context, documentID uuid.UUID, chunks []string) error {
	f.calls++
	f.chunks = chunks
	return f.err
}

type fakeMirror struct {
	calls  int
	chunks []string
	err    error
}

func (f *fakeMirror) SyncDocumentGraph(ctx context.Context, doc *domain.Document, chunks []string) error {
	f.calls++
	f.chunks = chunks
	return f.err
}

type fixture struct {
	repo      documents.Repo
	extractor *fakeExtractor
	indexer   *fakeIndexer
	mirror    *fakeMirror
	log       *logger.Logger
}

func newFixture(t *testing.T) *fixture {
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
	return &fixture{
		repo:      documents.NewRepo(gdb, log),
		extractor: &fakeExtractor{text: "some document text"},
		indexer:   &fakeIndexer{},
		mirror:    &fakeMirror{},
		log:       log,
	}
}

func (f *fixture) processor(cfg Config) *Processor {
	return NewProcessor(f.repo, f.extractor, f.indexer, f.mirror, cfg, f.log)
}

func (f *fixture) createDoc(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := f.repo.Create(dbctx.Context{Ctx: context.Background()}, &domain.Document{
		FileName: "report.txt",
		FilePath: "uploads/report.txt",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func (f *fixture) status(t *testing.T, id uuid.UUID) *domain.Document {
	t.Helper()
	doc, err := f.repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	return doc
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)
	f.extractor.text = "abcdefghijklmnopqrstuvwxyz"
	doc := f.createDoc(t)

	p := f.processor(Config{ChunkSize: 10, ChunkOverlap: 3})
	if err := p.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.status(t, doc.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status: want=%s got=%s", domain.StatusCompleted, got.Status)
	}
	if f.indexer.calls != 1 {
		t.Fatalf("indexer calls: want=1 got=%d", f.indexer.calls)
	}
	want := []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxyz"}
	if len(f.indexer.chunks) != len(want) {
		t.Fatalf("indexed chunks: want=%d got=%d", len(want), len(f.indexer.chunks))
	}
	for i := range want {
		if f.indexer.chunks[i] != want[i] {
			t.Fatalf("chunk %d: want=%q got=%q", i, want[i], f.indexer.chunks[i])
		}
	}
	if f.mirror.calls != 1 || len(f.mirror.chunks) != len(want) {
		t.Fatalf("mirror not synced with same chunks: calls=%d chunks=%d", f.mirror.calls, len(f.mirror.chunks))
	}
}

func TestProcessMissingDocumentWritesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.processor(Config{})

	err := p.Process(context.Background(), uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want apperr.ErrNotFound, got %v", err)
	}
	if f.indexer.calls != 0 || f.mirror.calls != 0 {
		t.Fatalf("backends must not be called for a missing document")
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("unreadable document format")
	doc := f.createDoc(t)

	p := f.processor(Config{})
	if err := p.Process(context.Background(), doc.ID); err == nil {
		t.Fatalf("want extraction error")
	}

	got := f.status(t, doc.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status: want=%s got=%s", domain.StatusFailed, got.Status)
	}
	if got.ProcessingError == "" {
		t.Fatalf("processing_error not recorded")
	}
	var diag documents.FailureDiagnostics
	if err := json.Unmarshal(got.Diagnostics, &diag); err != nil {
		t.Fatalf("unmarshal diagnostics: %v", err)
	}
	if diag.Step != "extract" {
		t.Fatalf("diagnostics step: want=extract got=%q", diag.Step)
	}
	if f.indexer.calls != 0 {
		t.Fatalf("indexer must not be called after extraction failure")
	}
}

func TestProcessIndexFailure(t *testing.T) {
	f := newFixture(t)
	f.indexer.err = errors.New("vector store down")
	doc := f.createDoc(t)

	p := f.processor(Config{})
	if err := p.Process(context.Background(), doc.ID); err == nil {
		t.Fatalf("want index error")
	}

	got := f.status(t, doc.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status: want=%s got=%s", domain.StatusFailed, got.Status)
	}
	if f.mirror.calls != 0 {
		t.Fatalf("mirror must not be called after index failure")
	}
}

func TestProcessGraphFailureNonFatal(t *testing.T) {
	f := newFixture(t)
	f.mirror.err = errors.New("neo4j unavailable")
	doc := f.createDoc(t)

	p := f.processor(Config{GraphErrorsFatal: false})
	if err := p.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("graph failure must not fail the run: %v", err)
	}

	got := f.status(t, doc.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status: want=%s got=%s", domain.StatusCompleted, got.Status)
	}
}

func TestProcessGraphFailureFatal(t *testing.T) {
	f := newFixture(t)
	f.mirror.err = errors.New("neo4j unavailable")
	doc := f.createDoc(t)

	p := f.processor(Config{GraphErrorsFatal: true})
	if err := p.Process(context.Background(), doc.ID); err == nil {
		t.Fatalf("want graph error")
	}

	got := f.status(t, doc.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status: want=%s got=%s", domain.StatusFailed, got.Status)
	}
}

func TestProcessReRunAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("transient storage error")
	doc := f.createDoc(t)

	p := f.processor(Config{})
	if err := p.Process(context.Background(), doc.ID); err == nil {
		t.Fatalf("want first run to fail")
	}

	f.extractor.err = nil
	f.extractor.text = "recovered text"
	if err := p.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("re-run: %v", err)
	}

	got := f.status(t, doc.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status: want=%s got=%s", domain.StatusCompleted, got.Status)
	}
}

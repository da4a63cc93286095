package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/auralabs/aura-backend/internal/data/repos/documents"
	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/ingestion/chunker"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/dbctx"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

// Extractor turns a stored file into its full text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Indexer pushes a document's chunks into the vector backend.
type Indexer interface {
	IndexChunks(ctx context.Context, documentID uuid.UUID, chunks []string) error
}

// GraphMirror upserts the document/chunk containment graph.
type GraphMirror interface {
	SyncDocumentGraph(ctx context.Context, doc *domain.Document, chunks []string) error
}

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	// GraphErrorsFatal decides whether a graph mirror failure fails the
	// whole run or is only logged. Kept configurable because the mirror
	// has no read path in this service.
	GraphErrorsFatal bool
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = chunker.DefaultSize
		c.ChunkOverlap = chunker.DefaultOverlap
	}
	return c
}

// Processor drives one document through
// PENDING -> PROCESSING -> COMPLETED|FAILED. It is the only writer of
// document status while a run is in flight; dispatching at most one run
// per document id at a time is the caller's responsibility.
type Processor struct {
	log       *logger.Logger
	docs      documents.Repo
	extractor Extractor
	indexer   Indexer
	graph     GraphMirror
	cfg       Config
}

func NewProcessor(docs documents.Repo, extractor Extractor, indexer Indexer, graph GraphMirror, cfg Config, baseLog *logger.Logger) *Processor {
	return &Processor{
		log:       baseLog.With("component", "Processor"),
		docs:      docs,
		extractor: extractor,
		indexer:   indexer,
		graph:     graph,
		cfg:       cfg.withDefaults(),
	}
}

// Process runs the full pipeline for one document id. Steps are strictly
// ordered; the first failing step transitions the document to FAILED and
// ends the run. A missing document aborts without any state written.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID) error {
	log := p.log.With("document_id", documentID)
	dbc := dbctx.Context{Ctx: ctx}

	doc, err := p.docs.GetByID(dbc, documentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn("Document not found, nothing to process")
		}
		return err
	}

	doc, err = p.docs.UpdateStatus(dbc, documentID, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	log.Info("Processing started", "file_name", doc.FileName)

	text, err := p.extractor.Extract(ctx, doc.FilePath)
	if err != nil {
		return p.fail(dbc, documentID, "extract", err)
	}

	chunks, err := chunker.Split(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return p.fail(dbc, documentID, "chunk", err)
	}

	if err := p.indexer.IndexChunks(ctx, documentID, chunks); err != nil {
		return p.fail(dbc, documentID, "index", err)
	}

	if p.graph != nil {
		if err := p.graph.SyncDocumentGraph(ctx, doc, chunks); err != nil {
			if p.cfg.GraphErrorsFatal {
				return p.fail(dbc, documentID, "graph_mirror", err)
			}
			log.Warn("Graph mirror failed (non-fatal)", "error", err)
		}
	}

	if _, err := p.docs.UpdateStatus(dbc, documentID, domain.StatusCompleted); err != nil {
		return p.fail(dbc, documentID, "mark_completed", err)
	}

	log.Info("Processing completed", "chunks", len(chunks))
	return nil
}

// fail best-effort transitions the document to FAILED with the step
// error recorded, then returns the step error so the caller logs it.
func (p *Processor) fail(dbc dbctx.Context, documentID uuid.UUID, step string, err error) error {
	stepErr := fmt.Errorf("%s: %w", step, err)
	if err := p.docs.SetFailure(dbc, documentID, step, stepErr.Error()); err != nil {
		p.log.Error("Could not mark document FAILED",
			"document_id", documentID,
			"step_error", stepErr,
			"update_error", err,
		)
	} else {
		p.log.Error("Processing failed", "document_id", documentID, "error", stepErr)
	}
	return stepErr
}

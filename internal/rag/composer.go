package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/dbctx"
	"github.com/auralabs/aura-backend/internal/platform/logger"
	"github.com/auralabs/aura-backend/internal/platform/openai"
)

const (
	systemInstruction = "You are a helpful assistant that answers questions about a document."

	// Returned verbatim when retrieval comes back empty. This is a
	// success, not a failure: the document simply has nothing relevant.
	noRelevantInformation = "I couldn't find any relevant information in the document."

	DefaultTopK        = 5
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.3
)

// Retriever is the similarity-search surface the composer grounds on.
type Retriever interface {
	Query(ctx context.Context, question string, documentID uuid.UUID, topK int) ([]domain.RetrievedChunk, error)
}

// DocumentGetter resolves a document id to its metadata record.
type DocumentGetter interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
}

// Response is the answer plus the exact retrieved chunks it was grounded
// on. Degraded marks answers produced without generation because a
// backend failed; callers can tell that apart from a legitimate
// "nothing relevant" result, which has Degraded false and no chunks.
type Response struct {
	Answer     string                  `json:"answer"`
	ChunksUsed []domain.RetrievedChunk `json:"chunks_used"`
	Degraded   bool                    `json:"degraded"`
}

type Options struct {
	TopK        int
	MaxTokens   int
	Temperature float64
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	return o
}

type Composer struct {
	log       *logger.Logger
	docs      DocumentGetter
	retriever Retriever
	gen       openai.Client
	opts      Options
}

func NewComposer(docs DocumentGetter, retriever Retriever, gen openai.Client, opts Options, baseLog *logger.Logger) *Composer {
	return &Composer{
		log:       baseLog.With("component", "RAGComposer"),
		docs:      docs,
		retriever: retriever,
		gen:       gen,
		opts:      opts.withDefaults(),
	}
}

// Answer retrieves the most relevant chunks of a completed document and
// asks the generative backend for a grounded answer. Backend failures
// come back as a degraded Response, never as an error; the only errors
// are ErrNotFound and ErrNotReady.
func (c *Composer) Answer(ctx context.Context, question string, documentID uuid.UUID) (Response, error) {
	doc, err := c.docs.GetByID(dbctx.Context{Ctx: ctx}, documentID)
	if err != nil {
		return Response{}, err
	}
	if doc.Status != domain.StatusCompleted {
		return Response{}, fmt.Errorf("document %s is %s: %w", documentID, doc.Status, apperr.ErrNotReady)
	}

	chunks, err := c.retriever.Query(ctx, question, documentID, c.opts.TopK)
	if err != nil {
		c.log.Error("Retrieval failed, returning degraded answer", "document_id", documentID, "error", err)
		return degraded(err), nil
	}
	if len(chunks) == 0 {
		return Response{Answer: noRelevantInformation, ChunksUsed: []domain.RetrievedChunk{}}, nil
	}

	messages := []openai.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: buildPrompt(question, chunks)},
	}

	answer, err := c.gen.Complete(ctx, messages, c.opts.MaxTokens, c.opts.Temperature)
	if err != nil {
		c.log.Error("Generation failed, returning degraded answer", "document_id", documentID, "error", err)
		return degraded(err), nil
	}

	return Response{Answer: answer, ChunksUsed: chunks}, nil
}

func degraded(err error) Response {
	return Response{
		Answer:     fmt.Sprintf("Error processing question: %v", err),
		ChunksUsed: []domain.RetrievedChunk{},
		Degraded:   true,
	}
}

// buildPrompt lays out each retrieved chunk as a labeled context block,
// then the question, then the grounding instruction. Labels carry the
// chunk's position when the metadata has one.
func buildPrompt(question string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Based on the following context, answer the question.\n\n")
	for _, ch := range chunks {
		label := "unknown"
		if ch.ChunkIndex != nil {
			label = fmt.Sprintf("%d", *ch.ChunkIndex)
		}
		fmt.Fprintf(&b, "[Chunk %s]\n%s\n\n", label, ch.Text)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Answer using only the provided context. If the context does not contain the answer, say so.")
	return b.String()
}

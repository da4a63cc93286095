package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/chroma"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

const (
	metaDocumentID = "document_id"
	metaChunkIndex = "chunk_index"
)

// Gateway wraps the vector backend: it pushes chunk texts with derived
// ids and scoped metadata, and normalizes similarity queries into
// RetrievedChunk values ordered by ascending distance.
type Gateway struct {
	log   *logger.Logger
	store chroma.Client
}

func NewGateway(store chroma.Client, baseLog *logger.Logger) *Gateway {
	return &Gateway{
		log:   baseLog.With("component", "IndexGateway"),
		store: store,
	}
}

// IndexChunks submits every chunk of a document in one add call. Ids are
// derived from (document id, position) so re-indexing the same document
// upserts the same entries.
func (g *Gateway) IndexChunks(ctx context.Context, documentID uuid.UUID, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		ids[i] = domain.ChunkID(documentID, i)
		metadatas[i] = map[string]any{
			metaDocumentID: documentID.String(),
			metaChunkIndex: i,
		}
	}

	if err := g.store.Add(ctx, ids, chunks, metadatas); err != nil {
		return fmt.Errorf("index document %s: %w", documentID, err)
	}
	g.log.Info("Chunks indexed", "document_id", documentID, "chunks", len(chunks))
	return nil
}

// Query runs a similarity search scoped to one document and returns up
// to topK chunks, most similar first. No match is a success with an
// empty slice, never an error.
func (g *Gateway) Query(ctx context.Context, question string, documentID uuid.UUID, topK int) ([]domain.RetrievedChunk, error) {
	res, err := g.store.Query(ctx, question, map[string]any{metaDocumentID: documentID.String()}, topK)
	if err != nil {
		return nil, fmt.Errorf("query document %s: %w", documentID, err)
	}

	out := normalize(res)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// normalize flattens the backend's first tri-list row. The lists are
// positionally aligned; rows missing a document text are dropped.
func normalize(res chroma.QueryResult) []domain.RetrievedChunk {
	if len(res.Documents) == 0 {
		return []domain.RetrievedChunk{}
	}

	docs := res.Documents[0]
	var metas []map[string]any
	if len(res.Metadatas) > 0 {
		metas = res.Metadatas[0]
	}
	var dists []float64
	if len(res.Distances) > 0 {
		dists = res.Distances[0]
	}

	out := make([]domain.RetrievedChunk, 0, len(docs))
	for i, text := range docs {
		rc := domain.RetrievedChunk{Text: text}
		if i < len(dists) {
			rc.Distance = dists[i]
		}
		if i < len(metas) && metas[i] != nil {
			rc.Metadata = metas[i]
			if v, ok := metas[i][metaDocumentID].(string); ok {
				rc.DocumentID = v
			}
			if idx, ok := metadataInt(metas[i][metaChunkIndex]); ok {
				rc.ChunkIndex = &idx
			}
		}
		out = append(out, rc)
	}
	return out
}

// metadataInt tolerates the numeric types JSON decoding may hand back.
func metadataInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

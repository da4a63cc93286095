package index

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/chroma"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

type fakeStore struct {
	addIDs       []string
	addDocuments []string
	addMetadatas []map[string]any
	addCalls     int
	addErr       error

	queryText  string
	queryWhere map[string]any
	queryTopK  int
	queryRes   chroma.QueryResult
	queryErr   error
}

func (f *fakeStore) Heartbeat(ctx context.Context) error { return nil }

func (f *fakeStore) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error {
	f.addCalls++
	f.addIDs = ids
	f.addDocuments = documents
	f.addMetadatas = metadatas
	return f.addErr
}

func (f *fakeStore) Query(ctx context.Context, queryText string, where map[string]any, topK int) (chroma.QueryResult, error) {
	f.queryText = queryText
	f.queryWhere = where
	f.queryTopK = topK
	return f.queryRes, f.queryErr
}

func newTestGateway(t *testing.T, store chroma.Client) *Gateway {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return NewGateway(store, log)
}

func TestIndexChunksDerivedIDs(t *testing.T) {
	store := &fakeStore{}
	g := newTestGateway(t, store)
	docID := uuid.New()

	if err := g.IndexChunks(context.Background(), docID, []string{"alpha", "beta", "gamma"}); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}
	if store.addCalls != 1 {
		t.Fatalf("add calls: want=1 got=%d", store.addCalls)
	}
	for i, want := range []string{
		domain.ChunkID(docID, 0),
		domain.ChunkID(docID, 1),
		domain.ChunkID(docID, 2),
	} {
		if store.addIDs[i] != want {
			t.Fatalf("id %d: want=%q got=%q", i, want, store.addIDs[i])
		}
	}
	if store.addDocuments[1] != "beta" {
		t.Fatalf("document 1: want=%q got=%q", "beta", store.addDocuments[1])
	}
	meta := store.addMetadatas[2]
	if meta["document_id"] != docID.String() {
		t.Fatalf("metadata document_id: want=%q got=%v", docID.String(), meta["document_id"])
	}
	if meta["chunk_index"] != 2 {
		t.Fatalf("metadata chunk_index: want=2 got=%v", meta["chunk_index"])
	}
}

func TestIndexChunksEmptySkipsBackend(t *testing.T) {
	store := &fakeStore{}
	g := newTestGateway(t, store)

	if err := g.IndexChunks(context.Background(), uuid.New(), nil); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}
	if store.addCalls != 0 {
		t.Fatalf("add calls: want=0 got=%d", store.addCalls)
	}
}

func TestIndexChunksWrapsBackendError(t *testing.T) {
	boom := errors.New("backend down")
	g := newTestGateway(t, &fakeStore{addErr: boom})

	err := g.IndexChunks(context.Background(), uuid.New(), []string{"x"})
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped backend error, got %v", err)
	}
}

func TestQueryScopesAndNormalizes(t *testing.T) {
	docID := uuid.New()
	store := &fakeStore{
		queryRes: chroma.QueryResult{
			IDs:       [][]string{{domain.ChunkID(docID, 1), domain.ChunkID(docID, 0)}},
			Documents: [][]string{{"far text", "near text"}},
			Metadatas: [][]map[string]any{{
				{"document_id": docID.String(), "chunk_index": float64(1)},
				{"document_id": docID.String(), "chunk_index": float64(0)},
			}},
			Distances: [][]float64{{0.9, 0.1}},
		},
	}
	g := newTestGateway(t, store)

	got, err := g.Query(context.Background(), "what is aura?", docID, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.queryText != "what is aura?" {
		t.Fatalf("query text: got=%q", store.queryText)
	}
	if store.queryWhere["document_id"] != docID.String() {
		t.Fatalf("where clause not scoped to document: %v", store.queryWhere)
	}
	if len(got) != 2 {
		t.Fatalf("chunk count: want=2 got=%d", len(got))
	}
	if got[0].Text != "near text" || got[0].Distance != 0.1 {
		t.Fatalf("results not ordered by distance: %+v", got)
	}
	if got[0].ChunkIndex == nil || *got[0].ChunkIndex != 0 {
		t.Fatalf("chunk index: want=0 got=%v", got[0].ChunkIndex)
	}
	if got[0].DocumentID != docID.String() {
		t.Fatalf("document id: want=%q got=%q", docID.String(), got[0].DocumentID)
	}
}

func TestQueryTruncatesToTopK(t *testing.T) {
	docID := uuid.New()
	store := &fakeStore{
		queryRes: chroma.QueryResult{
			Documents: [][]string{{"a", "b", "c", "d"}},
			Distances: [][]float64{{0.4, 0.3, 0.2, 0.1}},
		},
	}
	g := newTestGateway(t, store)

	got, err := g.Query(context.Background(), "q", docID, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("chunk count: want=2 got=%d", len(got))
	}
	if got[0].Text != "d" || got[1].Text != "c" {
		t.Fatalf("want two nearest chunks, got %+v", got)
	}
}

func TestQueryEmptyResultIsNotError(t *testing.T) {
	g := newTestGateway(t, &fakeStore{queryRes: chroma.QueryResult{}})

	got, err := g.Query(context.Background(), "q", uuid.New(), 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty result, got %+v", got)
	}
}

func TestQueryMissingMetadataTolerated(t *testing.T) {
	g := newTestGateway(t, &fakeStore{
		queryRes: chroma.QueryResult{
			Documents: [][]string{{"bare"}},
		},
	})

	got, err := g.Query(context.Background(), "q", uuid.New(), 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Text != "bare" {
		t.Fatalf("want one bare chunk, got %+v", got)
	}
	if got[0].ChunkIndex != nil {
		t.Fatalf("chunk index should be nil without metadata, got %v", *got[0].ChunkIndex)
	}
}

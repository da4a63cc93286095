package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ChunkID derives the stable vector/graph id for a chunk so that
// re-processing a document upserts instead of accumulating duplicates.
func ChunkID(documentID uuid.UUID, position int) string {
	return fmt.Sprintf("%s_%d", documentID, position)
}

// RetrievedChunk is one similarity hit returned by the indexing gateway.
// Lower Distance means closer semantic match. ChunkIndex is nil when the
// backend metadata did not carry a usable position.
type RetrievedChunk struct {
	Text       string         `json:"text"`
	DocumentID string         `json:"document_id"`
	ChunkIndex *int           `json:"chunk_index,omitempty"`
	Distance   float64        `json:"distance"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

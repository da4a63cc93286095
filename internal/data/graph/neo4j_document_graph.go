package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/platform/logger"
	"github.com/auralabs/aura-backend/internal/platform/neo4jdb"
)

// Mirror writes the per-document containment graph: one Document node,
// one Chunk node per chunk, linked by HAS_CHUNK. All writes are MERGE
// upserts keyed by id, so re-running a processing run is idempotent.
// Nothing in the service reads this graph back.
type Mirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewMirror(client *neo4jdb.Client, baseLog *logger.Logger) *Mirror {
	return &Mirror{client: client, log: baseLog.With("component", "GraphMirror")}
}

// Enabled reports whether a Neo4j driver was configured.
func (m *Mirror) Enabled() bool {
	return m != nil && m.client != nil && m.client.Driver != nil
}

func (m *Mirror) SyncDocumentGraph(ctx context.Context, doc *domain.Document, chunks []string) error {
	if !m.Enabled() {
		return nil
	}
	if doc == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	chunkRows := make([]map[string]any, 0, len(chunks))
	for i, text := range chunks {
		chunkRows = append(chunkRows, map[string]any{
			"id":          domain.ChunkID(doc.ID, i),
			"document_id": doc.ID.String(),
			"text":        text,
			"position":    i,
			"synced_at":   now,
		})
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT document_id_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE`,
			`CREATE CONSTRAINT chunk_id_unique IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				m.log.Warn("neo4j schema init failed (continuing)", "error", err)
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MERGE (d:Document {id: $id})
SET d.name = $name, d.synced_at = $synced_at
`, map[string]any{
			"id":        doc.ID.String(),
			"name":      doc.FileName,
			"synced_at": now,
		}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(chunkRows) == 0 {
			return nil, nil
		}

		res, err := tx.Run(ctx, `
UNWIND $chunks AS ch
MERGE (c:Chunk {id: ch.id})
SET c.text = ch.text,
    c.document_id = ch.document_id,
    c.position = ch.position,
    c.synced_at = ch.synced_at
WITH c, ch
MERGE (d:Document {id: ch.document_id})
MERGE (d)-[:HAS_CHUNK]->(c)
`, map[string]any{"chunks": chunkRows})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	m.log.Debug("Document graph synced", "document_id", doc.ID, "chunks", len(chunkRows))
	return nil
}

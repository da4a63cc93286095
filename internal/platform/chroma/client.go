package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/auralabs/aura-backend/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// QueryResult is the raw tri-list response of a Chroma similarity query.
// Row i of each list corresponds to query text i; the indexing gateway
// normalizes it into RetrievedChunk values.
type QueryResult struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// Client talks to a Chroma server over its HTTP API. Add and Query use a
// single shared collection; ids are caller-derived so re-adds upsert.
type Client interface {
	Heartbeat(ctx context.Context) error
	Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error
	Query(ctx context.Context, queryText string, where map[string]any, topK int) (QueryResult, error)
}

type client struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	collectionID string
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	c := &client{
		log:     log.With("client", "ChromaClient"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	if err := c.Heartbeat(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Chroma vector store ready", "url", c.baseURL, "collection", cfg.Collection)
	return c, nil
}

func (c *client) Heartbeat(ctx context.Context) error {
	const op = "heartbeat"
	return c.doJSON(ctx, op, http.MethodGet, "/api/v1/heartbeat", nil, nil)
}

func (c *client) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error {
	const op = "add"
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("length mismatch: ids=%d documents=%d metadatas=%d", len(ids), len(documents), len(metadatas)), nil)
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return opErr(op, OperationErrorValidation, "empty id", nil)
		}
	}

	collID, err := c.collection(ctx)
	if err != nil {
		return err
	}

	req := map[string]any{
		"ids":       ids,
		"documents": documents,
		"metadatas": metadatas,
	}
	return c.doJSON(ctx, op, http.MethodPost, "/api/v1/collections/"+collID+"/upsert", req, nil)
}

func (c *client) Query(ctx context.Context, queryText string, where map[string]any, topK int) (QueryResult, error) {
	const op = "query"
	var out QueryResult
	if strings.TrimSpace(queryText) == "" {
		return out, opErr(op, OperationErrorValidation, "empty query text", nil)
	}
	if topK <= 0 {
		topK = 5
	}

	collID, err := c.collection(ctx)
	if err != nil {
		return out, err
	}

	req := map[string]any{
		"query_texts": []string{queryText},
		"n_results":   topK,
		"include":     []string{"documents", "metadatas", "distances"},
	}
	if len(where) > 0 {
		req["where"] = where
	}
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/v1/collections/"+collID+"/query", req, &out); err != nil {
		return QueryResult{}, err
	}
	return out, nil
}

// collection resolves and caches the collection id, creating the
// collection when it does not exist yet.
func (c *client) collection(ctx context.Context) (string, error) {
	const op = "get_or_create_collection"

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	req := map[string]any{
		"name":          c.cfg.Collection,
		"get_or_create": true,
	}
	var resp struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/v1/collections", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.ID) == "" {
		return "", opErr(op, OperationErrorMalformed, "collection response missing id", nil)
	}
	c.collectionID = resp.ID
	return c.collectionID, nil
}

func (c *client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return opErr(op, OperationErrorValidation, "marshal request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return opErr(op, OperationErrorValidation, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return opErr(op, OperationErrorUnavailable, "request failed", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return opErr(op, OperationErrorTransport, "read response", err)
	}
	if res.StatusCode >= 400 {
		snippet := string(raw)
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		kind := OperationErrorBackend
		if res.StatusCode == http.StatusServiceUnavailable || res.StatusCode == http.StatusBadGateway {
			kind = OperationErrorUnavailable
		}
		return opErr(op, kind, fmt.Sprintf("status=%d body=%s", res.StatusCode, strings.TrimSpace(snippet)), nil)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return opErr(op, OperationErrorMalformed, "decode response", err)
		}
	}
	return nil
}

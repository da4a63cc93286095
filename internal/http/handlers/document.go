package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auralabs/aura-backend/internal/data/repos/documents"
	"github.com/auralabs/aura-backend/internal/domain"
	"github.com/auralabs/aura-backend/internal/http/response"
	"github.com/auralabs/aura-backend/internal/jobs"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/dbctx"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

type DocumentHandler struct {
	log        *logger.Logger
	docs       documents.Repo
	queue      jobs.Queue
	uploadsDir string
}

func NewDocumentHandler(docs documents.Repo, queue jobs.Queue, uploadsDir string, baseLog *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		log:        baseLog.With("handler", "DocumentHandler"),
		docs:       docs,
		queue:      queue,
		uploadsDir: uploadsDir,
	}
}

// POST /api/documents/upload
// Stores the uploaded file, creates a PENDING record and enqueues the
// document id for asynchronous processing.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("form field 'file' is required: %w", err))
		return
	}

	ownerID := uuid.Nil
	if raw := strings.TrimSpace(c.GetHeader("X-Owner-ID")); raw != "" {
		parsed, perr := uuid.Parse(raw)
		if perr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_owner", fmt.Errorf("X-Owner-ID must be a uuid"))
			return
		}
		ownerID = parsed
	}

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "storage_error", err)
		return
	}

	name := filepath.Base(file.Filename)
	dst := filepath.Join(h.uploadsDir, fmt.Sprintf("%s_%s", uuid.NewString(), name))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "storage_error", err)
		return
	}

	doc := &domain.Document{
		OwnerID:  ownerID,
		FileName: name,
		FilePath: dst,
		Status:   domain.StatusPending,
	}
	doc, err = h.docs.Create(dbctx.Context{Ctx: c.Request.Context()}, doc)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "db_error", err)
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), doc.ID); err != nil {
		// The record stays PENDING; a later re-dispatch of the same id
		// is safe because indexing upserts.
		h.log.Error("Could not enqueue document for processing", "document_id", doc.ID, "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "queue_error", err)
		return
	}

	h.log.Info("Document uploaded", "document_id", doc.ID, "file_name", name)
	response.RespondCreated(c, doc)
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("document id must be a uuid"))
		return
	}

	doc, err := h.docs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "db_error", err)
		return
	}
	response.RespondOK(c, doc)
}

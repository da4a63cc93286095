package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auralabs/aura-backend/internal/http/response"
	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/logger"
	"github.com/auralabs/aura-backend/internal/rag"
)

type QuestionHandler struct {
	log      *logger.Logger
	composer *rag.Composer
}

func NewQuestionHandler(composer *rag.Composer, baseLog *logger.Logger) *QuestionHandler {
	return &QuestionHandler{
		log:      baseLog.With("handler", "QuestionHandler"),
		composer: composer,
	}
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

// POST /api/documents/:id/question
// Degraded answers (backend failures during generation) still return
// 200 with degraded=true so the answering surface stays available.
func (h *QuestionHandler) Ask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("document id must be a uuid"))
		return
	}

	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("question must not be empty"))
		return
	}

	res, err := h.composer.Answer(c.Request.Context(), req.Question, id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			response.RespondError(c, http.StatusNotFound, "not_found", err)
		case errors.Is(err, apperr.ErrNotReady):
			response.RespondError(c, http.StatusConflict, "document_not_ready", err)
		default:
			response.RespondError(c, http.StatusInternalServerError, "rag_error", err)
		}
		return
	}
	response.RespondOK(c, res)
}

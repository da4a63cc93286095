package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auralabs/aura-backend/internal/platform/chroma"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

type HealthHandler struct {
	log   *logger.Logger
	store chroma.Client
}

func NewHealthHandler(store chroma.Client, baseLog *logger.Logger) *HealthHandler {
	return &HealthHandler{log: baseLog.With("handler", "HealthHandler"), store: store}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	vector := "ok"
	if h.store != nil {
		if err := h.store.Heartbeat(c.Request.Context()); err != nil {
			vector = "unavailable"
		}
	} else {
		vector = "disabled"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "vector_store": vector})
}

package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/auralabs/aura-backend/internal/http/handlers"
	httpMW "github.com/auralabs/aura-backend/internal/http/middleware"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	DocumentHandler *httpH.DocumentHandler
	QuestionHandler *httpH.QuestionHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("aura-backend"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.DocumentHandler != nil {
			api.POST("/documents/upload", cfg.DocumentHandler.Upload)
			api.GET("/documents/:id", cfg.DocumentHandler.Get)
		}
		if cfg.QuestionHandler != nil {
			api.POST("/documents/:id/question", cfg.QuestionHandler.Ask)
		}
	}

	return r
}

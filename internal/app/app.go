package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/auralabs/aura-backend/internal/data/db"
	"github.com/auralabs/aura-backend/internal/data/graph"
	"github.com/auralabs/aura-backend/internal/data/repos/documents"
	"github.com/auralabs/aura-backend/internal/http"
	"github.com/auralabs/aura-backend/internal/http/handlers"
	"github.com/auralabs/aura-backend/internal/index"
	"github.com/auralabs/aura-backend/internal/ingestion/extractor"
	"github.com/auralabs/aura-backend/internal/jobs"
	"github.com/auralabs/aura-backend/internal/observability"
	"github.com/auralabs/aura-backend/internal/pipeline"
	"github.com/auralabs/aura-backend/internal/platform/chroma"
	"github.com/auralabs/aura-backend/internal/platform/logger"
	"github.com/auralabs/aura-backend/internal/platform/neo4jdb"
	"github.com/auralabs/aura-backend/internal/platform/openai"
	"github.com/auralabs/aura-backend/internal/rag"
)

// App holds the wired service graph. New builds everything, Start launches
// the background worker, Run blocks on the HTTP server.
type App struct {
	Log    *logger.Logger
	Cfg    Config
	Server *http.Server

	queue  jobs.Queue
	worker *jobs.Worker
	neo4j  *neo4jdb.Client

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "aura-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("neo4j unavailable, graph mirroring disabled", "error", err)
		neoClient = nil
	}

	store, err := chroma.NewClient(log, chroma.ConfigFromEnv())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init chroma: %w", err)
	}

	gen, err := openai.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init openai: %w", err)
	}

	docRepo := documents.NewRepo(pg.DB(), log)
	mirror := graph.NewMirror(neoClient, log)
	gateway := index.NewGateway(store, log)
	composer := rag.NewComposer(docRepo, gateway, gen, rag.Options{
		TopK:        cfg.TopK,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, log)
	processor := pipeline.NewProcessor(docRepo, extractor.New(log), gateway, mirror, pipeline.Config{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		GraphErrorsFatal: cfg.GraphErrorsFatal,
	}, log)

	queue := buildQueue(log)
	worker := jobs.NewWorker(queue, processor, cfg.WorkerConcurrency, log)

	server := http.NewServer(http.RouterConfig{
		Log:             log,
		DocumentHandler: handlers.NewDocumentHandler(docRepo, queue, cfg.UploadsDir, log),
		QuestionHandler: handlers.NewQuestionHandler(composer, log),
		HealthHandler:   handlers.NewHealthHandler(store, log),
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Server:       server,
		queue:        queue,
		worker:       worker,
		neo4j:        neoClient,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the document worker pool.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.worker.Start(ctx)
}

// Run blocks serving HTTP until the listener fails.
func (a *App) Run() error {
	a.Log.Info("http server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

// Close stops the worker pool and releases clients.
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.worker != nil {
		a.worker.Wait()
	}
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.Log.Warn("queue close failed", "error", err)
		}
	}
	if a.neo4j != nil {
		if err := a.neo4j.Close(ctx); err != nil {
			a.Log.Warn("neo4j close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

func buildQueue(log *logger.Logger) jobs.Queue {
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		q, err := jobs.NewRedisQueue(log)
		if err == nil {
			log.Info("using redis document queue")
			return q
		}
		log.Warn("redis queue unavailable, falling back to in-memory queue", "error", err)
	}
	return jobs.NewMemoryQueue(256)
}

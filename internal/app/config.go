package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/auralabs/aura-backend/internal/ingestion/chunker"
	"github.com/auralabs/aura-backend/internal/platform/envutil"
	"github.com/auralabs/aura-backend/internal/platform/logger"
	"github.com/auralabs/aura-backend/internal/rag"
)

type Config struct {
	HTTPAddr          string  `yaml:"http_addr"`
	UploadsDir        string  `yaml:"uploads_dir"`
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	TopK              int     `yaml:"top_k"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	GraphErrorsFatal  bool    `yaml:"graph_errors_fatal"`
	WorkerConcurrency int     `yaml:"worker_concurrency"`
}

// LoadConfig reads optional CONFIG_PATH yaml, then applies env overrides.
// Env always wins so deployments can tweak a baked-in config file.
func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:          ":8000",
		UploadsDir:        "uploads",
		ChunkSize:         chunker.DefaultSize,
		ChunkOverlap:      chunker.DefaultOverlap,
		TopK:              rag.DefaultTopK,
		MaxTokens:         rag.DefaultMaxTokens,
		Temperature:       rag.DefaultTemperature,
		GraphErrorsFatal:  false,
		WorkerConcurrency: 4,
	}
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			log.Warn("config file ignored", "path", path, "error", err)
		} else {
			log.Info("config file loaded", "path", path)
		}
	}
	cfg.HTTPAddr = envutil.GetEnv("HTTP_ADDR", cfg.HTTPAddr, log)
	cfg.UploadsDir = envutil.GetEnv("UPLOADS_DIR", cfg.UploadsDir, log)
	cfg.ChunkSize = envutil.GetEnvAsInt("CHUNK_SIZE", cfg.ChunkSize, log)
	cfg.ChunkOverlap = envutil.GetEnvAsInt("CHUNK_OVERLAP", cfg.ChunkOverlap, log)
	cfg.TopK = envutil.GetEnvAsInt("RAG_TOP_K", cfg.TopK, log)
	cfg.MaxTokens = envutil.GetEnvAsInt("RAG_MAX_TOKENS", cfg.MaxTokens, log)
	cfg.Temperature = envutil.GetEnvAsFloat("RAG_TEMPERATURE", cfg.Temperature, log)
	cfg.GraphErrorsFatal = envutil.GetEnvAsBool("GRAPH_ERRORS_FATAL", cfg.GraphErrorsFatal, log)
	cfg.WorkerConcurrency = envutil.GetEnvAsInt("WORKER_CONCURRENCY", cfg.WorkerConcurrency, log)
	return cfg
}

func loadYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

package chroma

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	// URL is the Chroma server base URL, e.g. http://localhost:8000.
	URL string
	// Collection is the logical collection holding all document chunks.
	Collection string
}

func ConfigFromEnv() Config {
	url := strings.TrimSpace(os.Getenv("CHROMA_URL"))
	if url == "" {
		host := strings.TrimSpace(os.Getenv("CHROMA_HOST"))
		port := strings.TrimSpace(os.Getenv("CHROMA_PORT"))
		if host != "" {
			if port == "" {
				port = "8000"
			}
			url = "http://" + host + ":" + port
		}
	}
	collection := strings.TrimSpace(os.Getenv("CHROMA_COLLECTION"))
	if collection == "" {
		collection = "documents"
	}
	return Config{URL: url, Collection: collection}
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return fmt.Errorf("chroma: missing URL (set CHROMA_URL or CHROMA_HOST/CHROMA_PORT)")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return fmt.Errorf("chroma: missing collection name")
	}
	return nil
}

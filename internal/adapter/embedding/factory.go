package embedding

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"ragdesk/config"
	"ragdesk/internal/port"
)

// New builds the configured embedder, wrapped in the LRU cache.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (port.Embedder, error) {
	var (
		embedder port.Embedder
		err      error
	)

	switch cfg.Provider {
	case "openai", "":
		embedder, err = NewOpenAIEmbedder(OpenAIOptions{
			APIKey:    apiKey(cfg.APIKeyEnv),
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		})
	case "gemini":
		embedder, err = NewGeminiEmbedder(ctx, apiKey(cfg.APIKeyEnv), cfg.Model, cfg.Dimension, cfg.BatchSize)
	case "mock":
		embedder = NewMockEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithCache(embedder, cfg.CacheSize, time.Duration(cfg.CacheTTLSecs)*time.Second, logger), nil
}

func apiKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

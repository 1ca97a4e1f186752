package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/config"
	"github.com/markdave123-py/vectordb/internal/core"
)

// NewEmbedder builds the provider named by cfg.EmbedProvider.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.EmbeddingProvider, error) {
	switch cfg.EmbedProvider {
	case "", "ollama":
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:     cfg.OllamaURL,
			Model:       cfg.EmbedModel,
			Dimensions:  cfg.EmbedDim,
			Timeout:     cfg.EmbedTimeout,
			MaxRetries:  cfg.EmbedMaxRetries,
			RetryDelay:  cfg.EmbedRetryDelay,
			Concurrency: cfg.EmbedConcurrency,
			RateLimit:   cfg.EmbedRateLimit,
		}, logger), nil
	case "gemini":
		g, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim,
			core.RetryPolicy{MaxRetries: cfg.EmbedMaxRetries, Delay: cfg.EmbedRetryDelay},
			logger)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/markdave123-py/vectordb/internal/core"
	"github.com/markdave123-py/vectordb/internal/logging"
)

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

const (
	DefaultGeminiModel = "text-embedding-004"
	// geminiBatchLimit is the most texts BatchEmbedContents accepts at once.
	geminiBatchLimit = 100
	// geminiHealthTimeout is longer than healthTimeout since the API is remote.
	geminiHealthTimeout = 10 * time.Second
)

type GeminiEmbedder struct {
	client     *genai.Client
	modelName  string
	dimensions int
	retry      core.RetryPolicy
	logger     *zap.Logger
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dimensions int, retry core.RetryPolicy, logger *zap.Logger) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" || modelName == DefaultOllamaModel {
		modelName = DefaultGeminiModel
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = maxRetryDelay
	}
	return &GeminiEmbedder{
		client:     cl,
		modelName:  modelName,
		dimensions: dimensions,
		retry:      retry,
		logger:     logging.OrNop(logger),
	}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) ModelName() string {
	return g.modelName
}

func (g *GeminiEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateBatch sends texts in groups of at most geminiBatchLimit.
func (g *GeminiEmbedder) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, &core.EmbeddingError{Op: "batch", Err: errors.New("empty text")}
		}
	}

	em := g.client.EmbeddingModel(g.modelName)
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))

		var resp *genai.BatchEmbedContentsResponse
		err := core.Retry(ctx, g.retry, g.logger, "gemini batch embed", func(ctx context.Context) error {
			batch := em.NewBatch()
			for _, t := range texts[start:end] {
				batch.AddContent(genai.Text(t))
			}
			r, err := em.BatchEmbedContents(ctx, batch)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			return nil, &core.EmbeddingError{Op: "batch", Err: fmt.Errorf("gemini batch embed: %w", err)}
		}
		if len(resp.Embeddings) != end-start {
			return nil, &core.EmbeddingError{Op: "batch", Err: fmt.Errorf("got %d embeddings for %d texts", len(resp.Embeddings), end-start)}
		}

		for _, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, &core.EmbeddingError{Op: "batch", Err: errors.New("response has no embedding")}
			}
			if g.dimensions > 0 && len(e.Values) != g.dimensions {
				return nil, &core.EmbeddingError{Op: "batch", Err: fmt.Errorf("embedding has %d dimensions, expected %d", len(e.Values), g.dimensions)}
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}

func (g *GeminiEmbedder) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, geminiHealthTimeout)
	defer cancel()
	if _, err := g.client.EmbeddingModel(g.modelName).Info(ctx); err != nil {
		g.logger.Debug("gemini health check failed", zap.Error(err))
		return false
	}
	return true
}

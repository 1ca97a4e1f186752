package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/vectordb/internal/core"
	"github.com/markdave123-py/vectordb/internal/logging"
)

var _ core.EmbeddingProvider = (*OllamaEmbedder)(nil)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
	defaultTimeout     = 60 * time.Second
	healthTimeout      = 5 * time.Second
	maxRetryDelay      = 30 * time.Second
)

// OllamaConfig holds configuration for the Ollama embedding client.
type OllamaConfig struct {
	BaseURL string
	Model   string
	// Dimensions, when positive, is enforced on every returned vector.
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// Concurrency caps in-flight requests per batch; 0 means no cap.
	Concurrency int
	// RateLimit caps requests per second; 0 means unlimited.
	RateLimit float64
}

// OllamaEmbedder generates embeddings through Ollama's HTTP API.
type OllamaEmbedder struct {
	client  *http.Client
	cfg     OllamaConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// statusError is a non-2xx answer from the backend.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama error (status %d): %s", e.Code, e.Body)
}

func NewOllamaEmbedder(cfg OllamaConfig, logger *zap.Logger) *OllamaEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	e := &OllamaEmbedder{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logging.OrNop(logger),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return e
}

func (e *OllamaEmbedder) ModelName() string {
	return e.cfg.Model
}

// Generate embeds one text, retrying transient failures.
func (e *OllamaEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.EmbeddingError{Op: "generate", Err: errors.New("empty text")}
	}

	policy := core.RetryPolicy{MaxRetries: e.cfg.MaxRetries, Delay: e.cfg.RetryDelay, MaxDelay: maxRetryDelay}
	var vec []float32
	err := core.Retry(ctx, policy, e.logger, "ollama embed", func(ctx context.Context) error {
		v, err := e.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, &core.EmbeddingError{Op: "generate", Err: err}
	}
	return vec, nil
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Prompt: text})
	if err != nil {
		return nil, core.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, core.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, core.Permanent(serr)
		}
		return nil, serr
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("response has no embedding")
	}
	if e.cfg.Dimensions > 0 && len(out.Embedding) != e.cfg.Dimensions {
		return nil, core.Permanent(fmt.Errorf("embedding has %d dimensions, expected %d", len(out.Embedding), e.cfg.Dimensions))
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// GenerateBatch embeds all texts concurrently. The first failure cancels the
// rest and fails the whole batch.
func (e *OllamaEmbedder) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Concurrency > 0 {
		g.SetLimit(e.cfg.Concurrency)
	}
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Generate(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &core.EmbeddingError{Op: "batch", Err: err}
	}

	e.logger.Debug("embedded batch", zap.Int("texts", len(texts)), zap.String("model", e.cfg.Model))
	return out, nil
}

// HealthCheck reports whether Ollama answers and has the configured model.
func (e *OllamaEmbedder) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("ollama unreachable", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Debug("ollama health status", zap.Int("status", resp.StatusCode))
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if modelMatches(e.cfg.Model, m.Name) || modelMatches(e.cfg.Model, m.Model) {
			return true
		}
	}
	e.logger.Warn("embedding model not installed", zap.String("model", e.cfg.Model))
	return false
}

// modelMatches treats an untagged name as the :latest tag.
func modelMatches(want, have string) bool {
	if have == "" {
		return false
	}
	return withTag(want) == withTag(have)
}

func withTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}

package core

import "context"

// EmbeddingProvider turns text into vectors.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	// GenerateBatch returns one vector per input, in input order. It fails
	// as a whole if any single embedding fails.
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
	// HealthCheck never returns an error; unreachable means false.
	HealthCheck(ctx context.Context) bool
	ModelName() string
}

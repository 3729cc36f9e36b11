package search

import (
	"context"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// VectorSearcher answers nearest-neighbor queries against the store.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredPoint, error)
}

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator invokes the generation provider with a prompt. kind labels
// the call (expand, reason, analysis) for observability.
type Generator interface {
	Generate(ctx context.Context, kind, prompt string) (string, error)
}

// Emitter receives one stream event. Returning an error aborts the
// stream (typically because the client disconnected).
type Emitter func(domain.StreamEvent) error

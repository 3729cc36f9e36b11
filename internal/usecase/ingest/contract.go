package ingest

import (
	"context"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// Embedder turns a text into its vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PointUpserter persists embedded documents. Ready reports whether the
// backing collection has been initialized; Upsert must reject writes
// before that point.
type PointUpserter interface {
	Ready() bool
	Upsert(ctx context.Context, points []domain.StoredPoint) error
}

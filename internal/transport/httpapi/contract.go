package httpapi

import (
	"context"

	"github.com/chorus-cloud/chorussearch/internal/domain"
	"github.com/chorus-cloud/chorussearch/internal/repository/qdrant"
	"github.com/chorus-cloud/chorussearch/internal/usecase/health"
	"github.com/chorus-cloud/chorussearch/internal/usecase/search"
)

// SearchService is the query-pipeline surface the API exposes.
type SearchService interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	IntelligentSearch(ctx context.Context, query string, k int, includeAnalysis bool) (domain.IntelligentSearchResult, error)
	Stream(ctx context.Context, query string, k int, emit search.Emitter) error
	ClearCache(ctx context.Context) error
}

// IngestService ingests document batches.
type IngestService interface {
	AddDocuments(ctx context.Context, choruses []domain.Chorus) (int, error)
}

// HealthService reports aggregated dependency health.
type HealthService interface {
	Check(ctx context.Context) health.Report
}

// StoreProber performs the diagnostic write probe against the store.
type StoreProber interface {
	Probe(ctx context.Context) (qdrant.ProbeInfo, error)
}

// Package search implements the query pipeline: term generation,
// similarity search, deduplication, result shaping, caching, and
// incremental delivery. The vector math, persistence, and language
// generation are delegated to external services; this package only
// orchestrates them.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/cache"
	"github.com/chorus-cloud/chorussearch/internal/domain"
	"github.com/chorus-cloud/chorussearch/internal/metrics"
)

// Options tunes the pipeline.
type Options struct {
	// RetrieveCount is the fixed neighbor count fetched for intelligent
	// searches before deduplication, regardless of the requested k.
	RetrieveCount int
	// ContextSize caps how many deduplicated items feed the LLM prompt.
	ContextSize int
	// PerItemReasons gates the per-result rationale calls in streams.
	PerItemReasons bool
	// OverallAnalysis gates the overall summary call in streams.
	OverallAnalysis bool
}

func (o *Options) applyDefaults() {
	if o.RetrieveCount <= 0 {
		o.RetrieveCount = 12
	}
	if o.ContextSize <= 0 {
		o.ContextSize = 8
	}
}

// Service is the query pipeline.
type Service struct {
	store  VectorSearcher
	embed  Embedder
	gen    Generator
	cache  cache.Store
	opts   Options
	logger *zap.Logger
}

// New creates the query pipeline service.
func New(
	store VectorSearcher,
	embed Embedder,
	gen Generator,
	cacheStore cache.Store,
	opts Options,
	logger *zap.Logger,
) *Service {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		embed:  embed,
		gen:    gen,
		cache:  cacheStore,
		opts:   opts,
		logger: logger,
	}
}

// Search runs a plain similarity search for the raw query. Results are
// served from the cache on an exact (query, k) match with no freshness
// check against the underlying store.
func (s *Service) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	key := cache.PlainKey(query, k)
	if data, ok := s.cache.Get(ctx, key); ok {
		var cached []domain.SearchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.ResultCacheTotal.WithLabelValues("search", "hit").Inc()
			s.logger.Info("cache hit", zap.String("query", query))
			return cached, nil
		}
	}
	metrics.ResultCacheTotal.WithLabelValues("search", "miss").Inc()
	s.logger.Info("cache miss", zap.String("query", query))

	vector, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	points, err := s.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := resultsFromPoints(points)
	s.cachePut(ctx, key, results)
	return results, nil
}

// IntelligentSearch retrieves a fixed, larger neighbor count, dedupes
// by business id, keeps the requested k, and optionally attaches one
// LLM-generated analysis over the top context items. The cache key
// carries the current generation, so a cache clear strands prior
// entries without enumerating them.
func (s *Service) IntelligentSearch(
	ctx context.Context, query string, k int, includeAnalysis bool,
) (domain.IntelligentSearchResult, error) {
	key := cache.IntelligentKey(query, k, includeAnalysis, s.cache.Generation(ctx))
	if data, ok := s.cache.Get(ctx, key); ok {
		var cached domain.IntelligentSearchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.ResultCacheTotal.WithLabelValues("rag", "hit").Inc()
			s.logger.Info("cache hit", zap.String("query", query))
			return cached, nil
		}
	}
	metrics.ResultCacheTotal.WithLabelValues("rag", "miss").Inc()
	s.logger.Info("cache miss", zap.String("query", query))

	deduped, err := s.retrieveDeduped(ctx, query)
	if err != nil {
		return domain.IntelligentSearchResult{}, err
	}

	results := deduped
	if len(results) > k {
		results = results[:k]
	}

	out := domain.IntelligentSearchResult{
		SearchResults:      results,
		QueryUnderstanding: query,
	}

	if includeAnalysis {
		raw, err := s.gen.Generate(ctx, "analysis", analysisPrompt(query, deduped, s.opts.ContextSize))
		if err != nil {
			return domain.IntelligentSearchResult{}, fmt.Errorf("generate analysis: %w", err)
		}
		out.AIAnalysis = trimGenerated(raw)
	}

	s.cachePut(ctx, key, out)
	return out, nil
}

// ClearCache empties the result cache and bumps the generation counter.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("result cache cleared",
		zap.Uint64("generation", s.cache.Generation(ctx)),
	)
	return nil
}

// retrieveDeduped embeds the query text, fetches the fixed retrieval
// count, and dedupes by business id, first occurrence winning.
func (s *Service) retrieveDeduped(ctx context.Context, queryText string) ([]domain.SearchResult, error) {
	vector, err := s.embed.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	points, err := s.store.Search(ctx, vector, s.opts.RetrieveCount)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	return dedupeByID(resultsFromPoints(points)), nil
}

func (s *Service) cachePut(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache marshal failed", zap.Error(err))
		return
	}
	s.cache.Put(ctx, key, data)
}

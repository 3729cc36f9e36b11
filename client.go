// Package chorussearch is the embedded SDK entry point: it wires the
// full search pipeline (vector store, model runtime, cache, usecases)
// in-process, for programs that want the pipeline without running the
// HTTP server.
package chorussearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/chorus-cloud/chorussearch/internal/cache"
	"github.com/chorus-cloud/chorussearch/internal/domain"
	qdrantrepo "github.com/chorus-cloud/chorussearch/internal/repository/qdrant"
	"github.com/chorus-cloud/chorussearch/internal/transport/ollama"
	ingestuc "github.com/chorus-cloud/chorussearch/internal/usecase/ingest"
	searchuc "github.com/chorus-cloud/chorussearch/internal/usecase/search"
)

// Re-exported pipeline types, so SDK callers need no internal imports.
type (
	Chorus                  = domain.Chorus
	SearchResult            = domain.SearchResult
	IntelligentSearchResult = domain.IntelligentSearchResult
	StreamEvent             = domain.StreamEvent
	Emitter                 = searchuc.Emitter
)

// Client is the chorussearch SDK entry point.
type Client struct {
	store     *qdrantrepo.Store
	llm       *ollama.Client
	searchSvc *searchuc.Service
	ingestSvc *ingestuc.Service
}

// New creates a Client. The vector store connection is lazy; call
// Connect before the first operation.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.qdrantHost == "" {
		return nil, errors.New("chorussearch: qdrant host required")
	}
	if cfg.collection == "" {
		return nil, errors.New("chorussearch: collection name required")
	}

	store, err := qdrantrepo.NewStore(qdrantrepo.Config{
		Host:           cfg.qdrantHost,
		Port:           cfg.qdrantPort,
		APIKey:         cfg.qdrantAPIKey,
		Collection:     cfg.collection,
		VectorSize:     cfg.vectorSize,
		ConnectRetries: cfg.connectRetries,
		RetryDelay:     cfg.retryDelay,
		Logger:         cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("chorussearch: create store: %w", err)
	}

	llm := ollama.New(&ollama.Config{
		BaseURL:        cfg.ollamaURL,
		EmbeddingModel: cfg.embeddingModel,
		LLMModel:       cfg.llmModel,
		Logger:         cfg.logger,
	})

	resultCache := cache.NewMemory(cfg.cacheSize, cfg.cacheTTL)

	return &Client{
		store:     store,
		llm:       llm,
		searchSvc: searchuc.New(store, llm, llm, resultCache, cfg.pipeline, cfg.logger),
		ingestSvc: ingestuc.New(store, llm, cfg.logger),
	}, nil
}

// Connect establishes the vector store connection and creates the
// collection if it does not exist yet.
func (c *Client) Connect(ctx context.Context) error {
	return c.store.Connect(ctx)
}

// Search runs a plain similarity search.
func (c *Client) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	return c.searchSvc.Search(ctx, query, k)
}

// IntelligentSearch runs the deduplicated search with an optional
// LLM analysis attached.
func (c *Client) IntelligentSearch(
	ctx context.Context, query string, k int, includeAnalysis bool,
) (IntelligentSearchResult, error) {
	return c.searchSvc.IntelligentSearch(ctx, query, k, includeAnalysis)
}

// StreamSearch runs the full streamed pipeline, pushing events to emit.
func (c *Client) StreamSearch(ctx context.Context, query string, k int, emit Emitter) error {
	return c.searchSvc.Stream(ctx, query, k, emit)
}

// AddDocuments embeds and stores a batch of choruses.
func (c *Client) AddDocuments(ctx context.Context, choruses []Chorus) (int, error) {
	return c.ingestSvc.AddDocuments(ctx, choruses)
}

// ClearCache empties the result cache.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.searchSvc.ClearCache(ctx)
}

// Close releases the vector store connection.
func (c *Client) Close() error {
	return c.store.Close()
}

package chorussearch

import (
	"time"

	"go.uber.org/zap"

	searchuc "github.com/chorus-cloud/chorussearch/internal/usecase/search"
)

type clientConfig struct {
	qdrantHost     string
	qdrantPort     int
	qdrantAPIKey   string
	collection     string
	vectorSize     int
	connectRetries int
	retryDelay     time.Duration

	ollamaURL      string
	embeddingModel string
	llmModel       string

	cacheSize int
	cacheTTL  time.Duration

	pipeline searchuc.Options
	logger   *zap.Logger
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		qdrantHost:     "localhost",
		qdrantPort:     6334,
		collection:     "choruses",
		vectorSize:     768,
		connectRetries: 5,
		retryDelay:     2 * time.Second,
		ollamaURL:      "http://localhost:11434/v1",
		embeddingModel: "nomic-embed-text",
		llmModel:       "mistral",
		cacheSize:      256,
		cacheTTL:       10 * time.Minute,
		pipeline: searchuc.Options{
			PerItemReasons:  true,
			OverallAnalysis: true,
		},
	}
}

// Option configures a Client.
type Option func(*clientConfig)

// WithQdrant sets the vector store address.
func WithQdrant(host string, port int) Option {
	return func(c *clientConfig) {
		c.qdrantHost = host
		c.qdrantPort = port
	}
}

// WithQdrantAPIKey sets the vector store API key.
func WithQdrantAPIKey(key string) Option {
	return func(c *clientConfig) { c.qdrantAPIKey = key }
}

// WithCollection sets the collection name and vector size.
func WithCollection(name string, vectorSize int) Option {
	return func(c *clientConfig) {
		c.collection = name
		c.vectorSize = vectorSize
	}
}

// WithConnectRetry tunes the startup retry loop against the store.
func WithConnectRetry(retries int, delay time.Duration) Option {
	return func(c *clientConfig) {
		c.connectRetries = retries
		c.retryDelay = delay
	}
}

// WithOllama sets the model runtime base URL.
func WithOllama(baseURL string) Option {
	return func(c *clientConfig) { c.ollamaURL = baseURL }
}

// WithModels sets the embedding and generation models.
func WithModels(embedding, llm string) Option {
	return func(c *clientConfig) {
		c.embeddingModel = embedding
		c.llmModel = llm
	}
}

// WithCache tunes the in-memory result cache.
func WithCache(maxSize int, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheSize = maxSize
		c.cacheTTL = ttl
	}
}

// WithPipeline overrides the query pipeline tuning knobs.
func WithPipeline(opts searchuc.Options) Option {
	return func(c *clientConfig) { c.pipeline = opts }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

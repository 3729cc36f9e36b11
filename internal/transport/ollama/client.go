// Package ollama talks to the embedding/generation runtime through its
// OpenAI-compatible API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/domain"
	"github.com/chorus-cloud/chorussearch/internal/metrics"
)

// Client provides embeddings and text generation from a single runtime.
type Client struct {
	api            *openai.Client
	embeddingModel openai.EmbeddingModel
	llmModel       string
	logger         *zap.Logger
}

// Config holds the runtime settings.
type Config struct {
	BaseURL        string
	EmbeddingModel string
	LLMModel       string
	Logger         *zap.Logger
}

// New creates a client for an OpenAI-compatible runtime (Ollama by default).
func New(cfg *Config) *Client {
	// Ollama ignores the API key but the client requires one.
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:            openai.NewClientWithConfig(clientCfg),
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		llmModel:       cfg.LLMModel,
		logger:         logger,
	}
}

// Embed turns text into a fixed-length vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	}

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, parseAPIError(err, domain.ErrEmbeddingFailed)
	}
	if len(resp.Data) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingFailed)
	}

	metrics.LLMRequestsTotal.WithLabelValues("embed", "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("embed").Observe(duration.Seconds())

	return resp.Data[0].Embedding, nil
}

// Generate invokes the LLM with a single prompt and returns the raw
// generated text. kind labels the call for metrics (expand, reason, analysis).
func (c *Client) Generate(ctx context.Context, kind, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.llmModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(kind, "error").Inc()
		return "", parseAPIError(err, domain.ErrGenerationFailed)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationFailed)
	}

	metrics.LLMRequestsTotal.WithLabelValues(kind, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())

	c.logger.Debug("generation call completed",
		zap.String("kind", kind),
		zap.Duration("latency", duration),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies runtime availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with the given sentinel for status mapping.
func parseAPIError(err error, sentinel error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("runtime API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), sentinel)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("runtime API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, sentinel)
	}

	return fmt.Errorf("runtime request failed: %v: %w", err, sentinel)
}

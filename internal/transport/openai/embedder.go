package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API
// (OpenAI, Nebius, or Ollama's /v1 endpoint).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	logger     *zap.Logger
}

// Config holds the OpenAI-compatible endpoint settings shared by Embedder and Generator.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // request reduced dimensions; 0 = model default
	Provider   string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

func providerName(cfg *Config) string {
	if cfg.Provider == "" {
		return "openai"
	}
	return cfg.Provider
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	return &Embedder{
		client:     newClient(cfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   providerName(cfg),
		logger:     loggerOrNop(cfg.Logger),
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	model := string(e.model)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(e.provider, model, "embed", "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(e.provider, model, "embed", "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError("embeddings", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(e.provider, model, "embed", "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(e.provider, model, "embed", "empty_embedding").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("%w: embeddings response has no vector", domain.ErrEmptyEmbedding)
	}

	metrics.ModelRequestsTotal.WithLabelValues(e.provider, model, "embed", "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(e.provider, model, "embed").Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(promptTokens))
		metrics.ModelTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, e.client)
}

func healthCheck(ctx context.Context, c *openai.Client) error {
	if _, err := c.ListModels(ctx); err != nil {
		return parseAPIError("models", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors map to domain.RemoteError so the transport returns 502.
func parseAPIError(endpoint string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewRemoteError(endpoint, reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewRemoteError(endpoint, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return domain.NewRemoteError(endpoint, 0, err.Error())
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

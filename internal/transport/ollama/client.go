package ollama

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

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/metrics"
)

const (
	provider = "ollama"

	pathGenerate = "/api/generate"
	pathEmbed    = "/api/embed"
	pathTags     = "/api/tags"

	// maxResponseSize caps a decoded body; a 4096-dim float vector in JSON is well under this.
	maxResponseSize = 8 << 20
)

// Config holds the Ollama endpoint settings.
type Config struct {
	BaseURL         string // e.g. http://localhost:11434
	GenerationModel string
	EmbeddingModel  string
	Timeout         time.Duration
	Logger          *zap.Logger
}

// Client talks to the native Ollama HTTP API.
// It is both a text generator and an embedder; the two share one http.Client.
type Client struct {
	baseURL    string
	genModel   string
	embModel   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an Ollama client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		genModel:   cfg.GenerationModel,
		embModel:   cfg.EmbeddingModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL builds the endpoint base from host and port.
func BaseURL(host string, port int) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if port <= 0 {
		return host
	}
	return fmt.Sprintf("%s:%d", host, port)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        *string `json:"response"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Stream bool   `json:"stream"`
}

type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// Generate runs a non-streaming completion and returns the "response" field verbatim.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	var out generateResponse
	err := c.post(ctx, pathGenerate, generateRequest{Model: c.genModel, Prompt: prompt}, &out)
	if err == nil && out.Response == nil {
		err = fmt.Errorf("%w: %s: missing \"response\" field", domain.ErrMalformedResponse, pathGenerate)
	}
	c.record("generate", c.genModel, start, err)
	if err != nil {
		return "", err
	}

	if out.PromptEvalCount > 0 || out.EvalCount > 0 {
		metrics.ModelTokensTotal.WithLabelValues(provider, c.genModel, "prompt").Add(float64(out.PromptEvalCount))
		metrics.ModelTokensTotal.WithLabelValues(provider, c.genModel, "completion").Add(float64(out.EvalCount))
	}

	c.logger.Debug("Generation completed",
		zap.String("model", c.genModel),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", out.PromptEvalCount),
		zap.Int("completion_tokens", out.EvalCount),
	)
	return *out.Response, nil
}

// Embed implements domain.Embedder. Only the first returned vector is used.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	var out embedResponse
	err := c.post(ctx, pathEmbed, embedRequest{Model: c.embModel, Input: text}, &out)
	if err == nil && (len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0) {
		err = fmt.Errorf("%w: %s returned no vector", domain.ErrEmptyEmbedding, pathEmbed)
	}
	c.record("embed", c.embModel, start, err)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if out.PromptEvalCount > 0 {
		metrics.ModelTokensTotal.WithLabelValues(provider, c.embModel, "prompt").Add(float64(out.PromptEvalCount))
	}

	return domain.EmbeddingResult{
		Embedding:    out.Embeddings[0],
		PromptTokens: out.PromptEvalCount,
		TotalTokens:  out.PromptEvalCount,
	}, nil
}

// HealthCheck verifies the endpoint is up via GET /api/tags.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathTags, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewRemoteError(pathTags, 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewRemoteError(pathTags, resp.StatusCode, resp.Status)
	}
	return nil
}

// post sends body as JSON and decodes a 2xx response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewRemoteError(path, 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.NewRemoteError(path, resp.StatusCode, "read body: "+err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewRemoteError(path, resp.StatusCode, extractError(payload))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrMalformedResponse, path, err)
	}
	return nil
}

func (c *Client) record(op, model string, start time.Time, err error) {
	if err == nil {
		metrics.ModelRequestsTotal.WithLabelValues(provider, model, op, "success").Inc()
		metrics.ModelRequestDuration.WithLabelValues(provider, model, op).Observe(time.Since(start).Seconds())
		return
	}

	metrics.ModelRequestsTotal.WithLabelValues(provider, model, op, "error").Inc()
	metrics.ModelErrorsTotal.WithLabelValues(provider, model, op, errorType(err)).Inc()
	c.logger.Warn("Model request failed",
		zap.String("op", op),
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyEmbedding):
		return "empty_embedding"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, domain.ErrRemoteService):
		return "remote_error"
	default:
		return "other"
	}
}

// extractError pulls the "error" field out of an Ollama error body, falling back to the raw body.
func extractError(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}

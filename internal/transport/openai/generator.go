package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/metrics"
)

// Generator produces text through the chat completions endpoint.
// The prompt is sent as a single user message.
type Generator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible text generator. cfg.Dimensions is ignored.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		client:   newClient(cfg),
		model:    cfg.Model,
		provider: providerName(cfg),
		logger:   loggerOrNop(cfg.Logger),
	}
}

// Generate returns the first choice's message content verbatim.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "generate", "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.model, "generate", "api_error").Inc()
		return "", parseAPIError("chat/completions", err)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "generate", "error").Inc()
		metrics.ModelErrorsTotal.WithLabelValues(g.provider, g.model, "generate", "malformed_response").Inc()
		return "", fmt.Errorf("%w: chat completion has no content", domain.ErrMalformedResponse)
	}

	duration := time.Since(start)
	metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "generate", "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(g.provider, g.model, "generate").Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	g.logger.Debug("Chat completion finished",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, g.client)
}

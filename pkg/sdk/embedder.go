package pollindex

import "context"

// Embedder converts text to a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Generator produces text from a prompt. Needed only for summaries.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

package summary

import "context"

// Generator runs a single non-streaming text completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/pollindex/internal/domain"
	domsum "github.com/kailas-cloud/pollindex/internal/domain/summary"
)

// Service turns poll descriptions into short neutral summaries.
type Service struct {
	gen Generator
}

// New creates a summary Service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// Summarize returns a neutral summary of at most domsum.MaxWords words.
// The generated text is returned as is.
func (s *Service) Summarize(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: description is empty", domain.ErrInvalidInput)
	}

	out, err := s.gen.Generate(ctx, summaryPrompt(description))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// SummarizeOrFlag returns either domsum.Sentinel for incoherent, threatening
// or aggressive text, or a summary. Classification is the model's call;
// the answer is not checked locally.
func (s *Service) SummarizeOrFlag(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: description is empty", domain.ErrInvalidInput)
	}

	out, err := s.gen.Generate(ctx, flagPrompt(description))
	if err != nil {
		return "", fmt.Errorf("summarize or flag: %w", err)
	}
	return out, nil
}

func summaryPrompt(description string) string {
	return fmt.Sprintf("%q\n"+
		"Read the quoted text above. "+
		"Write a short retelling of at most %d words, to the point, without emotion. "+
		"Do not add anything else, only the retelling.\n",
		description, domsum.MaxWords)
}

func flagPrompt(description string) string {
	return fmt.Sprintf("%q\n"+
		"Read the quoted text above.\n"+
		"If it contains nonsense, threats, aggression, hysteria, illogical accusations, "+
		"incoherent phrases or emotional inadequacy, return only the word %q.\n\n"+
		"If it is written calmly and logically, with concrete problems, "+
		"return a short retelling of at most %d words, to the point, without emotion.\n\n"+
		"Do not add explanations. The answer must be exactly one of the two: "+
		"either %q or the short retelling.",
		description, domsum.Sentinel, domsum.MaxWords, domsum.Sentinel)
}

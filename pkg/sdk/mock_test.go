package pollindex

import (
	"context"

	domcol "github.com/kailas-cloud/pollindex/internal/domain/collection"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	healthuc "github.com/kailas-cloud/pollindex/internal/usecase/health"
)

// --- indexingUseCase mock ---

type mockIndexingUC struct {
	indexFn      func(ctx context.Context, pollID, description string) error
	summarizedFn func(ctx context.Context, pollID, description string) (string, error)
	removeFn     func(ctx context.Context, pollID string) error
	searchFn     func(ctx context.Context, query string, limit int) ([]hit.Hit, error)
}

func (m *mockIndexingUC) IndexPoll(ctx context.Context, pollID, description string) error {
	return m.indexFn(ctx, pollID, description)
}

func (m *mockIndexingUC) IndexPollSummarized(ctx context.Context, pollID, description string) (string, error) {
	return m.summarizedFn(ctx, pollID, description)
}

func (m *mockIndexingUC) RemovePollFromIndex(ctx context.Context, pollID string) error {
	return m.removeFn(ctx, pollID)
}

func (m *mockIndexingUC) SearchPollsLimit(ctx context.Context, query string, limit int) ([]hit.Hit, error) {
	return m.searchFn(ctx, query, limit)
}

// --- summaryUseCase mock ---

type mockSummaryUC struct {
	summarizeFn func(ctx context.Context, description string) (string, error)
	flagFn      func(ctx context.Context, description string) (string, error)
}

func (m *mockSummaryUC) Summarize(ctx context.Context, description string) (string, error) {
	return m.summarizeFn(ctx, description)
}

func (m *mockSummaryUC) SummarizeOrFlag(ctx context.Context, description string) (string, error) {
	return m.flagFn(ctx, description)
}

// --- indexAdmin mock ---

type mockAdmin struct {
	infoFn func(ctx context.Context) (domcol.Info, error)
	dropFn func(ctx context.Context) error
}

func (m *mockAdmin) Info(ctx context.Context) (domcol.Info, error) {
	return m.infoFn(ctx)
}

func (m *mockAdmin) DropCollection(ctx context.Context) error {
	return m.dropFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- public Embedder / Generator mocks ---

type mockEmbedder struct {
	fn       func(ctx context.Context, text string) (EmbeddingResult, error)
	healthFn func(ctx context.Context) error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

func (m *mockEmbedder) HealthCheck(ctx context.Context) error {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return nil
}

type mockGenerator struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return m.fn(ctx, prompt)
}

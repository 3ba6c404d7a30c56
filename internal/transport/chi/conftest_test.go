package chi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	domcol "github.com/kailas-cloud/pollindex/internal/domain/collection"
	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	healthuc "github.com/kailas-cloud/pollindex/internal/usecase/health"
)

type mockIndexer struct {
	indexFn      func(ctx context.Context, id, description string) error
	summarizedFn func(ctx context.Context, id, description string) (string, error)
	removeFn     func(ctx context.Context, id string) error
	searchFn     func(ctx context.Context, query string, limit int) ([]hit.Hit, error)
}

func (m *mockIndexer) IndexPoll(ctx context.Context, id, description string) error {
	if m.indexFn != nil {
		return m.indexFn(ctx, id, description)
	}
	return nil
}

func (m *mockIndexer) IndexPollSummarized(ctx context.Context, id, description string) (string, error) {
	if m.summarizedFn != nil {
		return m.summarizedFn(ctx, id, description)
	}
	return "summary", nil
}

func (m *mockIndexer) RemovePollFromIndex(ctx context.Context, id string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	return nil
}

func (m *mockIndexer) SearchPollsLimit(ctx context.Context, query string, limit int) ([]hit.Hit, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return []hit.Hit{}, nil
}

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, description string) (string, error)
	flagFn      func(ctx context.Context, description string) (string, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, description string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, description)
	}
	return "summary", nil
}

func (m *mockSummarizer) SummarizeOrFlag(ctx context.Context, description string) (string, error) {
	if m.flagFn != nil {
		return m.flagFn(ctx, description)
	}
	return "summary", nil
}

type mockIndexReader struct {
	getFn  func(ctx context.Context, id string) (poll.Point, bool, error)
	infoFn func(ctx context.Context) (domcol.Info, error)
}

func (m *mockIndexReader) Get(ctx context.Context, id string) (poll.Point, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return poll.Point{}, false, nil
}

func (m *mockIndexReader) Info(ctx context.Context) (domcol.Info, error) {
	if m.infoFn != nil {
		return m.infoFn(ctx)
	}
	return domcol.Info{}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testDeps struct {
	indexer   *mockIndexer
	summaries *mockSummarizer
	index     *mockIndexReader
	health    *mockHealth
}

func newTestDeps() *testDeps {
	return &testDeps{
		indexer:   &mockIndexer{},
		summaries: &mockSummarizer{},
		index:     &mockIndexReader{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK},
		}},
	}
}

func (d *testDeps) router(apiKeys ...string) http.Handler {
	s := NewServer(d.indexer, d.summaries, d.index, d.health, 0.5, zap.NewNop())
	return NewRouter(s, apiKeys, zap.NewNop())
}

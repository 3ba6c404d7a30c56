package indexing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	"github.com/kailas-cloud/pollindex/internal/metrics"
)

// DefaultSearchLimit caps SearchPolls when no limit is configured.
const DefaultSearchLimit = 100

// Config holds the indexing settings.
type Config struct {
	VectorSize  int
	SearchLimit int
}

// Service keeps the poll index in step with poll descriptions and answers free-text queries.
type Service struct {
	index      VectorIndex
	embedder   domain.Embedder
	queries    domain.Embedder
	summarizer Summarizer
	cfg        Config
	logger     *zap.Logger
}

// New creates an indexing Service. summarizer may be nil when summary mode is unused.
func New(index VectorIndex, embedder domain.Embedder, summarizer Summarizer, cfg Config, logger *zap.Logger) *Service {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:      index,
		embedder:   embedder,
		queries:    embedder,
		summarizer: summarizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithQueryEmbedder sets a separate embedder for search queries,
// e.g. one with a "search_query: " instruction. Vectors must have the same size.
func (s *Service) WithQueryEmbedder(e domain.Embedder) *Service {
	if e != nil {
		s.queries = e
	}
	return s
}

// IndexPoll embeds the description and upserts it under pollID.
// Re-indexing the same poll overwrites its point.
func (s *Service) IndexPoll(ctx context.Context, pollID, description string) error {
	p, err := poll.New(pollID, description)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.upsert(ctx, p.ID(), p.Description(), ""); err != nil {
		return err
	}
	metrics.PollsIndexedTotal.WithLabelValues("description").Inc()
	return nil
}

// IndexPollSummarized summarizes the description, indexes the summary and
// returns it so the caller can persist it next to the poll.
func (s *Service) IndexPollSummarized(ctx context.Context, pollID, description string) (string, error) {
	if s.summarizer == nil {
		return "", fmt.Errorf("%w: summarizer is not configured", domain.ErrConfiguration)
	}
	p, err := poll.New(pollID, description)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	summary, err := s.summarizer.Summarize(ctx, p.Description())
	if err != nil {
		return "", fmt.Errorf("index poll %s: %w", p.ID(), err)
	}
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("index poll %s: %w: blank summary", p.ID(), domain.ErrMalformedResponse)
	}

	if err := s.upsert(ctx, p.ID(), summary, summary); err != nil {
		return "", err
	}
	metrics.PollsIndexedTotal.WithLabelValues("summary").Inc()
	return summary, nil
}

func (s *Service) upsert(ctx context.Context, pollID, text, summary string) error {
	if err := s.index.EnsureCollectionExists(ctx); err != nil {
		return fmt.Errorf("index poll %s: %w", pollID, err)
	}

	vector, err := s.embed(ctx, s.embedder, text)
	if err != nil {
		return fmt.Errorf("index poll %s: %w", pollID, err)
	}

	if err := s.index.Upsert(ctx, poll.NewPoint(pollID, vector, summary)); err != nil {
		return fmt.Errorf("index poll %s: %w", pollID, err)
	}

	s.logger.Debug("Poll indexed",
		zap.String("poll_id", pollID),
		zap.Bool("summary", summary != ""),
		zap.Int("text_len", len(text)),
	)
	return nil
}

// embed returns a vector checked against the configured size.
func (s *Service) embed(ctx context.Context, e domain.Embedder, text string) ([]float32, error) {
	res, err := e.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(res.Embedding) != s.cfg.VectorSize {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, collection expects %d",
			domain.ErrInvalidEmbedding, len(res.Embedding), s.cfg.VectorSize)
	}
	return res.Embedding, nil
}

// RemovePollFromIndex deletes the poll's point. Removing a poll that was never indexed succeeds.
func (s *Service) RemovePollFromIndex(ctx context.Context, pollID string) error {
	if err := poll.ValidateID(pollID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.index.Delete(ctx, pollID); err != nil {
		return fmt.Errorf("remove poll %s: %w", pollID, err)
	}
	return nil
}

// SearchPolls returns up to the configured limit of polls nearest to query,
// highest score first. Scores are not filtered; see FilterByThreshold.
func (s *Service) SearchPolls(ctx context.Context, query string) ([]hit.Hit, error) {
	return s.SearchPollsLimit(ctx, query, 0)
}

// SearchPollsLimit is SearchPolls with an explicit limit, capped at the configured one.
// limit <= 0 means the configured limit.
func (s *Service) SearchPollsLimit(ctx context.Context, query string, limit int) ([]hit.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > s.cfg.SearchLimit {
		limit = s.cfg.SearchLimit
	}

	if err := s.index.EnsureCollectionExists(ctx); err != nil {
		return nil, fmt.Errorf("search polls: %w", err)
	}

	vector, err := s.embed(ctx, s.queries, query)
	if err != nil {
		return nil, fmt.Errorf("search polls: %w", err)
	}

	hits, err := s.index.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search polls: %w", err)
	}
	return hits, nil
}

// FilterByThreshold keeps hits scoring at least threshold, preserving order.
func FilterByThreshold(hits []hit.Hit, threshold float64) []hit.Hit {
	out := make([]hit.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score() >= threshold {
			out = append(out, h)
		}
	}
	return out
}

package indexing

import (
	"context"

	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
)

// VectorIndex is the poll collection the service writes to and searches.
type VectorIndex interface {
	EnsureCollectionExists(ctx context.Context) error
	Upsert(ctx context.Context, p poll.Point) error
	Delete(ctx context.Context, pollID string) error
	Search(ctx context.Context, vector []float32, limit int) ([]hit.Hit, error)
}

// Summarizer produces the short text indexed in summary mode.
type Summarizer interface {
	Summarize(ctx context.Context, description string) (string, error)
}

package indexing

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
)

// fakeIndex is an in-memory cosine index with the same contract as the store-backed repo.
type fakeIndex struct {
	mu         sync.Mutex
	vectorSize int
	points     map[string]poll.Point
	created    bool

	ensureCalls int
	upserts     []poll.Point
	deletes     []string

	ensureErr error
	upsertErr error
	searchErr error
}

func newFakeIndex(vectorSize int) *fakeIndex {
	return &fakeIndex{vectorSize: vectorSize, points: make(map[string]poll.Point)}
}

func (f *fakeIndex) EnsureCollectionExists(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.created = true
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, p poll.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(p.Vector()) != f.vectorSize {
		return domain.NewDimensionMismatch(f.vectorSize, len(p.Vector()))
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, p)
	f.points[p.PollID()] = p
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, pollID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, pollID)
	delete(f.points, pollID)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, vector []float32, limit int) ([]hit.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(vector) != f.vectorSize {
		return nil, domain.NewDimensionMismatch(f.vectorSize, len(vector))
	}
	hits := make([]hit.Hit, 0, len(f.points))
	for _, p := range f.points {
		hits = append(hits, hit.New(p.PollID(), cosine(vector, p.Vector()), p.Summary()))
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score() > hits[j].Score() })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockEmbedder maps text to a fixed vector; unknown text falls back to vector.
type mockEmbedder struct {
	vectors map[string][]float32
	vector  []float32
	err     error
	calls   []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls = append(m.calls, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: m.vector}, nil
}

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, description string) (string, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, description string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, description)
	}
	return "short summary", nil
}

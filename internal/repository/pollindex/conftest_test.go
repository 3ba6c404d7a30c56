package pollindex

import (
	"context"
	"strconv"
	"testing"

	"github.com/kailas-cloud/pollindex/internal/db"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

const testVectorSize = 4

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn          func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn       func(ctx context.Context, key string) (map[string]string, error)
	delFn           func(ctx context.Context, key string) error
	scanFn          func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn   func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn     func(ctx context.Context, name string) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
	indexDocCountFn func(ctx context.Context, name string) (int, error)
	searchKNNFn     func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) IndexDocCount(ctx context.Context, name string) (int, error) {
	if m.indexDocCountFn != nil {
		return m.indexDocCountFn(ctx, name)
	}
	return 0, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// failingStore fails the test on any call; used to prove validation happens before I/O.
func failingStore(t *testing.T) *mockStore {
	t.Helper()
	fail := func(op string) { t.Helper(); t.Fatalf("unexpected store call: %s", op) }
	return &mockStore{
		hsetFn:          func(context.Context, string, map[string]string) error { fail("HSET"); return nil },
		hgetAllFn:       func(context.Context, string) (map[string]string, error) { fail("HGETALL"); return nil, nil },
		delFn:           func(context.Context, string) error { fail("DEL"); return nil },
		scanFn:          func(context.Context, string) ([]string, error) { fail("SCAN"); return nil, nil },
		createIndexFn:   func(context.Context, *db.IndexDefinition) error { fail("FT.CREATE"); return nil },
		dropIndexFn:     func(context.Context, string) error { fail("FT.DROPINDEX"); return nil },
		indexExistsFn:   func(context.Context, string) (bool, error) { fail("FT.INFO"); return false, nil },
		indexDocCountFn: func(context.Context, string) (int, error) { fail("FT.INFO"); return 0, nil },
		searchKNNFn:     func(context.Context, *db.KNNQuery) (*db.SearchResult, error) { fail("FT.SEARCH"); return nil, nil },
	}
}

func testConfig() Config {
	return Config{
		KeyPrefix:  "pollindex:",
		Collection: "polls",
		VectorSize: testVectorSize,
		Metric:     metric.Cosine,
	}
}

func newTestRepo(t *testing.T, s *mockStore) *Repo {
	t.Helper()
	r, err := New(s, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func metaHash(dim int, distance string) map[string]string {
	return map[string]string{
		"name":       "polls",
		"dimension":  strconv.Itoa(dim),
		"distance":   distance,
		"created_at": "1700000000000",
	}
}

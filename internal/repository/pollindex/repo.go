package pollindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/pollindex/internal/db"
	"github.com/kailas-cloud/pollindex/internal/domain"
	domcol "github.com/kailas-cloud/pollindex/internal/domain/collection"
	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

// store is the consumer interface for the poll index (ISP).
//
//nolint:interfacebloat // index repo needs hash + index management + search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexDocCount(ctx context.Context, name string) (int, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config describes the one collection this repository owns.
type Config struct {
	KeyPrefix  string
	Collection string
	VectorSize int
	Metric     metric.Metric
	HNSW       HNSWConfig
	Timeout    time.Duration // per remote call, 0 = caller's deadline only
}

// Repo is the vector index client for a single poll collection.
type Repo struct {
	store    store
	cfg      Config
	col      domcol.Collection
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a poll index repository. The collection itself is created lazily.
func New(s store, cfg Config) (*Repo, error) {
	col, err := domcol.New(cfg.Collection, cfg.VectorSize, cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if cfg.HNSW.M <= 0 {
		cfg.HNSW.M = 16
	}
	if cfg.HNSW.EFConstruct <= 0 {
		cfg.HNSW.EFConstruct = 200
	}
	cfg.Metric = col.Metric()
	return &Repo{store: s, cfg: cfg, col: col}, nil
}

// WithMetrics attaches per-operation counters (labels: op, status) and latency histograms (label: op).
func (r *Repo) WithMetrics(ops *prometheus.CounterVec, duration *prometheus.HistogramVec) *Repo {
	r.ops = ops
	r.duration = duration
	return r
}

// Collection returns the configured collection.
func (r *Repo) Collection() domcol.Collection { return r.col }

// EnsureCollectionExists creates the collection if absent. Safe to call on every request:
// an existing collection is only verified, never re-created.
func (r *Repo) EnsureCollectionExists(ctx context.Context) (err error) {
	defer r.observe("ensure", time.Now(), &err)
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	idxName := r.indexName()
	exists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return fmt.Errorf("%w: check index %s: %w", domain.ErrIndexUnavailable, idxName, err)
	}
	if exists {
		return r.verifyMeta(ctx)
	}

	indexDef, err := buildIndex(r.cfg)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	// Step 1: HSET metadata
	metaKey := r.metaKey()
	if err := r.store.HSet(ctx, metaKey, collectionToHash(r.col)); err != nil {
		return fmt.Errorf("%w: hset collection %s: %w", domain.ErrIndexUnavailable, r.col.Name(), err)
	}

	// FT.CREATE, on error roll back the HSET
	if err := r.store.CreateIndex(ctx, indexDef); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			// Параллельный запрос успел создать индекс раньше нас.
			return r.verifyMeta(ctx)
		}
		cleanupErr := r.store.Del(ctx, metaKey)
		return fmt.Errorf("%w: create index %s: %w", domain.ErrIndexUnavailable, idxName, errors.Join(err, cleanupErr))
	}

	return nil
}

func (r *Repo) verifyMeta(ctx context.Context) error {
	m, err := r.store.HGetAll(ctx, r.metaKey())
	if err != nil {
		return fmt.Errorf("%w: hgetall collection %s: %w", domain.ErrIndexUnavailable, r.col.Name(), err)
	}
	// Index created out of band, nothing to compare against.
	if len(m) == 0 {
		return nil
	}

	stored, err := collectionFromHash(r.col.Name(), m)
	if err != nil {
		return fmt.Errorf("%w: parse collection %s: %w", domain.ErrIndexUnavailable, r.col.Name(), err)
	}
	if stored.Dimension() != r.cfg.VectorSize {
		return fmt.Errorf("collection %s: %w", r.col.Name(),
			domain.NewDimensionMismatch(r.cfg.VectorSize, stored.Dimension()))
	}
	if stored.Metric() != r.cfg.Metric {
		return fmt.Errorf("%w: collection %s uses %s distance, configured %s",
			domain.ErrConfiguration, r.col.Name(), stored.Metric(), r.cfg.Metric)
	}
	return nil
}

// Upsert stores or overwrites the point for a poll.
// A vector of the wrong length is rejected before any store call.
func (r *Repo) Upsert(ctx context.Context, p poll.Point) (err error) {
	if len(p.Vector()) != r.cfg.VectorSize {
		return domain.NewDimensionMismatch(r.cfg.VectorSize, len(p.Vector()))
	}
	if err := poll.ValidateID(p.PollID()); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	defer r.observe("upsert", time.Now(), &err)
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.pointKey(p.PollID())
	if err := r.store.HSet(ctx, key, pointToHash(p)); err != nil {
		return fmt.Errorf("%w: hset point %s: %w", domain.ErrIndexUnavailable, p.PollID(), err)
	}
	return nil
}

// Delete removes the point for a poll. A poll that was never indexed is not an error.
func (r *Repo) Delete(ctx context.Context, pollID string) (err error) {
	if err := poll.ValidateID(pollID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	defer r.observe("delete", time.Now(), &err)
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.store.Del(ctx, r.pointKey(pollID)); err != nil {
		return fmt.Errorf("%w: del point %s: %w", domain.ErrIndexUnavailable, pollID, err)
	}
	return nil
}

// Get returns the stored point for a poll. found is false when the poll is not indexed.
func (r *Repo) Get(ctx context.Context, pollID string) (_ poll.Point, found bool, err error) {
	if err := poll.ValidateID(pollID); err != nil {
		return poll.Point{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	m, err := r.store.HGetAll(ctx, r.pointKey(pollID))
	if err != nil {
		return poll.Point{}, false, fmt.Errorf("%w: hgetall point %s: %w", domain.ErrIndexUnavailable, pollID, err)
	}
	if len(m) == 0 {
		return poll.Point{}, false, nil
	}
	return pointFromHash(pollID, m), true, nil
}

// Search returns up to limit nearest polls, highest similarity first.
// An empty collection yields an empty, non-nil slice.
func (r *Repo) Search(ctx context.Context, vector []float32, limit int) (_ []hit.Hit, err error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidInput, limit)
	}
	if len(vector) != r.cfg.VectorSize {
		return nil, domain.NewDimensionMismatch(r.cfg.VectorSize, len(vector))
	}

	defer r.observe("search", time.Now(), &err)
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldVector,
		Vector:       vector,
		K:            limit,
		ReturnFields: []string{fieldPollID, fieldSummary},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %w", domain.ErrIndexUnavailable, err)
	}

	hits := make([]hit.Hit, 0, len(res.Entries))
	prefix := r.collectionPrefix()
	for _, e := range res.Entries {
		hits = append(hits, hitFromEntry(e, prefix, r.cfg.Metric))
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score() > hits[j].Score()
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// Count returns the number of indexed points. A missing collection counts as empty.
func (r *Repo) Count(ctx context.Context) (_ int, err error) {
	defer r.observe("count", time.Now(), &err)
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.store.IndexDocCount(ctx, r.indexName())
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: count points: %w", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Info returns the stored collection description and point count.
// Before the first EnsureCollectionExists it reports the configured collection with zero points.
func (r *Repo) Info(ctx context.Context) (domcol.Info, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	col := r.col
	m, err := r.store.HGetAll(ctx, r.metaKey())
	if err != nil {
		return domcol.Info{}, fmt.Errorf("%w: hgetall collection %s: %w", domain.ErrIndexUnavailable, r.col.Name(), err)
	}
	if len(m) > 0 {
		if col, err = collectionFromHash(r.col.Name(), m); err != nil {
			return domcol.Info{}, fmt.Errorf("parse collection %s: %w", r.col.Name(), err)
		}
	}

	n, err := r.Count(ctx)
	if err != nil {
		return domcol.Info{}, err
	}
	return domcol.Info{Collection: col, Points: n}, nil
}

// DropCollection removes the index, every point and the metadata.
// Used only for explicit reindexing, e.g. after a vector size change.
func (r *Repo) DropCollection(ctx context.Context) (err error) {
	defer r.observe("drop", time.Now(), &err)

	// FT.DROPINDEX + scan can outlive a single-call timeout on big collections.
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%w: drop index: %w", domain.ErrIndexUnavailable, err)
	}

	keys, err := r.store.Scan(ctx, r.collectionPrefix()+"*")
	if err != nil {
		return fmt.Errorf("%w: scan points: %w", domain.ErrIndexUnavailable, err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("%w: del %s: %w", domain.ErrIndexUnavailable, key, err)
		}
	}

	if err := r.store.Del(ctx, r.metaKey()); err != nil {
		return fmt.Errorf("%w: del collection %s: %w", domain.ErrIndexUnavailable, r.col.Name(), err)
	}
	return nil
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

func (r *Repo) observe(op string, start time.Time, errp *error) {
	if r.duration != nil {
		r.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	if r.ops == nil {
		return
	}
	status := "ok"
	if *errp != nil {
		status = "error"
	}
	r.ops.WithLabelValues(op, status).Inc()
}

// Key patterns: {prefix}collection:{name}, {prefix}{name}:idx, {prefix}{name}:{poll_id}

func (r *Repo) metaKey() string {
	return fmt.Sprintf("%scollection:%s", r.cfg.KeyPrefix, r.col.Name())
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.cfg.KeyPrefix, r.col.Name())
}

func (r *Repo) collectionPrefix() string {
	return fmt.Sprintf("%s%s:", r.cfg.KeyPrefix, r.col.Name())
}

func (r *Repo) pointKey(pollID string) string {
	return r.collectionPrefix() + pollID
}

func pollIDFromKey(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}

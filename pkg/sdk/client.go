package pollindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/db"
	dbRedis "github.com/kailas-cloud/pollindex/internal/db/redis"
	"github.com/kailas-cloud/pollindex/internal/domain"
	domcol "github.com/kailas-cloud/pollindex/internal/domain/collection"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
	"github.com/kailas-cloud/pollindex/internal/repository/pollindex"
	"github.com/kailas-cloud/pollindex/internal/transport/ollama"
	healthuc "github.com/kailas-cloud/pollindex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/pollindex/internal/usecase/indexing"
	summaryuc "github.com/kailas-cloud/pollindex/internal/usecase/summary"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCollection       = "polls"
	defaultKeyPrefix        = "pollindex:"
	defaultIndexTimeout     = 5 * time.Second
)

var errDegraded = errors.New("pollindex: degraded")

// Внутренние интерфейсы для подмены в тестах.
type indexingUseCase interface {
	IndexPoll(ctx context.Context, pollID, description string) error
	IndexPollSummarized(ctx context.Context, pollID, description string) (string, error)
	RemovePollFromIndex(ctx context.Context, pollID string) error
	SearchPollsLimit(ctx context.Context, query string, limit int) ([]hit.Hit, error)
}

type summaryUseCase interface {
	Summarize(ctx context.Context, description string) (string, error)
	SummarizeOrFlag(ctx context.Context, description string) (string, error)
}

type indexAdmin interface {
	Info(ctx context.Context) (domcol.Info, error)
	DropCollection(ctx context.Context) error
}

// Client is the pollindex SDK entry point. It is safe for concurrent use.
type Client struct {
	store      db.Store
	indexSvc   indexingUseCase
	summarySvc summaryUseCase
	admin      indexAdmin
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a Client, connects to the store and checks it is ready.
// The collection itself is created on first use.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorSize: domain.DefaultVectorConfig().Dimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	applyDefaults(cfg)

	if len(cfg.addrs) == 0 {
		return nil, fmt.Errorf("%w: database address required (use WithValkey or WithRedis)", ErrConfiguration)
	}
	if cfg.embedder == nil && cfg.ollamaURL == "" {
		return nil, fmt.Errorf("%w: embedder required (use WithOllama or WithEmbedder)", ErrConfiguration)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: database not ready: %w", ErrIndexUnavailable, err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func applyDefaults(cfg *clientConfig) {
	if cfg.collection == "" {
		cfg.collection = defaultCollection
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = defaultKeyPrefix
	}
	if cfg.distance == "" {
		cfg.distance = Cosine
	}
	if cfg.indexTimeout <= 0 {
		cfg.indexTimeout = defaultIndexTimeout
	}
	if cfg.generationModel == "" {
		cfg.generationModel = domain.DefaultVectorConfig().GenerationModel
	}
	if cfg.embeddingModel == "" {
		cfg.embeddingModel = domain.DefaultVectorConfig().EmbeddingModel
	}
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		// один протокол FT.* для valkey-search и RediSearch
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("pollindex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrConfiguration, cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	dist, ok := metric.Parse(string(cfg.distance))
	if !ok {
		return nil, fmt.Errorf("%w: unknown distance %q", ErrConfiguration, cfg.distance)
	}

	repo, err := pollindex.New(store, pollindex.Config{
		KeyPrefix:  cfg.keyPrefix,
		Collection: cfg.collection,
		VectorSize: cfg.vectorSize,
		Metric:     dist,
		HNSW:       pollindex.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct},
		Timeout:    cfg.indexTimeout,
	})
	if err != nil {
		return nil, err
	}

	var (
		emb    domain.Embedder
		gen    summaryuc.Generator
		models = map[string]healthuc.ModelChecker{}
	)
	if cfg.ollamaURL != "" {
		oc := ollama.New(&ollama.Config{
			BaseURL:         cfg.ollamaURL,
			GenerationModel: cfg.generationModel,
			EmbeddingModel:  cfg.embeddingModel,
			Timeout:         cfg.modelTimeout,
			Logger:          zap.NewNop(),
		})
		emb, gen = oc, oc
		models["embedding"] = oc
		models["generation"] = oc
	}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
		delete(models, "embedding")
		if hc, ok := cfg.embedder.(healthuc.ModelChecker); ok {
			models["embedding"] = hc
		}
	}
	if cfg.generator != nil {
		gen = cfg.generator
		delete(models, "generation")
		if hc, ok := cfg.generator.(healthuc.ModelChecker); ok {
			models["generation"] = hc
		}
	}

	c := &Client{
		store:     store,
		admin:     repo,
		healthSvc: healthuc.New(store, models),
		obs:       obs,
	}

	docEmb := domain.NewInstructionEmbedder(emb, cfg.documentInstruction)
	queryEmb := domain.NewInstructionEmbedder(emb, cfg.queryInstruction)

	// nil *summaryuc.Service в интерфейсе не равен nil, поэтому ветвимся явно
	var svc *indexinguc.Service
	if gen != nil {
		sum := summaryuc.New(gen)
		c.summarySvc = sum
		svc = indexinguc.New(repo, docEmb, sum, indexCfg(cfg), zap.NewNop())
	} else {
		c.summarySvc = noGenerator{}
		svc = indexinguc.New(repo, docEmb, nil, indexCfg(cfg), zap.NewNop())
	}
	c.indexSvc = svc.WithQueryEmbedder(queryEmb)
	return c, nil
}

func indexCfg(cfg *clientConfig) indexinguc.Config {
	return indexinguc.Config{VectorSize: cfg.vectorSize, SearchLimit: cfg.searchLimit}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrIndexUnavailable, err)
	}
	return nil
}

// IndexPoll embeds the poll description and stores it under pollID.
// Re-indexing a poll overwrites its previous point.
func (c *Client) IndexPoll(ctx context.Context, pollID, description string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_poll", start, err) }()

	return c.indexSvc.IndexPoll(ctx, pollID, description)
}

// IndexPollSummarized summarizes the description, indexes the summary and returns it.
// Requires a generator (WithOllama or WithGenerator).
func (c *Client) IndexPollSummarized(ctx context.Context, pollID, description string) (summary string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_poll_summarized", start, err) }()

	return c.indexSvc.IndexPollSummarized(ctx, pollID, description)
}

// RemovePoll deletes the poll's point. Removing a never-indexed poll is not an error.
func (c *Client) RemovePoll(ctx context.Context, pollID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("remove_poll", start, err) }()

	return c.indexSvc.RemovePollFromIndex(ctx, pollID)
}

// SearchPolls ranks indexed polls by similarity to query, up to the configured search limit.
// No threshold is applied; see FilterByThreshold.
func (c *Client) SearchPolls(ctx context.Context, query string) ([]Hit, error) {
	return c.SearchPollsLimit(ctx, query, 0)
}

// SearchPollsLimit is SearchPolls with a smaller per-call limit. limit <= 0 means the configured one.
func (c *Client) SearchPollsLimit(ctx context.Context, query string, limit int) (_ []Hit, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_polls", start, err) }()

	hs, err := c.indexSvc.SearchPollsLimit(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return hitsFromDomain(hs), nil
}

// Summarize returns a short neutral summary of the description.
func (c *Client) Summarize(ctx context.Context, description string) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("summarize", start, err) }()

	return c.summarySvc.Summarize(ctx, description)
}

// SummarizeOrFlag returns FlagSentinel for incoherent or aggressive text, otherwise a summary.
// The model's answer is returned unaltered; use IsFlagged to test it.
func (c *Client) SummarizeOrFlag(ctx context.Context, description string) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("summarize_or_flag", start, err) }()

	return c.summarySvc.SummarizeOrFlag(ctx, description)
}

// Collection describes the poll collection and its point count.
func (c *Client) Collection(ctx context.Context) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection_info", start, err) }()

	info, err := c.admin.Info(ctx)
	if err != nil {
		return CollectionInfo{}, err
	}
	out := CollectionInfo{
		Name:       info.Name(),
		Dimensions: info.Dimension(),
		Distance:   Distance(info.Metric()),
		Points:     info.Points,
	}
	if info.CreatedAt() > 0 {
		out.CreatedAt = time.UnixMilli(info.CreatedAt()).UTC()
	}
	return out, nil
}

// DropCollection removes the index, every point and the collection metadata.
// Used to migrate to a different vector size: drop, then re-index from the poll store.
func (c *Client) DropCollection(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("drop_collection", start, err) }()

	return c.admin.DropCollection(ctx)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noGenerator rejects summary calls when no generator is configured.
type noGenerator struct{}

func (noGenerator) Summarize(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: generator not configured (use WithOllama or WithGenerator)", ErrConfiguration)
}

func (noGenerator) SummarizeOrFlag(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: generator not configured (use WithOllama or WithGenerator)", ErrConfiguration)
}

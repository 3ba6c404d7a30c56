package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/config"
	dbRedis "github.com/kailas-cloud/pollindex/internal/db/redis"
	"github.com/kailas-cloud/pollindex/internal/domain"
	logpkg "github.com/kailas-cloud/pollindex/internal/logger"
	"github.com/kailas-cloud/pollindex/internal/metrics"
	"github.com/kailas-cloud/pollindex/internal/repository/embcache"
	"github.com/kailas-cloud/pollindex/internal/repository/pollindex"
	chiTransport "github.com/kailas-cloud/pollindex/internal/transport/chi"
	"github.com/kailas-cloud/pollindex/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/pollindex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/pollindex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pollindex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/pollindex/internal/usecase/indexing"
	summaryuc "github.com/kailas-cloud/pollindex/internal/usecase/summary"
	"github.com/kailas-cloud/pollindex/internal/version"
)

// modelClient is what a provider transport offers: text generation, embeddings and a health check.
type modelClient interface {
	summaryuc.Generator
	domain.Embedder
	domain.HealthChecker
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pollindex API server",
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("model_provider", cfg.Model.Provider),
		zap.String("collection", cfg.Index.CollectionName),
		zap.Int("vector_size", cfg.Index.VectorSize),
	)

	// valkey-search и RediSearch говорят на одном FT.* протоколе
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register(prometheus.DefaultRegisterer)

	// Model endpoints
	gen, embBase := buildModels(&cfg, logger)

	docEmbedder := buildEmbedder(embBase, &cfg, cfg.Model.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(embBase, &cfg, cfg.Model.QueryInstruction, store, logger)
	logger.Info("Models configured",
		zap.String("generation_model", cfg.Model.GenerationModel),
		zap.String("embedding_model", cfg.Model.EmbeddingModel),
		zap.Bool("embedding_cache", cfg.Cache.Enabled),
	)

	// Vector index
	repo, err := pollindex.New(store, pollindex.Config{
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Collection: cfg.Index.CollectionName,
		VectorSize: cfg.Index.VectorSize,
		Metric:     cfg.Metric(),
		HNSW: pollindex.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
		Timeout: time.Duration(cfg.Index.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Invalid index configuration", zap.Error(err))
	}
	repo = repo.WithMetrics(metrics.IndexOperationsTotal, metrics.IndexOperationDuration)

	// Fail fast on a collection created with another vector size.
	if err := repo.EnsureCollectionExists(ctx); err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) || errors.Is(err, domain.ErrConfiguration) {
			logger.Fatal("Collection does not match configuration, drop it with cmd/reindex -drop", zap.Error(err))
		}
		logger.Warn("Collection check failed, will retry on first request", zap.Error(err))
	}

	// Use cases
	summarySvc := summaryuc.New(gen)
	indexSvc := indexinguc.New(repo, docEmbedder, summarySvc, indexinguc.Config{
		VectorSize:  cfg.Index.VectorSize,
		SearchLimit: cfg.Index.SearchLimit,
	}, logger).WithQueryEmbedder(queryEmbedder)
	healthSvc := healthuc.New(store, map[string]healthuc.ModelChecker{
		"embedding":  newEmbeddingHealthChecker(docEmbedder),
		"generation": gen,
	})

	server := chiTransport.NewServer(indexSvc, summarySvc, repo, healthSvc, cfg.Threshold(), logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildModels creates the generator and the base embedder for the configured provider.
func buildModels(cfg *config.Config, logger *zap.Logger) (modelClient, domain.Embedder) {
	timeout := time.Duration(cfg.Model.TimeoutSec) * time.Second

	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		base := openaiTransport.Config{
			APIKey:   cfg.Model.APIKey,
			BaseURL:  cfg.Model.BaseURL,
			Provider: config.ProviderOpenAI,
			Timeout:  timeout,
			Logger:   logger,
		}
		genCfg, embCfg := base, base
		genCfg.Model = cfg.Model.GenerationModel
		embCfg.Model = cfg.Model.EmbeddingModel
		embCfg.Dimensions = cfg.Index.VectorSize
		emb := openaiTransport.NewEmbedder(&embCfg)
		return openAIModels{Generator: openaiTransport.NewGenerator(&genCfg), emb: emb}, emb
	default:
		c := ollama.New(&ollama.Config{
			BaseURL:         ollama.BaseURL(cfg.Model.Host, cfg.Model.Port),
			GenerationModel: cfg.Model.GenerationModel,
			EmbeddingModel:  cfg.Model.EmbeddingModel,
			Timeout:         timeout,
			Logger:          logger,
		})
		return c, c
	}
}

// openAIModels pairs the chat generator with the embedder so both satisfy modelClient.
type openAIModels struct {
	*openaiTransport.Generator
	emb *openaiTransport.Embedder
}

func (m openAIModels) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return m.emb.Embed(ctx, text)
}

// embeddingHealthChecker checks the embedding endpoint through the decorator chain.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: transport -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder,
	cfg *config.Config,
	instruction string,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cfg.Cache.Enabled {
		embedder = embcache.New(base, store, embcache.Config{
			KeyPrefix: cfg.Storage.KeyPrefix,
			Model:     cfg.Model.EmbeddingModel,
			TTL:       time.Duration(cfg.Cache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Model.Provider, cfg.Model.EmbeddingModel, logger,
	)

	// Instruction prefix is outermost: the cache key includes it.
	return domain.NewInstructionEmbedder(embedder, instruction)
}

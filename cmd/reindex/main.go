// Reindex job для pollindex.
// Читает выгрузку polls (JSON lines или parquet) и заново индексирует их через SDK.
// Настройки модели и индекса берутся из того же config/<ENV>.yaml, что и у сервиса,
// чтобы векторы совпадали с теми, что пишет сервер.
//
// Использование:
//
//	reindex -input polls.jsonl -workers 4 -drop
//
// Env vars:
//
//	ENV  имя конфига (default: local)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/config"
	"github.com/kailas-cloud/pollindex/internal/domain"
	logpkg "github.com/kailas-cloud/pollindex/internal/logger"
	"github.com/kailas-cloud/pollindex/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/pollindex/internal/transport/openai"
	pollindex "github.com/kailas-cloud/pollindex/pkg/sdk"
)

type jobConfig struct {
	input       string
	limit       int
	workers     int
	drop        bool
	summarize   bool
	metricsPort string
}

func parseFlags() jobConfig {
	cfg := jobConfig{}
	flag.StringVar(&cfg.input, "input", "", "polls export: .jsonl or .parquet with id and description")
	flag.IntVar(&cfg.limit, "limit", 0, "max polls to index (0=all)")
	flag.IntVar(&cfg.workers, "workers", 4, "number of parallel index workers")
	flag.BoolVar(&cfg.drop, "drop", false, "drop the collection before indexing")
	flag.BoolVar(&cfg.summarize, "summarize", false, "index model summaries instead of raw descriptions")
	flag.StringVar(&cfg.metricsPort, "metrics-port", "", "Prometheus metrics port (empty=disabled)")
	flag.Parse()
	return cfg
}

func main() {
	job := parseFlags()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, &cfg, job, logger); err != nil {
		cancel()
		logger.Fatal("Reindex failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, job jobConfig, logger *zap.Logger) error {
	if job.input == "" {
		return fmt.Errorf("%w: -input is required", domain.ErrConfiguration)
	}
	if job.workers <= 0 {
		return fmt.Errorf("%w: -workers must be positive", domain.ErrConfiguration)
	}
	start := time.Now()

	reg := prometheus.NewRegistry()
	metrics := newLoaderMetrics(reg)
	if job.metricsPort != "" {
		srv := serveMetrics(job.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	client, err := pollindex.New(ctx, sdkOptions(cfg, reg, logger)...)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	if job.metricsPort != "" {
		startValkeyPoller(ctx, cfg, metrics, logger)
	}

	if job.drop {
		if err := client.DropCollection(ctx); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
		logger.Info("Collection dropped", zap.String("collection", cfg.Index.CollectionName))
	}

	ing := &ingester{
		idx:       client,
		workers:   job.workers,
		summarize: job.summarize,
		metrics:   metrics,
		logger:    logger,
	}
	result, err := ing.Run(ctx, job.input, job.limit)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	report(ctx, client, result, start, logger)
	return nil
}

// sdkOptions maps the service config onto SDK options.
func sdkOptions(cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) []pollindex.Option {
	addr, password := cfg.Database.Addrs[0], cfg.Database.Password
	opts := []pollindex.Option{
		pollindex.WithCollection(cfg.Index.CollectionName),
		pollindex.WithKeyPrefix(cfg.Storage.KeyPrefix),
		pollindex.WithVectorSize(cfg.Index.VectorSize),
		pollindex.WithDistance(pollindex.Distance(cfg.Index.Distance)),
		pollindex.WithSearchLimit(cfg.Index.SearchLimit),
		pollindex.WithHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct),
		pollindex.WithIndexTimeout(time.Duration(cfg.Index.TimeoutSec) * time.Second),
		pollindex.WithModelTimeout(time.Duration(cfg.Model.TimeoutSec) * time.Second),
		pollindex.WithInstructions(cfg.Model.DocumentInstruction, cfg.Model.QueryInstruction),
		pollindex.WithPrometheus(reg),
	}
	if cfg.Database.Driver == "redis" {
		opts = append(opts, pollindex.WithRedis(addr, password))
	} else {
		opts = append(opts, pollindex.WithValkey(addr, password))
	}

	if cfg.Model.Provider == config.ProviderOpenAI {
		base := openaiTransport.Config{
			APIKey:   cfg.Model.APIKey,
			BaseURL:  cfg.Model.BaseURL,
			Provider: config.ProviderOpenAI,
			Timeout:  time.Duration(cfg.Model.TimeoutSec) * time.Second,
			Logger:   logger,
		}
		genCfg, embCfg := base, base
		genCfg.Model = cfg.Model.GenerationModel
		embCfg.Model = cfg.Model.EmbeddingModel
		embCfg.Dimensions = cfg.Index.VectorSize
		return append(opts,
			pollindex.WithEmbedder(&sdkEmbedder{inner: openaiTransport.NewEmbedder(&embCfg)}),
			pollindex.WithGenerator(openaiTransport.NewGenerator(&genCfg)),
		)
	}
	return append(opts, pollindex.WithOllama(
		ollama.BaseURL(cfg.Model.Host, cfg.Model.Port),
		cfg.Model.GenerationModel,
		cfg.Model.EmbeddingModel,
	))
}

// sdkEmbedder exposes a domain embedder through the public SDK interface.
type sdkEmbedder struct {
	inner domain.Embedder
}

func (e *sdkEmbedder) Embed(ctx context.Context, text string) (pollindex.EmbeddingResult, error) {
	r, err := e.inner.Embed(ctx, text)
	if err != nil {
		return pollindex.EmbeddingResult{}, err
	}
	return pollindex.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (e *sdkEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func startValkeyPoller(ctx context.Context, cfg *config.Config, metrics *loaderMetrics, logger *zap.Logger) {
	rc, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: cfg.Database.Addrs,
		Password:    cfg.Database.Password,
	})
	if err != nil {
		logger.Warn("Cannot connect for store metrics", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		rc.Close()
	}()

	poller := &valkeyPoller{
		client:    rc,
		metrics:   metrics,
		indexName: cfg.Storage.KeyPrefix + cfg.Index.CollectionName + ":idx",
		interval:  15 * time.Second,
	}
	poller.Start(ctx)
}

func report(ctx context.Context, client *pollindex.Client, result ingestResult, start time.Time, logger *zap.Logger) {
	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.Int("read", result.Read),
		zap.Int64("processed", result.Processed),
		zap.Int64("failed", result.Failed),
		zap.Duration("elapsed", elapsed.Round(time.Second)),
	}
	if secs := result.Duration.Seconds(); secs > 0 {
		fields = append(fields, zap.Float64("polls_per_sec", float64(result.Processed)/secs))
	}

	info, err := client.Collection(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Cannot read collection info", zap.Error(err))
	} else if err == nil {
		fields = append(fields, zap.String("collection", info.Name), zap.Int("points", info.Points))
	}
	logger.Info("Reindex done", fields...)
}

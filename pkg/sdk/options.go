package pollindex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	ollamaURL       string
	generationModel string
	embeddingModel  string
	modelTimeout    time.Duration

	embedder  Embedder
	generator Generator

	documentInstruction string
	queryInstruction    string

	collection      string
	keyPrefix       string
	vectorSize      int
	distance        Distance
	searchLimit     int
	hnswM           int
	hnswEFConstruct int
	indexTimeout    time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey connects to a Valkey instance with the valkey-search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis connects to a Redis 8 instance (RediSearch built in).
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithOllama uses an Ollama server for both summaries and embeddings.
// WithEmbedder and WithGenerator take precedence when also given.
func WithOllama(baseURL, generationModel, embeddingModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.ollamaURL = baseURL
		c.generationModel = generationModel
		c.embeddingModel = embeddingModel
	})
}

// WithModelTimeout bounds each model call. Default: 60s.
func WithModelTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelTimeout = d
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the text generation provider used for summaries.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithInstructions prepends task instructions to texts before embedding.
// Indexed descriptions get document, search queries get query.
// Must match the server settings, otherwise vectors from both sides are not comparable.
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.documentInstruction = document
		c.queryInstruction = query
	})
}

// WithCollection sets the collection name. Default: "polls".
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithKeyPrefix sets the key namespace in the store. Default: "pollindex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithVectorSize sets the embedding dimension the collection is created with.
// Must match the embedding model. Default: 768 (nomic-embed-text).
func WithVectorSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorSize = n
	})
}

// WithDistance sets the collection distance. Default: Cosine.
func WithDistance(d Distance) Option {
	return optionFunc(func(c *clientConfig) {
		c.distance = d
	})
}

// WithSearchLimit caps the number of hits SearchPolls returns. Default: 100.
func WithSearchLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchLimit = n
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithIndexTimeout bounds each index call. Default: 5s.
func WithIndexTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

// Model providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds the pollindex service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Model    ModelConfig    `yaml:"model"`
	Index    IndexConfig    `yaml:"index"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModelConfig holds the text generation and embedding endpoint settings.
type ModelConfig struct {
	Provider        string `yaml:"provider"` // ollama, openai (default: ollama)
	Host            string `yaml:"host"`     // ollama only
	Port            int    `yaml:"port"`     // ollama only
	BaseURL         string `yaml:"base_url"` // openai-compatible endpoint
	APIKey          string `yaml:"api_key"`
	GenerationModel string `yaml:"generation_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	TimeoutSec      int    `yaml:"timeout_sec"`

	// Optional prefixes some embedding models expect (nomic-embed-text: "search_document: ").
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// IndexConfig holds the poll collection and HNSW settings.
type IndexConfig struct {
	CollectionName      string   `yaml:"collection_name"`
	VectorSize          int      `yaml:"vector_size"`
	Distance            string   `yaml:"distance"`             // cosine, l2, ip
	SimilarityThreshold *float64 `yaml:"similarity_threshold"` // nil = default, 0 keeps every hit
	SearchLimit         int      `yaml:"search_limit"`
	HNSWM               int      `yaml:"hnsw_m"`
	HNSWEFConstruct     int      `yaml:"hnsw_ef_construction"`
	TimeoutSec          int      `yaml:"timeout_sec"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"` // 0 = no expiry
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config %s: %w", domain.ErrConfiguration, configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %w", domain.ErrConfiguration, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	d := domain.DefaultVectorConfig()

	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// генерация саммари на CPU легко занимает полминуты
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Model.Provider == "" {
		c.Model.Provider = ProviderOllama
	}
	if c.Model.GenerationModel == "" {
		c.Model.GenerationModel = d.GenerationModel
	}
	if c.Model.EmbeddingModel == "" {
		c.Model.EmbeddingModel = d.EmbeddingModel
	}
	if c.Model.TimeoutSec <= 0 {
		c.Model.TimeoutSec = 60
	}
	if c.Index.Distance == "" {
		c.Index.Distance = d.DistanceMetric
	}
	if c.Index.SimilarityThreshold == nil {
		t := d.SimilarityThreshold
		c.Index.SimilarityThreshold = &t
	}
	if c.Index.SearchLimit <= 0 {
		c.Index.SearchLimit = d.SearchLimit
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Index.TimeoutSec <= 0 {
		c.Index.TimeoutSec = 5
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "pollindex:"
	}
}

// Validate checks the configuration for correctness. Every failure wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "", "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}

	switch c.Model.Provider {
	case ProviderOllama:
		if c.Model.Host == "" {
			return fmt.Errorf("model.host is required for provider %q", ProviderOllama)
		}
		if c.Model.Port < 0 || c.Model.Port > 65535 {
			return fmt.Errorf("model.port must be between 0 and 65535, got %d", c.Model.Port)
		}
	case ProviderOpenAI:
		if c.Model.BaseURL == "" {
			return fmt.Errorf("model.base_url is required for provider %q", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("model.provider must be %q or %q, got %q", ProviderOllama, ProviderOpenAI, c.Model.Provider)
	}
	if c.Model.GenerationModel == "" || c.Model.EmbeddingModel == "" {
		return fmt.Errorf("model.generation_model and model.embedding_model are required")
	}

	if c.Index.CollectionName == "" {
		return fmt.Errorf("index.collection_name is required")
	}
	if c.Index.VectorSize <= 0 {
		return fmt.Errorf("index.vector_size must be positive, got %d", c.Index.VectorSize)
	}
	if _, ok := metric.Parse(c.Index.Distance); !ok {
		return fmt.Errorf("index.distance must be cosine, l2 or ip, got %q", c.Index.Distance)
	}
	if t := c.Threshold(); t < 0 || t > 1 {
		return fmt.Errorf("index.similarity_threshold must be within [0, 1], got %g", t)
	}
	if c.Cache.TTLHours < 0 {
		return fmt.Errorf("cache.ttl_hours must not be negative, got %d", c.Cache.TTLHours)
	}
	return nil
}

// Threshold returns the configured similarity threshold, or the default when unset.
func (c *Config) Threshold() float64 {
	if c.Index.SimilarityThreshold == nil {
		return domain.DefaultVectorConfig().SimilarityThreshold
	}
	return *c.Index.SimilarityThreshold
}

// Metric returns the parsed index distance.
func (c *Config) Metric() metric.Metric {
	m, _ := metric.Parse(c.Index.Distance)
	return m
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/pollindex/internal/domain"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Model:    ModelConfig{Host: "localhost", Port: 11434},
		Index:    IndexConfig{CollectionName: "polls", VectorSize: 768},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "memcached" }, "database.driver"},
		{"missing ollama host", func(c *Config) { c.Model.Host = "" }, "model.host"},
		{"openai without base url", func(c *Config) { c.Model.Provider = ProviderOpenAI }, "model.base_url"},
		{"unknown provider", func(c *Config) { c.Model.Provider = "bedrock" }, "model.provider"},
		{"missing embedding model", func(c *Config) { c.Model.EmbeddingModel = "" }, "model.embedding_model"},
		{"missing collection", func(c *Config) { c.Index.CollectionName = "" }, "index.collection_name"},
		{"zero vector size", func(c *Config) { c.Index.VectorSize = 0 }, "index.vector_size"},
		{"bad distance", func(c *Config) { c.Index.Distance = "hamming" }, "index.distance"},
		{"threshold above one", func(c *Config) { t := 1.5; c.Index.SimilarityThreshold = &t }, "index.similarity_threshold"},
		{"negative ttl", func(c *Config) { c.Cache.TTLHours = -1 }, "cache.ttl_hours"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected WriteTimeoutSec=120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Model.Provider != ProviderOllama {
		t.Errorf("expected Provider=ollama, got %q", cfg.Model.Provider)
	}
	if cfg.Model.GenerationModel != "llama3.1" || cfg.Model.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("unexpected models: %q, %q", cfg.Model.GenerationModel, cfg.Model.EmbeddingModel)
	}
	if cfg.Index.SearchLimit != 100 {
		t.Errorf("expected SearchLimit=100, got %d", cfg.Index.SearchLimit)
	}
	if cfg.Threshold() != 0.5 {
		t.Errorf("expected SimilarityThreshold=0.5, got %g", cfg.Threshold())
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("unexpected HNSW defaults: %d, %d", cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct)
	}
	if cfg.Metric() != metric.Cosine {
		t.Errorf("expected cosine, got %q", cfg.Metric())
	}
	if cfg.Storage.KeyPrefix != "pollindex:" {
		t.Errorf("expected KeyPrefix='pollindex:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60},
		Model:   ModelConfig{Provider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
		Index:   IndexConfig{Distance: "l2", SearchLimit: 10, HNSWM: 16},
		Storage: StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Model.Provider != ProviderOpenAI || cfg.Model.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("model settings overridden: %+v", cfg.Model)
	}
	if cfg.Metric() != metric.L2 || cfg.Index.SearchLimit != 10 || cfg.Index.HNSWM != 16 {
		t.Errorf("index settings overridden: %+v", cfg.Index)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestParse_ZeroThresholdKept(t *testing.T) {
	cfg, err := Parse([]byte(`
http:
  port: 8080
database:
  addrs: ["localhost:6379"]
model:
  host: localhost
  port: 11434
index:
  collection_name: polls
  vector_size: 768
  similarity_threshold: 0
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Threshold() != 0 {
		t.Errorf("explicit zero threshold replaced with %g", cfg.Threshold())
	}
}

func TestThreshold_Unset(t *testing.T) {
	cfg := Config{}
	if cfg.Threshold() != 0.5 {
		t.Errorf("expected default 0.5, got %g", cfg.Threshold())
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("POLLINDEX_TEST_ADDR", "valkey:6379")

	cfg, err := Parse([]byte(`
http:
  port: 8080
database:
  addrs: ["${POLLINDEX_TEST_ADDR}"]
model:
  host: ${POLLINDEX_TEST_OLLAMA:-ollama}
index:
  collection_name: polls
  vector_size: 768
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Addrs[0] != "valkey:6379" {
		t.Errorf("addr = %q", cfg.Database.Addrs[0])
	}
	if cfg.Model.Host != "ollama" {
		t.Errorf("host = %q, want default", cfg.Model.Host)
	}
}

func TestParse_MissingVectorSize(t *testing.T) {
	_, err := Parse([]byte("http:\n  port: 8080\ndatabase:\n  addrs: [x]\nmodel:\n  host: h\nindex:\n  collection_name: polls\n"))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("http: [unclosed"))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Index.CollectionName != "polls" || cfg.Index.VectorSize != 768 {
		t.Errorf("unexpected index config: %+v", cfg.Index)
	}
}

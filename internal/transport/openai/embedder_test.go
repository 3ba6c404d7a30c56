package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/domain"
)

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}

		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}

		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3}})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("embedding length = %d, expected 3", len(result.Embedding))
	}
	if result.Embedding[0] != 0.1 {
		t.Errorf("vec[0] = %f, expected 0.1", result.Embedding[0])
	}
}

func TestEmbedder_EmbedReturnsUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: []float32{0.1, 0.2}})
		resp.Usage.PromptTokens = 42
		resp.Usage.TotalTokens = 42

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if result.PromptTokens != 42 || result.TotalTokens != 42 {
		t.Errorf("usage = %d/%d, expected 42/42", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedder_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openaiEmbeddingResponse{Object: "list", Data: []embeddingData{}})
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmptyEmbedding) {
		t.Fatalf("expected ErrEmptyEmbedding, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
	var re *domain.RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected RemoteError 429, got %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"quota exhausted"}`)); got != "quota exhausted" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("expected empty detail, got %q", got)
	}
}

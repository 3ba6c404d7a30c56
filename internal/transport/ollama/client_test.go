package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/pollindex/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(&Config{
		BaseURL:         srv.URL,
		GenerationModel: "llama3.1",
		EmbeddingModel:  "nomic-embed-text",
		Timeout:         5 * time.Second,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// --- Generate ---

func TestGenerate_Success(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeJSON(w, map[string]any{"response": "Team proposes a four-day week.", "done": true, "eval_count": 9})
	})

	out, err := c.Generate(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "Team proposes a four-day week." {
		t.Errorf("response = %q", out)
	}
	if got.Model != "llama3.1" || got.Prompt != "summarize this" || got.Stream {
		t.Errorf("unexpected request body: %+v", got)
	}
}

func TestGenerate_StreamFalseIsSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if v, ok := raw["stream"]; !ok || v != false {
			t.Errorf("expected explicit stream=false, got %v", raw)
		}
		writeJSON(w, map[string]any{"response": "ok"})
	})
	if _, err := c.Generate(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerate_SentinelReturnedVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"response": "INADEQUATE"})
	})

	out, err := c.Generate(context.Background(), "YOU ALL WILL REGRET THIS!!!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "INADEQUATE" {
		t.Errorf("response = %q, want sentinel", out)
	}
}

func TestGenerate_MissingResponseField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"done": true})
	})

	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGenerate_EmptyResponseField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"response": "", "done": true})
	})

	out, err := c.Generate(context.Background(), "x")
	if err != nil {
		t.Fatalf("empty response is a valid answer, got %v", err)
	}
	if out != "" {
		t.Errorf("Generate() = %q, want empty", out)
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway</html>"))
	})

	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]any{"error": "model 'llama3.1' not found"})
	})

	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
	var re *domain.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *domain.RemoteError, got %T", err)
	}
	if re.StatusCode != http.StatusInternalServerError || re.Endpoint != "/api/generate" {
		t.Errorf("unexpected remote error: %+v", re)
	}
	if re.Body != "model 'llama3.1' not found" {
		t.Errorf("body = %q", re.Body)
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(&Config{BaseURL: url, GenerationModel: "llama3.1", Timeout: time.Second})
	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService on timeout, got %v", err)
	}
}

// --- Embed ---

func TestEmbed_Success768(t *testing.T) {
	vec := make([]float32, 768)
	for i := range vec {
		vec[i] = float32(i) / 768
	}
	var got embedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, map[string]any{"model": "nomic-embed-text", "embeddings": [][]float32{vec}, "prompt_eval_count": 12})
	})

	res, err := c.Embed(context.Background(), "four day week")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(res.Embedding) != 768 {
		t.Fatalf("embedding length = %d, want 768", len(res.Embedding))
	}
	if res.Embedding[767] != vec[767] {
		t.Errorf("last component = %v, want %v", res.Embedding[767], vec[767])
	}
	if res.PromptTokens != 12 {
		t.Errorf("PromptTokens = %d, want 12", res.PromptTokens)
	}
	if got.Model != "nomic-embed-text" || got.Input != "four day week" || got.Stream {
		t.Errorf("unexpected request body: %+v", got)
	}
}

func TestEmbed_FirstVectorOnly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"embeddings": [][]float32{{1, 2}, {3, 4, 5}}})
	})

	res, err := c.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 2 || res.Embedding[0] != 1 {
		t.Errorf("expected first vector, got %v", res.Embedding)
	}
}

func TestEmbed_EmptyVariants(t *testing.T) {
	bodies := map[string]string{
		"null":         `{"embeddings": null}`,
		"missing":      `{"model": "nomic-embed-text"}`,
		"empty list":   `{"embeddings": []}`,
		"empty vector": `{"embeddings": [[]]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Embed(context.Background(), "x")
			if !errors.Is(err, domain.ErrEmptyEmbedding) {
				t.Fatalf("expected ErrEmptyEmbedding, got %v", err)
			}
		})
	}
}

func TestEmbed_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, "x"]]}`))
	})
	if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestEmbed_BadRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad input", http.StatusBadRequest)
	})
	_, err := c.Embed(context.Background(), "x")
	var re *domain.RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected RemoteError 400, got %v", err)
	}
}

// --- HealthCheck ---

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, map[string]any{"models": []any{}})
	})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthCheck_Down(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if err := c.HealthCheck(context.Background()); !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 11434, "http://localhost:11434"},
		{"https://ollama.internal", 443, "https://ollama.internal:443"},
		{"http://ollama", 0, "http://ollama"},
	}
	for _, tc := range tests {
		if got := BaseURL(tc.host, tc.port); got != tc.want {
			t.Errorf("BaseURL(%q, %d) = %q, want %q", tc.host, tc.port, got, tc.want)
		}
	}
}

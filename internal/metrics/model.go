package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Model endpoint metrics. op is "generate" or "embed".
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "model_requests_total",
			Help:      "Total number of model endpoint requests",
		},
		[]string{"provider", "model", "op", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pollindex",
			Name:      "model_request_duration_seconds",
			Help:      "Model endpoint request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model", "op"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "model_tokens_total",
			Help:      "Total tokens reported by the model endpoint",
		},
		[]string{"provider", "model", "type"},
	)

	ModelErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "model_errors_total",
			Help:      "Total model endpoint errors",
		},
		[]string{"provider", "model", "op", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Index metrics.
var (
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "index_operations_total",
			Help:      "Vector index operations by op and status",
		},
		[]string{"op", "status"},
	)

	IndexOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pollindex",
			Name:      "index_operation_duration_seconds",
			Help:      "Vector index operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"op"},
	)

	PollsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "polls_indexed_total",
			Help:      "Polls written to the index, by source text",
		},
		[]string{"source"}, // "description" / "summary"
	)
)

var registerOnce sync.Once

// Register registers the domain metrics with reg. Safe to call more than once;
// only the first registerer wins. HTTP metrics self-register in init.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			ModelRequestsTotal,
			ModelRequestDuration,
			ModelTokensTotal,
			ModelErrorsTotal,
			EmbeddingCacheTotal,
			IndexOperationsTotal,
			IndexOperationDuration,
			PollsIndexedTotal,
		)
	})
}

// Prometheus метрики для reindex: прогресс, latency на poll, память Valkey и размер индекса.
package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	pollindex "github.com/kailas-cloud/pollindex/pkg/sdk"
)

const metricsNamespace = "pollindex_reindex"

// loaderMetrics holds the reindex job metrics.
type loaderMetrics struct {
	pollsProcessed prometheus.Counter
	pollsFailed    *prometheus.CounterVec
	pollDuration   prometheus.Histogram

	valkeyMemory *prometheus.GaugeVec
	indexDocs    prometheus.Gauge
}

func newLoaderMetrics(reg prometheus.Registerer) *loaderMetrics {
	m := &loaderMetrics{
		pollsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_processed_total",
			Help:      "Total polls indexed",
		}),
		pollsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_failed_total",
			Help:      "Total polls that failed to index",
		}, []string{"reason"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Time to summarize, embed and upsert one poll",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		valkeyMemory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "valkey_memory_bytes",
			Help:      "Valkey memory usage",
		}, []string{"type"}),
		indexDocs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "index_docs_total",
			Help:      "Number of polls in the index",
		}),
	}

	reg.MustRegister(m.pollsProcessed, m.pollsFailed, m.pollDuration, m.valkeyMemory, m.indexDocs)
	return m
}

func (m *loaderMetrics) observe(d time.Duration, err error) {
	m.pollDuration.Observe(d.Seconds())
	if err != nil {
		m.pollsFailed.WithLabelValues(failureReason(err)).Inc()
		return
	}
	m.pollsProcessed.Inc()
}

// failureReason maps an SDK error to a bounded label value.
func failureReason(err error) string {
	switch {
	case errors.Is(err, pollindex.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, pollindex.ErrRemoteService), errors.Is(err, pollindex.ErrMalformedResponse):
		return "model"
	case errors.Is(err, pollindex.ErrEmptyEmbedding), errors.Is(err, pollindex.ErrInvalidEmbedding),
		errors.Is(err, pollindex.ErrDimensionMismatch):
		return "embedding"
	case errors.Is(err, pollindex.ErrIndexUnavailable):
		return "index"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// serveMetrics starts the scrape endpoint on its own registry.
func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return srv
}

// valkeyPoller periodically reads memory and index size from Valkey.
type valkeyPoller struct {
	client    rueidis.Client
	metrics   *loaderMetrics
	indexName string
	interval  time.Duration
}

// Start runs the poller until ctx is done.
func (p *valkeyPoller) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

func (p *valkeyPoller) poll(ctx context.Context) {
	p.pollMemory(ctx)
	p.pollIndex(ctx)
}

func (p *valkeyPoller) pollMemory(ctx context.Context) {
	text, err := p.client.Do(ctx, p.client.B().Info().Section("memory").Build()).ToString()
	if err != nil {
		return
	}
	for _, kv := range parseInfoFields(text) {
		switch kv.key {
		case "used_memory":
			p.metrics.valkeyMemory.WithLabelValues("used").Set(kv.val)
		case "used_memory_peak":
			p.metrics.valkeyMemory.WithLabelValues("peak").Set(kv.val)
		case "used_memory_rss":
			p.metrics.valkeyMemory.WithLabelValues("rss").Set(kv.val)
		}
	}
}

func (p *valkeyPoller) pollIndex(ctx context.Context) {
	arr, err := p.client.Do(ctx, p.client.B().Arbitrary("FT.INFO").Args(p.indexName).Build()).ToArray()
	if err != nil {
		return
	}
	// FT.INFO: плоский список ключ-значение
	for i := 0; i+1 < len(arr); i += 2 {
		key, _ := arr[i].ToString()
		if key != "num_docs" {
			continue
		}
		// valkey-search отдаёт integer, RediSearch строку
		if n, err := arr[i+1].AsInt64(); err == nil {
			p.metrics.indexDocs.Set(float64(n))
		} else if v, err := arr[i+1].AsFloat64(); err == nil {
			p.metrics.indexDocs.Set(v)
		}
		return
	}
}

type infoField struct {
	key string
	val float64
}

// parseInfoFields reads numeric "key:value" lines of an INFO reply. Section headers and
// non-numeric values are skipped.
func parseInfoFields(text string) []infoField {
	var fields []infoField
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, raw, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		fields = append(fields, infoField{key: key, val: val})
	}
	return fields
}

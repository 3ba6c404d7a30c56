package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// OpUnknown labels requests that matched no named route (404, 405).
const OpUnknown = "unknown"

// HTTP metrics per poll operation. Self-registered on the default registry.
var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pollindex",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by poll operation",
			// index and search wait on the model endpoint: seconds, not milliseconds
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pollindex",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by poll operation and status",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
}

// Operations maps "METHOD /route/pattern" to an operation label.
type Operations map[string]string

// Lookup returns the operation for a matched chi route, OpUnknown otherwise.
func (o Operations) Lookup(method, pattern string) string {
	if op, ok := o[method+" "+pattern]; ok {
		return op
	}
	return OpUnknown
}

// Middleware records duration and count per operation. Routes mapped to "" (scrapes) are not recorded.
func Middleware(ops Operations) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			var pattern string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			op := ops.Lookup(r.Method, pattern)
			if op == "" {
				return
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
		})
	}
}

package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pollindex/internal/domain"
	domcol "github.com/kailas-cloud/pollindex/internal/domain/collection"
	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	domsum "github.com/kailas-cloud/pollindex/internal/domain/summary"
	logpkg "github.com/kailas-cloud/pollindex/internal/logger"
	"github.com/kailas-cloud/pollindex/internal/metrics"
	healthuc "github.com/kailas-cloud/pollindex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/pollindex/internal/usecase/indexing"
)

const maxBodySize = 1 << 20

// Indexer is the indexing use case consumed by the handlers.
type Indexer interface {
	IndexPoll(ctx context.Context, pollID, description string) error
	IndexPollSummarized(ctx context.Context, pollID, description string) (string, error)
	RemovePollFromIndex(ctx context.Context, pollID string) error
	SearchPollsLimit(ctx context.Context, query string, limit int) ([]hit.Hit, error)
}

// Summarizer is the summary use case consumed by the handlers.
type Summarizer interface {
	Summarize(ctx context.Context, description string) (string, error)
	SummarizeOrFlag(ctx context.Context, description string) (string, error)
}

// IndexReader exposes read-only index state.
type IndexReader interface {
	Get(ctx context.Context, pollID string) (poll.Point, bool, error)
	Info(ctx context.Context) (domcol.Info, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the poll index HTTP API.
type Server struct {
	indexer       Indexer
	summaries     Summarizer
	index         IndexReader
	health        HealthChecker
	threshold     float64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. threshold is applied to searches that ask for it.
func NewServer(
	indexer Indexer,
	summaries Summarizer,
	index IndexReader,
	health HealthChecker,
	threshold float64,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		indexer:   indexer,
		summaries: summaries,
		index:     index,
		health:    health,
		threshold: threshold,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, ErrorResponseCodeDimensionMismatch),
		sentinelHandler(domain.ErrInvalidEmbedding, http.StatusInternalServerError, ErrorResponseCodeInvalidEmbedding),
		sentinelHandler(domain.ErrEmptyEmbedding, http.StatusBadGateway, ErrorResponseCodeEmptyEmbedding),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, ErrorResponseCodeMalformedResponse),
		sentinelHandler(domain.ErrRemoteService, http.StatusBadGateway, ErrorResponseCodeModelError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorResponseCodeIndexUnavailable),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, ErrorResponseCodeConfiguration),
	}
	return s
}

// routeOperations names each route for the HTTP metrics. Scrapes are not recorded.
var routeOperations = metrics.Operations{
	"PUT /polls/{id}/index":    "index_poll",
	"GET /polls/{id}/index":    "get_indexed_poll",
	"DELETE /polls/{id}/index": "remove_poll",
	"POST /polls/search":       "search_polls",
	"POST /summaries":          "summarize",
	"GET /collection":          "collection",
	"GET /health":              "health",
	"GET /metrics":             "",
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Put("/polls/{id}/index", s.IndexPoll)
	r.Get("/polls/{id}/index", s.GetIndexedPoll)
	r.Delete("/polls/{id}/index", s.RemovePoll)
	r.Post("/polls/search", s.SearchPolls)
	r.Post("/summaries", s.Summarize)
	r.Get("/collection", s.GetCollection)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// IndexPoll handles PUT /polls/{id}/index.
func (s *Server) IndexPoll(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pollIDParam(w, r)
	if !ok {
		return
	}

	var req IndexPollRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp := IndexPollResponse{PollID: id}
	if req.Summarize {
		summary, err := s.indexer.IndexPollSummarized(r.Context(), id, req.Description)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Summary = &summary
	} else if err := s.indexer.IndexPoll(r.Context(), id, req.Description); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetIndexedPoll handles GET /polls/{id}/index.
func (s *Server) GetIndexedPoll(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pollIDParam(w, r)
	if !ok {
		return
	}

	p, found, err := s.index.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, ErrorResponseCodeNotFound, "poll is not indexed")
		return
	}

	writeJSON(w, http.StatusOK, IndexedPointResponse{
		PollID:     p.PollID(),
		Summary:    optional(p.Summary()),
		IndexedAt:  time.UnixMilli(p.IndexedAt()).UTC(),
		Dimensions: len(p.Vector()),
	})
}

// RemovePoll handles DELETE /polls/{id}/index.
func (s *Server) RemovePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pollIDParam(w, r)
	if !ok {
		return
	}

	if err := s.indexer.RemovePollFromIndex(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchPolls handles POST /polls/search.
func (s *Server) SearchPolls(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	limit := 0
	if req.Limit != nil {
		if *req.Limit <= 0 {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "limit must be positive")
			return
		}
		limit = *req.Limit
	}

	hits, err := s.indexer.SearchPollsLimit(r.Context(), req.Query, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := SearchResponse{}
	if req.ApplyThreshold {
		hits = indexinguc.FilterByThreshold(hits, s.threshold)
		threshold := s.threshold
		resp.Threshold = &threshold
	}

	resp.Items = make([]SearchHit, len(hits))
	for i, h := range hits {
		resp.Items[i] = SearchHit{PollID: h.PollID(), Score: h.Score(), Summary: optional(h.Summary())}
	}
	resp.Total = len(resp.Items)

	writeJSON(w, http.StatusOK, resp)
}

// Summarize handles POST /summaries.
func (s *Server) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		out string
		err error
	)
	if req.Flag {
		out, err = s.summaries.SummarizeOrFlag(r.Context(), req.Description)
	} else {
		out, err = s.summaries.Summarize(r.Context(), req.Description)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary: out,
		Flagged: req.Flag && domsum.IsFlagged(out),
	})
}

// GetCollection handles GET /collection.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	info, err := s.index.Info(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := CollectionResponse{
		Name:       info.Name(),
		Dimensions: info.Dimension(),
		Distance:   string(info.Metric()),
		Points:     info.Points,
	}
	if info.CreatedAt() > 0 {
		created := time.UnixMilli(info.CreatedAt()).UTC()
		resp.CreatedAt = &created
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// pollIDParam binds the {id} path parameter the way generated chi wrappers do.
func (s *Server) pollIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter id: "+err.Error())
		return "", false
	}
	if err := poll.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Dimension details are safe and useful, so DimensionError keeps its sizes.
func safeDomainMessage(err error) string {
	var de *domain.DimensionError
	if errors.As(err, &de) {
		return de.Error()
	}
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrDimensionMismatch,
		domain.ErrInvalidEmbedding,
		domain.ErrEmptyEmbedding,
		domain.ErrMalformedResponse,
		domain.ErrRemoteService,
		domain.ErrIndexUnavailable,
		domain.ErrConfiguration,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			if s == domain.ErrInvalidInput {
				return err.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

package chi

import "time"

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned in ErrorResponse.
const (
	ErrorResponseCodeBadRequest        ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed  ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized      ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound          ErrorResponseCode = "not_found"
	ErrorResponseCodeDimensionMismatch ErrorResponseCode = "dimension_mismatch"
	ErrorResponseCodeInvalidEmbedding  ErrorResponseCode = "invalid_embedding"
	ErrorResponseCodeEmptyEmbedding    ErrorResponseCode = "empty_embedding"
	ErrorResponseCodeMalformedResponse ErrorResponseCode = "malformed_model_response"
	ErrorResponseCodeModelError        ErrorResponseCode = "model_error"
	ErrorResponseCodeIndexUnavailable  ErrorResponseCode = "index_unavailable"
	ErrorResponseCodeConfiguration     ErrorResponseCode = "configuration_error"
	ErrorResponseCodeInternalError     ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// IndexPollRequest is the body of PUT /polls/{id}/index.
type IndexPollRequest struct {
	Description string `json:"description"`
	Summarize   bool   `json:"summarize,omitempty"`
}

// IndexPollResponse is returned after a poll is indexed.
type IndexPollResponse struct {
	PollID  string  `json:"poll_id"`
	Summary *string `json:"summary,omitempty"`
}

// IndexedPointResponse describes a poll's stored point.
type IndexedPointResponse struct {
	PollID     string    `json:"poll_id"`
	Summary    *string   `json:"summary,omitempty"`
	IndexedAt  time.Time `json:"indexed_at"`
	Dimensions int       `json:"dimensions"`
}

// SearchRequest is the body of POST /polls/search.
type SearchRequest struct {
	Query          string `json:"query"`
	ApplyThreshold bool   `json:"apply_threshold,omitempty"`
	Limit          *int   `json:"limit,omitempty"`
}

// SearchHit is one ranked poll.
type SearchHit struct {
	PollID  string  `json:"poll_id"`
	Score   float64 `json:"score"`
	Summary *string `json:"summary,omitempty"`
}

// SearchResponse is the ranked result list, highest score first.
type SearchResponse struct {
	Items     []SearchHit `json:"items"`
	Total     int         `json:"total"`
	Threshold *float64    `json:"threshold,omitempty"`
}

// SummaryRequest is the body of POST /summaries.
type SummaryRequest struct {
	Description string `json:"description"`
	Flag        bool   `json:"flag,omitempty"`
}

// SummaryResponse carries the generated text verbatim.
type SummaryResponse struct {
	Summary string `json:"summary"`
	Flagged bool   `json:"flagged"`
}

// CollectionResponse describes the poll collection.
type CollectionResponse struct {
	Name       string     `json:"name"`
	Dimensions int        `json:"dimensions"`
	Distance   string     `json:"distance"`
	Points     int        `json:"points"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// HealthResponse aggregates component checks.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

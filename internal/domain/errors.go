package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a request rejected before any remote call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRemoteService signals a model endpoint failure at the transport or status level.
	ErrRemoteService = errors.New("remote service error")
	// ErrMalformedResponse signals a model response missing the expected field.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrEmptyEmbedding signals an embedding response without a usable vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrDimensionMismatch signals a vector or collection whose size differs from the configured one.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidEmbedding signals a generated embedding of the wrong length.
	ErrInvalidEmbedding = errors.New("invalid embedding")
	// ErrIndexUnavailable signals a vector index that cannot be reached or updated.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrConfiguration signals missing or invalid startup settings.
	ErrConfiguration = errors.New("configuration error")
)

// RemoteError wraps ErrRemoteService with the failing endpoint and HTTP status.
type RemoteError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", ErrRemoteService.Error(), e.Endpoint, e.Body)
	}
	return fmt.Sprintf("%s: %s returned %d: %s", ErrRemoteService.Error(), e.Endpoint, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error { return ErrRemoteService }

// NewRemoteError creates a remote service error. Body is truncated to keep logs readable.
func NewRemoteError(endpoint string, statusCode int, body string) error {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}
	return &RemoteError{Endpoint: endpoint, StatusCode: statusCode, Body: body}
}

// DimensionError wraps ErrDimensionMismatch with both sizes.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch.Error(), e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(expected, actual int) error {
	return &DimensionError{Expected: expected, Actual: actual}
}

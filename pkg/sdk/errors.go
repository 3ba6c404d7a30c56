package pollindex

import "github.com/kailas-cloud/pollindex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput      = domain.ErrInvalidInput
	ErrRemoteService     = domain.ErrRemoteService
	ErrMalformedResponse = domain.ErrMalformedResponse
	ErrEmptyEmbedding    = domain.ErrEmptyEmbedding
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrInvalidEmbedding  = domain.ErrInvalidEmbedding
	ErrIndexUnavailable  = domain.ErrIndexUnavailable
	ErrConfiguration     = domain.ErrConfiguration
)

// RemoteError carries the failing model endpoint and HTTP status. Use errors.As() to inspect.
type RemoteError = domain.RemoteError

// DimensionError carries expected and actual vector sizes. Use errors.As() to inspect.
type DimensionError = domain.DimensionError

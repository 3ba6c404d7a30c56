package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks model endpoint availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}

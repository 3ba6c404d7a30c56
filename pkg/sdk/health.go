package pollindex

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/pollindex/internal/usecase/health"
)

// HealthStatus represents the aggregated pipeline health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // "index", "embedding", "generation" → "ok"/"error"
}

// Healthy reports whether every check passed.
func (h HealthStatus) Healthy() bool {
	return h.Status == string(healthuc.Healthy)
}

// Health checks the index and the model endpoints that support it.
func (c *Client) Health(ctx context.Context) (hs HealthStatus) {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	hs = HealthStatus{Status: string(report.Status), Checks: checks}

	var err error
	if !hs.Healthy() {
		err = errDegraded
	}
	c.obs.observe("health", start, err)
	return hs
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index   IndexPinger
	models  map[string]ModelChecker
	timeout time.Duration
}

// New creates a Service. models maps a check name ("embedding", "generation")
// to its endpoint; nil entries are skipped.
func New(index IndexPinger, models map[string]ModelChecker) *Service {
	return &Service{index: index, models: models, timeout: 5 * time.Second}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := make(map[string]CheckResult, len(s.models)+1)
	checks["index"] = result(s.index.Ping(ctx))

	for name, m := range s.models {
		if m == nil {
			continue
		}
		checks[name] = result(m.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

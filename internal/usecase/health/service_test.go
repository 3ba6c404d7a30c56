package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockIndexPinger struct {
	err error
}

func (m *mockIndexPinger) Ping(_ context.Context) error { return m.err }

type mockModelChecker struct {
	err error
}

func (m *mockModelChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockIndexPinger{}, map[string]ModelChecker{
		"embedding":  &mockModelChecker{},
		"generation": &mockModelChecker{},
	})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"index", "embedding", "generation"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_IndexError(t *testing.T) {
	svc := New(&mockIndexPinger{err: errors.New("conn refused")}, map[string]ModelChecker{
		"embedding": &mockModelChecker{},
	})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["index"] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks["index"])
	}
	if r.Checks["embedding"] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks["embedding"])
	}
}

func TestCheck_ModelError(t *testing.T) {
	svc := New(&mockIndexPinger{}, map[string]ModelChecker{
		"embedding":  &mockModelChecker{},
		"generation": &mockModelChecker{err: errors.New("timeout")},
	})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["generation"] != CheckError {
		t.Errorf("expected generation %q, got %q", CheckError, r.Checks["generation"])
	}
	if r.Checks["embedding"] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks["embedding"])
	}
}

func TestCheck_NilModelsSkipped(t *testing.T) {
	svc := New(&mockIndexPinger{}, map[string]ModelChecker{"generation": nil})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["generation"]; ok {
		t.Error("nil checker must be skipped")
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the index check, got %v", r.Checks)
	}
}

func TestCheck_DeadlineApplied(t *testing.T) {
	var hadDeadline bool
	svc := New(&mockIndexPinger{}, map[string]ModelChecker{
		"embedding": checkerFunc(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		}),
	})
	svc.Check(context.Background())
	if !hadDeadline {
		t.Error("health checks must run under a deadline")
	}
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

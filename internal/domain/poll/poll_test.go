package poll

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	p, err := New("poll-1", "Should we adopt a 4-day work week?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != "poll-1" {
		t.Errorf("ID() = %q, want poll-1", p.ID())
	}
	if p.Description() != "Should we adopt a 4-day work week?" {
		t.Errorf("Description() = %q", p.Description())
	}
}

func TestNew_GUID(t *testing.T) {
	if _, err := New("3f2504e0-4f89-11d3-9a0c-0305e82c3301", "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"empty", "", "required"},
		{"spaces", "poll 1", "alphanumeric"},
		{"wildcard", "poll*", "alphanumeric"},
		{"too long", strings.Repeat("a", 257), "too long"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.id, "text")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestNew_BlankDescription(t *testing.T) {
	for _, d := range []string{"", "   ", "\n\t"} {
		if _, err := New("poll-1", d); err == nil {
			t.Errorf("expected error for description %q", d)
		}
	}
}

func TestNew_LongDescription(t *testing.T) {
	long := strings.Repeat("word ", 7000)
	p, err := New("poll-1", long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Description()) != len(long) {
		t.Errorf("description truncated to %d bytes", len(p.Description()))
	}
}

func TestNewPoint_StampsTime(t *testing.T) {
	before := time.Now().UnixMilli()
	p := NewPoint("poll-1", []float32{1, 0}, "summary")
	after := time.Now().UnixMilli()

	if p.IndexedAt() < before || p.IndexedAt() > after {
		t.Errorf("IndexedAt() = %d, want between %d and %d", p.IndexedAt(), before, after)
	}
	if p.PollID() != "poll-1" || p.Summary() != "summary" || len(p.Vector()) != 2 {
		t.Errorf("unexpected point: %+v", p)
	}
}

func TestReconstructPoint(t *testing.T) {
	p := ReconstructPoint("poll-2", nil, "", 42)
	if p.IndexedAt() != 42 {
		t.Errorf("IndexedAt() = %d, want 42", p.IndexedAt())
	}
}

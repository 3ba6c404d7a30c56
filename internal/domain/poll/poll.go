package poll

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// Poll is the indexing input: a poll identifier plus the text to vectorize.
// The relational poll store stays the source of truth, nothing here is persisted.
type Poll struct {
	id          string
	description string
}

// ValidateID checks the poll identifier used verbatim as the index point id.
// ID: ^[a-zA-Z0-9_:-]+$, 1-256 chars (GUIDs and slugs both fit).
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("poll ID is required")
	}
	if len(id) > 256 {
		return fmt.Errorf("poll ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("poll ID must be alphanumeric with underscores, colons and hyphens")
	}
	return nil
}

// New validates and creates a Poll. Description length is not bounded here.
func New(id, description string) (Poll, error) {
	if err := ValidateID(id); err != nil {
		return Poll{}, err
	}
	if strings.TrimSpace(description) == "" {
		return Poll{}, fmt.Errorf("description is required")
	}
	return Poll{id: id, description: description}, nil
}

// ID returns the poll identifier.
func (p Poll) ID() string { return p.id }

// Description returns the free-text description.
func (p Poll) Description() string { return p.description }

// Point is one stored entry of the poll index (immutable value object).
type Point struct {
	pollID    string
	vector    []float32
	summary   string
	indexedAt int64
}

// NewPoint creates an index point stamped with the current time.
// Vector length is checked by the index client against the collection dimension.
func NewPoint(pollID string, vector []float32, summary string) Point {
	return Point{
		pollID:    pollID,
		vector:    vector,
		summary:   summary,
		indexedAt: time.Now().UnixMilli(),
	}
}

// ReconstructPoint creates a Point without stamping (storage hydration).
func ReconstructPoint(pollID string, vector []float32, summary string, indexedAt int64) Point {
	return Point{pollID: pollID, vector: vector, summary: summary, indexedAt: indexedAt}
}

// PollID returns the poll identifier the point belongs to.
func (p Point) PollID() string { return p.pollID }

// Vector returns the embedding.
func (p Point) Vector() []float32 { return p.vector }

// Summary returns the optional summary payload.
func (p Point) Summary() string { return p.summary }

// IndexedAt returns the unix millis of the last upsert.
func (p Point) IndexedAt() int64 { return p.indexedAt }

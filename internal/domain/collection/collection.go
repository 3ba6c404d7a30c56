package collection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// reservedNames share the key namespace with collection metadata ({prefix}collection:{name})
// and the embedding cache ({prefix}emb_cache:...). A collection with such a name would
// index and drop those keys as points.
var reservedNames = map[string]bool{
	"collection": true,
	"emb_cache":  true,
}

// Collection is the poll vector collection aggregate (immutable value object).
// Dimension and metric are fixed at creation; changing them needs a drop and reindex.
type Collection struct {
	name      string
	dimension int
	metric    metric.Metric
	createdAt int64
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	if reservedNames[name] {
		return fmt.Errorf("collection name %q is reserved", name)
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Dimension: > 0. Empty metric means cosine.
func New(name string, dimension int, m metric.Metric) (Collection, error) {
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if dimension <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive")
	}
	if m == "" {
		m = metric.Cosine
	}
	if !m.IsValid() {
		return Collection{}, fmt.Errorf("invalid distance metric: %q", m)
	}

	return Collection{
		name:      name,
		dimension: dimension,
		metric:    m,
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, dimension int, m metric.Metric, createdAt int64) Collection {
	if m == "" {
		m = metric.Cosine
	}
	return Collection{name: name, dimension: dimension, metric: m, createdAt: createdAt}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Dimension returns the vector dimension.
func (c Collection) Dimension() int { return c.dimension }

// Metric returns the distance metric.
func (c Collection) Metric() metric.Metric { return c.metric }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Info is a collection snapshot with its current point count.
type Info struct {
	Collection
	Points int
}

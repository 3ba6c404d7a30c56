package metric

import (
	"math"
	"strings"
)

// Metric is the distance function of a poll collection.
type Metric string

// Metric constants.
const (
	// Cosine ranks by angle between vectors; the default for text embeddings.
	Cosine Metric = "cosine"
	L2     Metric = "l2"
	IP     Metric = "ip"
)

// Parse normalizes a configured metric name. Empty means Cosine.
func Parse(s string) (Metric, bool) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return Cosine, true
	}
	return m, m.IsValid()
}

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == Cosine || m == L2 || m == IP
}

// Similarity converts a raw index distance into a score where higher is closer.
// Cosine and IP distances are 1-sim; L2 is mapped into (0,1].
func (m Metric) Similarity(distance float64) float64 {
	switch m {
	case L2:
		return 1.0 / (1.0 + math.Max(0, distance))
	default:
		return 1.0 - distance
	}
}

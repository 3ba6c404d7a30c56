package pollindex

import (
	"fmt"

	"github.com/kailas-cloud/pollindex/internal/db"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

// buildIndex creates the FT index definition for the poll collection:
// poll_id TAG, indexed_at NUMERIC, vector HNSW with the configured dimension and metric.
func buildIndex(cfg Config) (*db.IndexDefinition, error) {
	distance, err := toDBDistance(cfg.Metric)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", cfg.KeyPrefix, cfg.Collection)
	return db.NewIndex(prefix+"idx").
		Prefix(prefix).
		Tag(fieldPollID).
		Numeric(fieldIndexedAt).
		VectorHNSW(fieldVector, cfg.VectorSize, distance, cfg.HNSW.M, cfg.HNSW.EFConstruct).
		Build()
}

func toDBDistance(m metric.Metric) (db.DistanceMetric, error) {
	switch m {
	case metric.Cosine, "":
		return db.DistanceCosine, nil
	case metric.L2:
		return db.DistanceL2, nil
	case metric.IP:
		return db.DistanceIP, nil
	default:
		return "", fmt.Errorf("unknown distance metric: %q", m)
	}
}

package pollindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/pollindex/internal/db"
	domcol "github.com/kailas-cloud/pollindex/internal/domain/collection"
	"github.com/kailas-cloud/pollindex/internal/domain/poll"
	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
)

// Point hash fields.
const (
	fieldPollID    = "poll_id"
	fieldVector    = "vector"
	fieldSummary   = "summary"
	fieldIndexedAt = "indexed_at"
)

// pointToHash converts a domain Point into a flat map[string]string for HSET.
func pointToHash(p poll.Point) map[string]string {
	m := map[string]string{
		fieldPollID:    p.PollID(),
		fieldVector:    vectorToBytes(p.Vector()),
		fieldIndexedAt: strconv.FormatInt(p.IndexedAt(), 10),
	}
	// HSET overwrites only listed fields; an empty summary must still clear the old one.
	m[fieldSummary] = p.Summary()
	return m
}

// pointFromHash converts a stored hash back into a domain Point.
func pointFromHash(pollID string, m map[string]string) poll.Point {
	indexedAt, _ := strconv.ParseInt(m[fieldIndexedAt], 10, 64)
	return poll.ReconstructPoint(pollID, bytesToVector(m[fieldVector]), m[fieldSummary], indexedAt)
}

// hitFromEntry converts a KNN entry into a scored hit.
func hitFromEntry(e db.SearchEntry, prefix string, m metric.Metric) hit.Hit {
	id := e.Fields[fieldPollID]
	if id == "" {
		id = pollIDFromKey(e.Key, prefix)
	}
	return hit.New(id, m.Similarity(e.Distance), e.Fields[fieldSummary])
}

func collectionToHash(col domcol.Collection) map[string]string {
	return map[string]string{
		"name":       col.Name(),
		"dimension":  strconv.Itoa(col.Dimension()),
		"distance":   string(col.Metric()),
		"created_at": strconv.FormatInt(col.CreatedAt(), 10),
	}
}

func collectionFromHash(name string, m map[string]string) (domcol.Collection, error) {
	dim, err := strconv.Atoi(m["dimension"])
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("parse dimension %q: %w", m["dimension"], err)
	}
	var createdAt int64
	if v, ok := m["created_at"]; ok {
		if createdAt, err = strconv.ParseInt(v, 10, 64); err != nil {
			return domcol.Collection{}, fmt.Errorf("parse created_at %q: %w", v, err)
		}
	}
	if n := m["name"]; n != "" {
		name = n
	}
	return domcol.Reconstruct(name, dim, metric.Metric(m["distance"]), createdAt), nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

package pollindex

import (
	"time"

	"github.com/kailas-cloud/pollindex/internal/domain/search/hit"
	"github.com/kailas-cloud/pollindex/internal/domain/search/metric"
	domsum "github.com/kailas-cloud/pollindex/internal/domain/summary"
)

// Distance is the vector distance of the poll collection.
type Distance string

// Supported distances.
const (
	Cosine Distance = Distance(metric.Cosine)
	L2     Distance = Distance(metric.L2)
	IP     Distance = Distance(metric.IP)
)

// FlagSentinel is what SummarizeOrFlag returns for inadequate text.
const FlagSentinel = domsum.Sentinel

// Hit is a ranked search result, highest Score first.
type Hit struct {
	PollID  string
	Score   float64
	Summary string // empty when the poll was indexed from its raw description
}

// CollectionInfo describes the poll collection.
type CollectionInfo struct {
	Name       string
	Dimensions int
	Distance   Distance
	Points     int
	CreatedAt  time.Time // zero when the collection was created outside pollindex
}

// IsFlagged reports whether a SummarizeOrFlag answer is FlagSentinel.
func IsFlagged(s string) bool {
	return domsum.IsFlagged(s)
}

// FilterByThreshold keeps hits scoring at least threshold. Order is preserved.
func FilterByThreshold(hits []Hit, threshold float64) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out
}

func hitsFromDomain(hs []hit.Hit) []Hit {
	out := make([]Hit, len(hs))
	for i, h := range hs {
		out[i] = Hit{PollID: h.PollID(), Score: h.Score(), Summary: h.Summary()}
	}
	return out
}

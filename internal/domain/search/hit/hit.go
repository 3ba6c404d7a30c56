package hit

// Hit is a single (poll id, similarity score) search result.
type Hit struct {
	pollID  string
	score   float64
	summary string
}

// New creates a search hit.
func New(pollID string, score float64, summary string) Hit {
	return Hit{pollID: pollID, score: score, summary: summary}
}

// PollID returns the matched poll identifier.
func (h Hit) PollID() string { return h.pollID }

// Score returns the similarity score, higher is closer.
func (h Hit) Score() float64 { return h.score }

// Summary returns the stored summary payload, empty when the poll was indexed from raw text.
func (h Hit) Summary() string { return h.summary }

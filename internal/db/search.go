package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a KNN search.
// Distance is __vector_score as returned by the engine; conversion to
// similarity depends on the index metric and is left to the caller.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

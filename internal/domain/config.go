package domain

// VectorConfig holds the vectorization defaults used when configuration leaves a value empty.
type VectorConfig struct {
	GenerationModel     string
	EmbeddingModel      string
	Dimensions          int
	DistanceMetric      string
	SearchLimit         int
	SimilarityThreshold float64
}

// DefaultVectorConfig returns defaults tuned for a local Ollama with nomic-embed-text.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		GenerationModel:     "llama3.1",
		EmbeddingModel:      "nomic-embed-text",
		Dimensions:          768,
		DistanceMetric:      "cosine",
		SearchLimit:         100,
		SimilarityThreshold: 0.5,
	}
}

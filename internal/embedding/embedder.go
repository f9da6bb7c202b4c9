package embedding

import "context"

// Embedder is the provider contract every embedding backend implements.
// Embed returns vectors in the same order as texts; len(output) always
// equals len(texts) on success.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Available() bool
	ProviderID() string
	Dimensions() int
}

// BatchLimits describes the batching constraints a provider advertises so
// callers can size batches without tripping the provider's own limits.
type BatchLimits interface {
	MaxTokensPerBatch() int
	MaxDocumentsPerBatch() int
	RecommendedConcurrency() int
}

package embed

import (
	"context"
	"math"
)

// Default batch sizing shared by every provider. BatchSize() on an
// Embedder reports what was actually configured, which may differ from
// these defaults once config.Config applies overrides.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 32
)

// StaticDimensions is the vector width produced by StaticEmbedder,
// matching the "static-minilm" identifier's stated dimension.
const StaticDimensions = 384

// DefaultDimensions is used when a provider cannot determine its own
// dimension ahead of the first embedding call.
const DefaultDimensions = StaticDimensions

// DefaultMaxRetries bounds retry attempts for transient provider failures.
const DefaultMaxRetries = 3

// Embedder converts text into fixed-width vectors for similarity search.
// Implementations normalize returned vectors to unit length so that
// storage can rely on cosine distance without re-normalizing.
type Embedder interface {
	// Embed returns the embedding for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the fixed width of vectors this embedder produces.
	Dimensions() int

	// ModelName identifies the underlying model, e.g. "static-minilm".
	ModelName() string

	// BatchSize reports the configured batch size for EmbedBatch calls.
	BatchSize() int

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases any resources (connections, file handles) held by
	// the embedder. Safe to call more than once.
	Close() error
}

// normalizeVector L2-normalizes v to unit length. The zero vector is
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}

	norm := math.Sqrt(sumSquares)
	result := make([]float32, len(v))
	for i, x := range v {
		result[i] = float32(float64(x) / norm)
	}
	return result
}

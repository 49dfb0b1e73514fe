// Package embed turns chunk text into unit-length dense vectors via a local
// Ollama runtime, with an LRU cache in front.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default number of texts per model call.
	DefaultBatchSize = 32

	// MaxBatchSize caps a single model call to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultWarmTimeout applies when the model served a request recently.
	DefaultWarmTimeout = 60 * time.Second

	// DefaultColdTimeout applies on first use; model loading can take minutes.
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold is how long Ollama keeps an idle model loaded.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries is the retry budget per batch.
	DefaultMaxRetries = 3

	// DefaultDimensions matches the MiniLM family used by default.
	DefaultDimensions = 384
)

// Embedder generates vector embeddings for text. All returned vectors are
// normalized to unit length.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, index-aligned
	// with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Zero vectors pass through.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

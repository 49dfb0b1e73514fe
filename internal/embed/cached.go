package embed

import (
	"context"
	"time"

	"github.com/seekd/seekd/internal/cache"
)

// CachedEmbedder wraps an Embedder with a byte-budgeted TTL cache so repeated
// chunks and queries skip the model entirely.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache[[]float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder creates a cached embedder bounded to maxSizeMB megabytes
// with the given entry TTL.
func NewCachedEmbedder(inner Embedder, maxSizeMB int, ttl time.Duration) (*CachedEmbedder, error) {
	c, err := cache.New[[]float32](maxSizeMB, ttl, cache.VectorSize)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: c}, nil
}

func (c *CachedEmbedder) key(text string) string {
	return cache.EmbeddingKey(c.inner.ModelName(), text)
}

// Embed returns the cached embedding if available, otherwise computes and
// caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(c.key(text)); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(c.key(text), vec)
	return vec, nil
}

// EmbedBatch checks the cache per text and sends only the misses to the
// inner embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIndices []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vec
		} else {
			missIndices = append(missIndices, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIndices {
		results[idx] = vecs[j]
		c.cache.Set(c.key(texts[idx]), vecs[j])
	}
	return results, nil
}

// Stats returns the cache counters for the stats endpoint.
func (c *CachedEmbedder) Stats() cache.Stats {
	return c.cache.Stats()
}

// ClearCache drops all cached embeddings.
func (c *CachedEmbedder) ClearCache() {
	c.cache.Clear()
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

// Available checks if the embedder is ready (passthrough to inner).
func (c *CachedEmbedder) Available(ctx context.Context) bool {
	return c.inner.Available(ctx)
}

// Close releases the inner embedder.
func (c *CachedEmbedder) Close() error {
	return c.inner.Close()
}

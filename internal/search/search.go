// Package search orchestrates query embedding, vector retrieval, and the
// search-result cache.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/seekd/seekd/internal/cache"
	"github.com/seekd/seekd/internal/embed"
	seekderrors "github.com/seekd/seekd/internal/errors"
	"github.com/seekd/seekd/internal/vectorstore"
)

// Result is one search hit in the API response shape.
type Result struct {
	Score      float32 `json:"score"`
	FilePath   string  `json:"file_path"`
	FileName   string  `json:"file_name"`
	Chunk      string  `json:"chunk"`
	ChunkIndex int     `json:"chunk_index"`
	FileType   string  `json:"file_type"`
	FileSize   int64   `json:"file_size"`
	ChunkSize  int     `json:"chunk_size"`
}

// Response is the full search response.
type Response struct {
	Query        string   `json:"query"`
	TopK         int      `json:"top_k"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
	Cached       bool     `json:"cached"`
}

// Options configures the Engine.
type Options struct {
	Embedder embed.Embedder
	Store    vectorstore.Store
	// MaxTopK caps top_k on every request. 0 = 8.
	MaxTopK int
	// CacheSizeMB bounds the result cache. 0 = 128.
	CacheSizeMB int
	// CacheTTL expires cached results. 0 = 30 minutes.
	CacheTTL time.Duration
}

// Engine answers semantic queries against the vector store.
type Engine struct {
	embedder embed.Embedder
	store    vectorstore.Store
	maxTopK  int
	cache    *cache.Cache[Response]
}

// New creates a search engine.
func New(opts Options) (*Engine, error) {
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 8
	}
	if opts.CacheSizeMB <= 0 {
		opts.CacheSizeMB = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}

	c, err := cache.New[Response](opts.CacheSizeMB, opts.CacheTTL, responseSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		embedder: opts.Embedder,
		store:    opts.Store,
		maxTopK:  opts.MaxTopK,
		cache:    c,
	}, nil
}

// Search embeds the query and returns the topK nearest chunks, serving
// repeated queries from the cache until the next index mutation.
func (e *Engine) Search(ctx context.Context, query string, topK int, filter vectorstore.Filter) (Response, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Response{}, seekderrors.New(seekderrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if topK <= 0 {
		topK = e.maxTopK
	}
	if topK > e.maxTopK {
		topK = e.maxTopK
	}

	key := cache.SearchKey(trimmed, topK, filter.String(), e.embedder.ModelName())
	if resp, ok := e.cache.Get(key); ok {
		resp.Cached = true
		return resp, nil
	}

	// The query embeds as typed; only the cache key is normalized.
	vec, err := e.embedder.Embed(ctx, trimmed)
	if err != nil {
		return Response{}, seekderrors.Wrap(seekderrors.ErrCodeSearchFailed, err)
	}

	hits, err := e.store.Search(ctx, vec, topK, filter)
	if err != nil {
		return Response{}, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Score:      h.Score,
			FilePath:   h.Payload.FilePath,
			FileName:   h.Payload.FileName,
			Chunk:      h.Payload.Chunk,
			ChunkIndex: h.Payload.ChunkIndex,
			FileType:   h.Payload.FileType,
			FileSize:   h.Payload.FileSize,
			ChunkSize:  h.Payload.ChunkSize,
		}
	}

	resp := Response{
		Query:        trimmed,
		TopK:         topK,
		Results:      results,
		TotalResults: len(results),
	}
	e.cache.Set(key, resp)

	slog.Debug("search_complete",
		slog.String("query", trimmed),
		slog.Int("top_k", topK),
		slog.Int("results", len(results)))
	return resp, nil
}

// FileContent reassembles a file's text from its stored chunks in index
// order. Overlap between adjacent chunks is left in place; the caller gets
// exactly what was indexed.
func (e *Engine) FileContent(ctx context.Context, path string) (string, int, error) {
	count, err := e.store.CountByFile(ctx, path)
	if err != nil {
		return "", 0, err
	}
	if count == 0 {
		return "", 0, seekderrors.NotFound(path)
	}

	// Zero vector with a path filter returns every chunk of the file; cosine
	// scores are meaningless here and ignored.
	probe := make([]float32, e.embedder.Dimensions())
	hits, err := e.store.Search(ctx, probe, count, vectorstore.Filter{FilePath: path})
	if err != nil {
		return "", 0, err
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Payload.ChunkIndex < hits[j].Payload.ChunkIndex
	})

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Payload.Chunk
	}
	return strings.Join(parts, "\n"), len(hits), nil
}

// InvalidateCache drops all cached search results. Called after any index
// mutation.
func (e *Engine) InvalidateCache() {
	e.cache.Clear()
}

// Clear implements the indexer's invalidation hook.
func (e *Engine) Clear() {
	e.InvalidateCache()
}

// CacheStats exposes the result-cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// responseSize estimates the cached response footprint.
func responseSize(r Response) int64 {
	size := int64(len(r.Query)) + 64
	for _, res := range r.Results {
		size += int64(len(res.Chunk)+len(res.FilePath)+len(res.FileName)+len(res.FileType)) + 48
	}
	return size
}

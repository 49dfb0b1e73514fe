package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

// OllamaConfig configures the Ollama-backed embedder.
type OllamaConfig struct {
	// Host is the Ollama base URL, e.g. http://localhost:11434.
	Host string
	// Model is the embedding model identifier.
	Model string
	// Dimensions asserts the vector dimension. 0 = auto-detect on first use.
	Dimensions int
	// BatchSize is the maximum texts per model call.
	BatchSize int
	// MaxRetries is the retry budget per batch.
	MaxRetries int
	// SkipHealthCheck skips the startup model probe (tests).
	SkipHealthCheck bool
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string

	mu       sync.RWMutex
	dims     int
	closed   bool
	lastCall time.Time
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. Unless SkipHealthCheck is
// set, it verifies the model is present and detects the vector dimension.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "all-minilm"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	// No client-level timeout: per-request contexts carry warm/cold deadlines.
	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, DefaultColdTimeout)
		defer cancel()

		if !e.Available(checkCtx) {
			transport.CloseIdleConnections()
			return nil, seekderrors.New(seekderrors.ErrCodeModelUnavailable,
				fmt.Sprintf("model %q not available at %s", cfg.Model, cfg.Host), nil)
		}
		if e.dims == 0 {
			dims, err := e.detectDimensions(checkCtx)
			if err != nil {
				transport.CloseIdleConnections()
				return nil, err
			}
			e.dims = dims
		}
	}
	if e.dims == 0 {
		e.dims = DefaultDimensions
	}

	return e, nil
}

// Embed generates the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Whitespace-only texts
// map to zero vectors without a model call; the rest are sent in batches.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, seekderrors.New(seekderrors.ErrCodeEmbeddingFailed, "embedder is closed", nil)
	}
	dims := e.dims
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, dims)
		} else {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		batchTexts := make([]string, len(batch))
		for i, idx := range batch {
			batchTexts[i] = texts[idx]
		}

		vecs, err := e.embedWithRetry(ctx, batchTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, seekderrors.New(seekderrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("model returned %d embeddings for %d texts", len(vecs), len(batch)), nil)
		}
		for i, idx := range batch {
			results[idx] = vecs[i]
		}
	}

	return results, nil
}

// embedWithRetry runs one batch through the retry policy with a warm/cold
// timeout per attempt.
func (e *OllamaEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	retryCfg := seekderrors.DefaultRetryConfig()
	retryCfg.MaxRetries = e.config.MaxRetries

	return seekderrors.RetryWithResult(ctx, retryCfg, func() ([][]float32, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout())
		defer cancel()

		vecs, err := e.doEmbed(attemptCtx, texts)
		if err != nil {
			slog.Debug("embedding_attempt_failed",
				slog.Int("texts", len(texts)),
				slog.Any("error", err))
			return nil, err
		}
		e.touch()
		return vecs, nil
	})
}

// doEmbed performs a single /api/embed call and normalizes the result.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.modelName, Input: texts})
	if err != nil {
		return nil, seekderrors.Wrap(seekderrors.ErrCodeEmbeddingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, seekderrors.Wrap(seekderrors.ErrCodeEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, seekderrors.New(seekderrors.ErrCodeModelUnavailable,
			"failed to reach embedding model", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		code := seekderrors.ErrCodeEmbeddingFailed
		if resp.StatusCode >= 500 {
			code = seekderrors.ErrCodeModelUnavailable
		}
		return nil, seekderrors.New(code,
			fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, seekderrors.New(seekderrors.ErrCodeEmbeddingFailed, "failed to decode embed response", err)
	}

	vecs := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		vecs[i] = normalizeVector(vec)
	}
	return vecs, nil
}

// detectDimensions probes the model with a short text.
func (e *OllamaEmbedder) detectDimensions(ctx context.Context) (int, error) {
	vecs, err := e.doEmbed(ctx, []string{"dimension detection"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, seekderrors.New(seekderrors.ErrCodeEmbeddingFailed, "empty embedding returned", nil)
	}
	return len(vecs[0]), nil
}

// timeout picks the cold timeout when the model has likely been unloaded.
func (e *OllamaEmbedder) timeout() time.Duration {
	e.mu.RLock()
	last := e.lastCall
	e.mu.RUnlock()

	if last.IsZero() || time.Since(last) > ModelUnloadThreshold {
		return DefaultColdTimeout
	}
	return DefaultWarmTimeout
}

func (e *OllamaEmbedder) touch() {
	e.mu.Lock()
	e.lastCall = time.Now()
	e.mu.Unlock()
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.modelName
}

// Available checks that Ollama responds and lists the configured model.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	want := strings.ToLower(e.modelName)
	wantBase := strings.Split(want, ":")[0]
	for _, m := range tags.Models {
		name := strings.ToLower(m.Name)
		if name == want || strings.Split(name, ":")[0] == wantBase {
			return true
		}
	}
	return false
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

// QdrantConfig configures the Qdrant REST adapter.
type QdrantConfig struct {
	// URL is the Qdrant base URL, e.g. http://localhost:6333.
	URL string
	// APIKey is sent as the api-key header when set.
	APIKey string
	// Collection is the collection name.
	Collection string
	// Timeout bounds each request. 0 = 30s.
	Timeout time.Duration
}

// Qdrant talks to Qdrant over its REST API.
type Qdrant struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	retry      seekderrors.RetryConfig
}

var _ Store = (*Qdrant)(nil)

// NewQdrant creates a Qdrant adapter.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Qdrant{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		retry:      seekderrors.DefaultRetryConfig(),
	}
}

type collectionInfoResponse struct {
	Result struct {
		PointsCount int `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist, and rejects a dimension mismatch if it does.
func (q *Qdrant) EnsureCollection(ctx context.Context, dims int) error {
	var info collectionInfoResponse
	status, err := q.do(ctx, http.MethodGet, "/collections/"+q.collection, nil, &info)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK:
		existing := info.Result.Config.Params.Vectors.Size
		if existing != 0 && existing != dims {
			return seekderrors.New(seekderrors.ErrCodeCollectionInvalid,
				fmt.Sprintf("collection %q has dimension %d, model produces %d",
					q.collection, existing, dims), nil)
		}
		return nil
	case status == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{"size": dims, "distance": "Cosine"},
		}
		status, err = q.do(ctx, http.MethodPut, "/collections/"+q.collection, body, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return seekderrors.VectorStoreError(
				fmt.Sprintf("failed to create collection %q: status %d", q.collection, status), nil)
		}
		slog.Info("collection_created",
			slog.String("collection", q.collection), slog.Int("dims", dims))
		return nil
	default:
		return seekderrors.VectorStoreError(
			fmt.Sprintf("unexpected status %d checking collection %q", status, q.collection), nil)
	}
}

// Upsert writes points with wait=true so a following search sees them.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	status, err := q.do(ctx, http.MethodPut,
		"/collections/"+q.collection+"/points?wait=true", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return seekderrors.VectorStoreError(
			fmt.Sprintf("upsert failed with status %d", status), nil)
	}
	return nil
}

// DeleteByFile removes all points for one file path and returns how many
// existed beforehand.
func (q *Qdrant) DeleteByFile(ctx context.Context, path string) (int, error) {
	count, err := q.CountByFile(ctx, path)
	if err != nil {
		return 0, err
	}

	body := map[string]any{"filter": pathFilter(path)}
	status, err := q.do(ctx, http.MethodPost,
		"/collections/"+q.collection+"/points/delete?wait=true", body, nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, seekderrors.VectorStoreError(
			fmt.Sprintf("delete by file failed with status %d", status), nil)
	}
	return count, nil
}

type searchResponse struct {
	Result []struct {
		ID      string  `json:"id"`
		Score   float32 `json:"score"`
		Payload Payload `json:"payload"`
	} `json:"result"`
}

// Search returns the nearest points by cosine similarity, payloads included.
func (q *Qdrant) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if qf := qdrantFilter(filter); qf != nil {
		body["filter"] = qf
	}

	var resp searchResponse
	status, err := q.do(ctx, http.MethodPost,
		"/collections/"+q.collection+"/points/search", body, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, seekderrors.VectorStoreError(
			fmt.Sprintf("search failed with status %d", status), nil)
	}

	hits := make([]ScoredPoint, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = ScoredPoint{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return hits, nil
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

// CountByFile returns the number of points stored for one file path.
func (q *Qdrant) CountByFile(ctx context.Context, path string) (int, error) {
	body := map[string]any{"filter": pathFilter(path), "exact": true}

	var resp countResponse
	status, err := q.do(ctx, http.MethodPost,
		"/collections/"+q.collection+"/points/count", body, &resp)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, seekderrors.VectorStoreError(
			fmt.Sprintf("count failed with status %d", status), nil)
	}
	return resp.Result.Count, nil
}

// Count returns the total point count.
func (q *Qdrant) Count(ctx context.Context) (int, error) {
	var info collectionInfoResponse
	status, err := q.do(ctx, http.MethodGet, "/collections/"+q.collection, nil, &info)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, seekderrors.VectorStoreError(
			fmt.Sprintf("collection info failed with status %d", status), nil)
	}
	return info.Result.PointsCount, nil
}

// Healthy reports whether the Qdrant instance answers at all.
func (q *Qdrant) Healthy(ctx context.Context) bool {
	status, err := q.do(ctx, http.MethodGet, "/collections", nil, nil)
	return err == nil && status == http.StatusOK
}

// do runs one request with bounded backoff on transport failures. All point
// operations are idempotent (deterministic IDs, wait=true), so a retried
// upsert or delete is safe.
func (q *Qdrant) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	return seekderrors.RetryWithResult(ctx, q.retry, func() (int, error) {
		return q.doOnce(ctx, method, path, body, out)
	})
}

// doOnce runs one request and decodes the response into out when given.
// Connection failures map to the retryable vector-store-unavailable code.
func (q *Qdrant) doOnce(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, seekderrors.VectorStoreError("failed to marshal request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return 0, seekderrors.VectorStoreError("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, seekderrors.VectorStoreError("vector store unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, seekderrors.VectorStoreError("failed to decode response", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func pathFilter(path string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "file_path", "match": map[string]any{"value": path}},
		},
	}
}

func qdrantFilter(f Filter) map[string]any {
	if f.IsZero() {
		return nil
	}
	var must []map[string]any
	if f.FileType != "" {
		must = append(must, map[string]any{
			"key": "file_type", "match": map[string]any{"value": f.FileType},
		})
	}
	if f.FilePath != "" {
		must = append(must, map[string]any{
			"key": "file_path", "match": map[string]any{"value": f.FilePath},
		})
	}
	return map[string]any{"must": must}
}

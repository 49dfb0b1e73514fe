package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("/docs/a.txt", "abc123", 0)
	b := PointID("/docs/a.txt", "abc123", 0)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, PointID("/docs/a.txt", "abc123", 1))
	assert.NotEqual(t, a, PointID("/docs/a.txt", "def456", 0))
	assert.NotEqual(t, a, PointID("/docs/b.txt", "abc123", 0))

	// UUID form, so Qdrant accepts it as a point id.
	assert.Len(t, a, 36)
}

func TestFilterString(t *testing.T) {
	assert.Empty(t, Filter{}.String())
	assert.Equal(t, Filter{FileType: ".pdf"}.String(), Filter{FileType: ".pdf"}.String())
	assert.NotEqual(t, Filter{FileType: ".pdf"}.String(), Filter{FileType: ".txt"}.String())
}

// fakeQdrant implements just enough of the REST surface for the adapter.
type fakeQdrant struct {
	t           *testing.T
	collections map[string]int // name -> dims
	points      map[string]Point
	apiKeys     []string
}

func newFakeQdrant(t *testing.T) *fakeQdrant {
	return &fakeQdrant{
		t:           t,
		collections: make(map[string]int),
		points:      make(map[string]Point),
	}
}

// routeFake dispatches like the Go 1.22+ ServeMux patterns
// "METHOD /collections", "METHOD /collections/{name}" and
// "METHOD /collections/{name}/<suffix>", calling h with the {name} segment.
type routeFake struct {
	method string
	suffix string // path after /collections/{name}; "" matches the collection itself
	h      func(w http.ResponseWriter, r *http.Request, name string)
}

func (f *fakeQdrant) handler() http.Handler {
	var routes []routeFake
	handle := func(method, suffix string, h func(w http.ResponseWriter, r *http.Request, name string)) {
		routes = append(routes, routeFake{method: method, suffix: suffix, h: h})
	}
	handle("GET", "", func(w http.ResponseWriter, r *http.Request, name string) {
		f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
	})
	handle("GET", "{name}", func(w http.ResponseWriter, r *http.Request, name string) {
		dims, ok := f.collections[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"points_count": len(f.points),
				"config": map[string]any{
					"params": map[string]any{
						"vectors": map[string]any{"size": dims, "distance": "Cosine"},
					},
				},
			},
		})
	})
	handle("PUT", "{name}", func(w http.ResponseWriter, r *http.Request, name string) {
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.collections[name] = body.Vectors.Size
		_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
	})
	handle("PUT", "{name}/points", func(w http.ResponseWriter, r *http.Request, name string) {
		assert.Equal(f.t, "true", r.URL.Query().Get("wait"))
		var body struct {
			Points []Point `json:"points"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		for _, p := range body.Points {
			f.points[p.ID] = p
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
	})
	handle("POST", "{name}/points/delete", func(w http.ResponseWriter, r *http.Request, name string) {
		path := f.decodePathFilter(r)
		for id, p := range f.points {
			if p.Payload.FilePath == path {
				delete(f.points, id)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
	})
	handle("POST", "{name}/points/count", func(w http.ResponseWriter, r *http.Request, name string) {
		path := f.decodePathFilter(r)
		count := 0
		for _, p := range f.points {
			if p.Payload.FilePath == path {
				count++
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"count": count},
		})
	})
	handle("POST", "{name}/points/search", func(w http.ResponseWriter, r *http.Request, name string) {
		var body struct {
			Limit  int `json:"limit"`
			Filter *struct {
				Must []struct {
					Key   string `json:"key"`
					Match struct {
						Value string `json:"value"`
					} `json:"match"`
				} `json:"must"`
			} `json:"filter"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

		var result []map[string]any
		for id, p := range f.points {
			if body.Filter != nil {
				matched := true
				for _, m := range body.Filter.Must {
					switch m.Key {
					case "file_type":
						matched = matched && p.Payload.FileType == m.Match.Value
					case "file_path":
						matched = matched && p.Payload.FilePath == m.Match.Value
					}
				}
				if !matched {
					continue
				}
			}
			result = append(result, map[string]any{
				"id":      id,
				"score":   0.9,
				"payload": p.Payload,
			})
			if len(result) >= body.Limit {
				break
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/collections"
		rest := strings.TrimPrefix(r.URL.Path, prefix)
		var name, tail string
		if rest != "" {
			rest = strings.TrimPrefix(rest, "/")
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				name, tail = rest[:i], rest[i+1:]
			} else {
				name = rest
			}
		}
		for _, rt := range routes {
			if r.Method != rt.method {
				continue
			}
			switch {
			case rt.suffix == "" && r.URL.Path == prefix:
				rt.h(w, r, "")
				return
			case rt.suffix == "{name}" && name != "" && tail == "":
				rt.h(w, r, name)
				return
			case strings.HasPrefix(rt.suffix, "{name}/") && name != "" &&
				tail == strings.TrimPrefix(rt.suffix, "{name}/"):
				rt.h(w, r, name)
				return
			}
		}
		http.NotFound(w, r)
	})
}

func (f *fakeQdrant) decodePathFilter(r *http.Request) string {
	var body struct {
		Filter struct {
			Must []struct {
				Key   string `json:"key"`
				Match struct {
					Value string `json:"value"`
				} `json:"match"`
			} `json:"must"`
		} `json:"filter"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	require.NotEmpty(f.t, body.Filter.Must)
	require.Equal(f.t, "file_path", body.Filter.Must[0].Key)
	return body.Filter.Must[0].Match.Value
}

func newTestStore(t *testing.T) (*Qdrant, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant(t)
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewQdrant(QdrantConfig{
		URL:        srv.URL,
		APIKey:     "secret",
		Collection: "files_chunks",
	}), fake
}

func TestEnsureCollectionCreates(t *testing.T) {
	q, fake := newTestStore(t)
	require.NoError(t, q.EnsureCollection(context.Background(), 384))
	assert.Equal(t, 384, fake.collections["files_chunks"])

	// Idempotent when dimensions agree.
	require.NoError(t, q.EnsureCollection(context.Background(), 384))
}

func TestEnsureCollectionDimensionMismatch(t *testing.T) {
	q, fake := newTestStore(t)
	fake.collections["files_chunks"] = 768

	err := q.EnsureCollection(context.Background(), 384)
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeCollectionInvalid, seekderrors.GetCode(err))
}

func TestUpsertCountDelete(t *testing.T) {
	q, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, q.EnsureCollection(ctx, 2))

	points := []Point{
		{
			ID:     PointID("/docs/a.txt", "h1", 0),
			Vector: []float32{1, 0},
			Payload: Payload{
				FilePath: "/docs/a.txt", FileName: "a.txt", FileHash: "h1",
				FileType: ".txt", Chunk: "alpha", ChunkIndex: 0, ChunkSize: 5,
			},
		},
		{
			ID:     PointID("/docs/a.txt", "h1", 1),
			Vector: []float32{0, 1},
			Payload: Payload{
				FilePath: "/docs/a.txt", FileName: "a.txt", FileHash: "h1",
				FileType: ".txt", Chunk: "beta", ChunkIndex: 1, ChunkSize: 4,
			},
		},
		{
			ID:     PointID("/docs/b.md", "h2", 0),
			Vector: []float32{1, 1},
			Payload: Payload{
				FilePath: "/docs/b.md", FileName: "b.md", FileHash: "h2",
				FileType: ".md", Chunk: "gamma", ChunkIndex: 0, ChunkSize: 5,
			},
		},
	}
	require.NoError(t, q.Upsert(ctx, points))

	n, err := q.CountByFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	removed, err := q.DeleteByFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, err = q.CountByFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpsertIdempotentIDs(t *testing.T) {
	q, fake := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, q.EnsureCollection(ctx, 2))

	p := Point{
		ID:      PointID("/docs/a.txt", "h1", 0),
		Vector:  []float32{1, 0},
		Payload: Payload{FilePath: "/docs/a.txt", FileHash: "h1"},
	}
	require.NoError(t, q.Upsert(ctx, []Point{p}))
	require.NoError(t, q.Upsert(ctx, []Point{p}))
	assert.Len(t, fake.points, 1)
}

func TestSearchWithFilter(t *testing.T) {
	q, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, q.EnsureCollection(ctx, 2))
	require.NoError(t, q.Upsert(ctx, []Point{
		{ID: PointID("/a.txt", "h", 0), Vector: []float32{1, 0},
			Payload: Payload{FilePath: "/a.txt", FileType: ".txt", Chunk: "text chunk"}},
		{ID: PointID("/b.pdf", "h", 0), Vector: []float32{0, 1},
			Payload: Payload{FilePath: "/b.pdf", FileType: ".pdf", Chunk: "pdf chunk"}},
	}))

	hits, err := q.Search(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = q.Search(ctx, []float32{1, 0}, 10, Filter{FileType: ".pdf"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, PointID("/b.pdf", "h", 0), hits[0].ID)
	assert.Equal(t, "/b.pdf", hits[0].Payload.FilePath)
	assert.Greater(t, hits[0].Score, float32(0))
}

func TestHealthy(t *testing.T) {
	q, fake := newTestStore(t)
	assert.True(t, q.Healthy(context.Background()))
	assert.Contains(t, fake.apiKeys, "secret")

	down := NewQdrant(QdrantConfig{URL: "http://127.0.0.1:1", Collection: "c"})
	assert.False(t, down.Healthy(context.Background()))
}

func TestUnreachableStoreIsRetryableError(t *testing.T) {
	q := NewQdrant(QdrantConfig{URL: "http://127.0.0.1:1", Collection: "c"})
	q.retry.MaxRetries = 0
	_, err := q.CountByFile(context.Background(), "/x.txt")
	require.Error(t, err)
	assert.True(t, seekderrors.IsRetryable(err))
}

func TestTransportFailureRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			// Drop the connection to force a transport error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": 4}})
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL, Collection: "c"})
	q.retry.InitialDelay = time.Millisecond
	q.retry.Jitter = false

	n, err := q.CountByFile(context.Background(), "/x.txt")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, attempts)
}

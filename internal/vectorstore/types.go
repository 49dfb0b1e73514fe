// Package vectorstore adapts an external Qdrant instance: one collection of
// chunk vectors with file metadata payloads, addressed by deterministic
// point ids.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Payload is the metadata stored beside each vector.
type Payload struct {
	FilePath   string `json:"file_path"`
	FileName   string `json:"file_name"`
	FileHash   string `json:"file_hash"`
	FileSize   int64  `json:"file_size"`
	FileType   string `json:"file_type"`
	Chunk      string `json:"chunk"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkSize  int    `json:"chunk_size"`
}

// Point is one vector plus payload, keyed by a deterministic id.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload Payload
}

// Filter restricts search to matching payloads. Zero value = no filter.
type Filter struct {
	// FileType matches the payload file_type exactly, e.g. ".pdf".
	FileType string
	// FilePath matches the payload file_path exactly.
	FilePath string
}

// IsZero reports whether the filter restricts anything.
func (f Filter) IsZero() bool {
	return f.FileType == "" && f.FilePath == ""
}

// String renders the filter for cache keys. Stable across runs.
func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return fmt.Sprintf("file_type=%s;file_path=%s", f.FileType, f.FilePath)
}

// Store is the vector database surface the indexer and search paths need.
type Store interface {
	// EnsureCollection creates the collection if missing and verifies the
	// vector dimension if present.
	EnsureCollection(ctx context.Context, dims int) error

	// Upsert writes points, overwriting any existing points with the same ids.
	// Returns only after the write is durable.
	Upsert(ctx context.Context, points []Point) error

	// DeleteByFile removes every point whose payload file_path matches.
	// Returns the number of points that existed before deletion.
	DeleteByFile(ctx context.Context, path string) (int, error)

	// Search returns the limit nearest points by cosine similarity.
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]ScoredPoint, error)

	// CountByFile returns the number of points for one file path.
	CountByFile(ctx context.Context, path string) (int, error)

	// Count returns the total number of points in the collection.
	Count(ctx context.Context) (int, error)

	// Healthy reports whether the store is reachable.
	Healthy(ctx context.Context) bool
}

// pointNamespace scopes generated ids to this application.
var pointNamespace = uuid.MustParse("6b3a1b6e-4f0c-5d2a-9e8f-1c7d2a5b4e3f")

// PointID derives the stable point id for a chunk. The same
// (path, digest, index) triple always maps to the same id, which makes
// reindexing idempotent: replayed upserts overwrite themselves.
func PointID(path, digest string, chunkIndex int) string {
	name := fmt.Sprintf("%s\x00%s\x00%d", path, digest, chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

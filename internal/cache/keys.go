package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EmbeddingKey derives the embedding-cache key for a (model, text) pair.
// Different models must never share entries.
func EmbeddingKey(modelID, text string) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// SearchKey derives the search-cache key from the normalized query, the
// requested result count, any filter expression, and the model identity.
func SearchKey(query string, topK int, filters string, modelID string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00%s", normalized, topK, filters, modelID)
	return hex.EncodeToString(h.Sum(nil))
}

// VectorSize estimates the in-memory size of a float32 vector.
func VectorSize(v []float32) int64 {
	return int64(len(v)) * 4
}

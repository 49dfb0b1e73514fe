// Package chunk splits extracted document text into overlapping word windows
// sized for the embedding model's context.
package chunk

import (
	"strings"
)

// Chunk is one window of a document's text.
type Chunk struct {
	// Text is the window content with words joined by single spaces.
	Text string
	// Index is the window's ordinal position within the document.
	Index int
}

// Chunker produces overlapping windows over whitespace-split words.
type Chunker struct {
	size    int
	overlap int
}

// Options configures a Chunker.
type Options struct {
	// Size is the window size in words.
	Size int
	// Overlap is the number of words shared between consecutive windows.
	// Must be smaller than Size.
	Overlap int
}

// DefaultOptions returns the standard window configuration.
func DefaultOptions() Options {
	return Options{Size: 800, Overlap: 120}
}

// New creates a Chunker. Invalid options fall back to defaults.
func New(opts Options) *Chunker {
	def := DefaultOptions()
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = def.Overlap
		if opts.Overlap >= opts.Size {
			opts.Overlap = opts.Size / 4
		}
	}
	return &Chunker{size: opts.Size, overlap: opts.Overlap}
}

// Split breaks text into overlapping windows. Whitespace runs collapse to
// single spaces; empty or whitespace-only input yields no chunks. The final
// window may be shorter than the configured size and is never duplicated.
func (c *Chunker) Split(text string) []Chunk {
	words := strings.Fields(text)
	n := len(words)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{
			Text:  strings.Join(words[start:end], " "),
			Index: len(chunks),
		})
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplitEmpty(t *testing.T) {
	c := New(Options{Size: 10, Overlap: 2})
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitSingleWindow(t *testing.T) {
	c := New(Options{Size: 10, Overlap: 2})
	chunks := c.Split("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitOverlap(t *testing.T) {
	c := New(Options{Size: 10, Overlap: 3})
	chunks := c.Split(words(25))
	require.Len(t, chunks, 3)

	// Windows: [0,10) [7,17) [14,25)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w7 "))
	assert.True(t, strings.HasSuffix(chunks[1].Text, " w16"))
	assert.True(t, strings.HasPrefix(chunks[2].Text, "w14 "))
	assert.True(t, strings.HasSuffix(chunks[2].Text, " w24"))

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplitExactBoundaryNoDuplicateTail(t *testing.T) {
	c := New(Options{Size: 10, Overlap: 3})
	chunks := c.Split(words(10))
	require.Len(t, chunks, 1)
}

func TestSplitCollapsesWhitespace(t *testing.T) {
	c := New(Options{Size: 10, Overlap: 0})
	chunks := c.Split("a\n\nb\t c   d")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a b c d", chunks[0].Text)
}

func TestSplitEveryWordCovered(t *testing.T) {
	c := New(Options{Size: 50, Overlap: 10})
	chunks := c.Split(words(237))

	seen := make(map[string]bool)
	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.Text) {
			seen[w] = true
		}
	}
	for i := 0; i < 237; i++ {
		assert.True(t, seen[fmt.Sprintf("w%d", i)], "word w%d missing", i)
	}
}

func TestNewSanitizesOptions(t *testing.T) {
	c := New(Options{Size: 0, Overlap: -5})
	chunks := c.Split(words(900))
	require.NotEmpty(t, chunks)

	c = New(Options{Size: 10, Overlap: 10})
	chunks = c.Split(words(30))
	require.NotEmpty(t, chunks)
	// Must terminate and advance.
	assert.Less(t, len(chunks), 30)
}

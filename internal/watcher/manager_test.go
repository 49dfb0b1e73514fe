package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekd/seekd/internal/indexer"
)

type recordingIndexer struct {
	mu      sync.Mutex
	indexed []string
	reindex []string
	removed []string
}

func (r *recordingIndexer) IndexFile(_ context.Context, path string) (indexer.FileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, path)
	return indexer.FileResult{FilePath: path}, nil
}

func (r *recordingIndexer) ReindexFile(_ context.Context, path string) (indexer.FileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reindex = append(r.reindex, path)
	return indexer.FileResult{FilePath: path, Reindexed: true}, nil
}

func (r *recordingIndexer) RemoveFile(_ context.Context, path string) (indexer.RemoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
	return indexer.RemoveResult{FilePath: path}, nil
}

func (r *recordingIndexer) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexed), len(r.reindex), len(r.removed)
}

func newTestManager(t *testing.T) (*Manager, *recordingIndexer, string) {
	t.Helper()
	dir := t.TempDir()
	ix := &recordingIndexer{}
	m := NewManager(ix, Options{DebounceWindow: 30 * time.Millisecond})
	t.Cleanup(m.Stop)
	require.NoError(t, m.Watch(context.Background(), dir))
	// Give the recursive watch a moment to establish.
	time.Sleep(100 * time.Millisecond)
	return m, ix, dir
}

func TestManagerIndexesNewFile(t *testing.T) {
	_, ix, dir := newTestManager(t)

	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		indexed, _, _ := ix.counts()
		return indexed >= 1
	}, 3*time.Second, 20*time.Millisecond)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	assert.Contains(t, ix.indexed, path)
}

func TestManagerRemovesDeletedFile(t *testing.T) {
	_, ix, dir := newTestManager(t)

	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	require.Eventually(t, func() bool {
		indexed, _, _ := ix.counts()
		return indexed >= 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		_, _, removed := ix.counts()
		return removed >= 1
	}, 3*time.Second, 20*time.Millisecond)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	assert.Contains(t, ix.removed, path)
}

func TestManagerIgnoresUnsupportedFiles(t *testing.T) {
	_, ix, dir := newTestManager(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "binary.exe"), []byte{0x01}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.md"), []byte("# hi"), 0o644))

	require.Eventually(t, func() bool {
		indexed, _, _ := ix.counts()
		return indexed >= 1
	}, 3*time.Second, 20*time.Millisecond)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, p := range ix.indexed {
		assert.NotEqual(t, ".exe", filepath.Ext(p))
	}
}

func TestManagerWatchIdempotent(t *testing.T) {
	m, _, dir := newTestManager(t)
	require.NoError(t, m.Watch(context.Background(), dir))
	assert.Len(t, m.WatchedDirs(), 1)
}

func TestManagerUnwatch(t *testing.T) {
	m, ix, dir := newTestManager(t)
	m.Unwatch(dir)
	assert.Empty(t, m.WatchedDirs())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	indexed, _, _ := ix.counts()
	assert.Zero(t, indexed)
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.Stop()
	m.Stop()
	assert.Error(t, m.Watch(context.Background(), t.TempDir()))
}

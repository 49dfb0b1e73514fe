package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestDirectoriesRoundTrip(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.AddDirectory(ctx, "/home/user/docs"))
	require.NoError(t, r.AddDirectory(ctx, "/home/user/notes"))
	// Re-registering is a no-op.
	require.NoError(t, r.AddDirectory(ctx, "/home/user/docs"))

	dirs, err := r.Directories(ctx)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "/home/user/docs", dirs[0].Path)
	assert.Equal(t, "/home/user/notes", dirs[1].Path)
	assert.False(t, dirs[0].RegisteredAt.IsZero())

	require.NoError(t, r.RemoveDirectory(ctx, "/home/user/docs"))
	dirs, err = r.Directories(ctx)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
}

func TestAddDirectoryNormalizesPath(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.AddDirectory(ctx, "/data/docs"))
	require.NoError(t, r.AddDirectory(ctx, "/data/docs/"))
	require.NoError(t, r.AddDirectory(ctx, "/data/./docs"))

	dirs, err := r.Directories(ctx)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "/data/docs", dirs[0].Path)

	require.NoError(t, r.RemoveDirectory(ctx, "/data/docs/"))
	dirs, err = r.Directories(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestFileUpsertAndGet(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	f := File{
		Path:        "/docs/a.txt",
		Size:        42,
		ModTime:     now,
		Digest:      "deadbeef",
		FileType:    ".txt",
		Status:      StatusIndexed,
		ChunkCount:  3,
		LastIndexed: now,
	}
	require.NoError(t, r.UpsertFile(ctx, f))

	got, err := r.GetFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, f.Digest, got.Digest)
	assert.Equal(t, StatusIndexed, got.Status)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, now.Unix(), got.ModTime.Unix())

	// Upsert replaces.
	f.Digest = "cafebabe"
	f.ChunkCount = 5
	require.NoError(t, r.UpsertFile(ctx, f))
	got, err = r.GetFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", got.Digest)
	assert.Equal(t, 5, got.ChunkCount)
}

func TestGetFileMissing(t *testing.T) {
	r := openTestRegistry(t)
	_, err := r.GetFile(context.Background(), "/nope")
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeFileNotFound, seekderrors.GetCode(err))
}

func TestSetStatus(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.SetStatus(ctx, "/docs/new.txt", StatusPending))
	got, err := r.GetFile(ctx, "/docs/new.txt")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	require.NoError(t, r.SetStatus(ctx, "/docs/new.txt", StatusFailed))
	got, err = r.GetFile(ctx, "/docs/new.txt")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestRemoveFile(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.SetStatus(ctx, "/docs/x.txt", StatusIndexed))
	require.NoError(t, r.RemoveFile(ctx, "/docs/x.txt"))
	_, err := r.GetFile(ctx, "/docs/x.txt")
	assert.Error(t, err)

	// Removing an unknown path is fine.
	assert.NoError(t, r.RemoveFile(ctx, "/docs/x.txt"))
}

func TestFilesUnder(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	for _, p := range []string{"/a/one.txt", "/a/sub/two.txt", "/b/three.txt"} {
		require.NoError(t, r.SetStatus(ctx, p, StatusIndexed))
	}

	files, err := r.FilesUnder(ctx, "/a")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/a/one.txt", files[0].Path)
	assert.Equal(t, "/a/sub/two.txt", files[1].Path)

	all, err := r.Files(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

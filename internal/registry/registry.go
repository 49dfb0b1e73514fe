// Package registry persists the set of watched directories and the indexing
// state of every known file in a local SQLite database.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	seekderrors "github.com/seekd/seekd/internal/errors"
)

// FileStatus is the indexing state of a file record.
type FileStatus string

const (
	StatusPending FileStatus = "pending"
	StatusIndexed FileStatus = "indexed"
	StatusFailed  FileStatus = "failed"
)

// Directory is a registered watch root.
type Directory struct {
	Path         string
	RegisteredAt time.Time
}

// File is the registry's record of one indexed file.
type File struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Digest      string
	FileType    string
	Status      FileStatus
	ChunkCount  int
	LastIndexed time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS directories (
	path          TEXT PRIMARY KEY,
	registered_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	path         TEXT PRIMARY KEY,
	size         INTEGER NOT NULL DEFAULT 0,
	mod_time     INTEGER NOT NULL DEFAULT 0,
	digest       TEXT NOT NULL DEFAULT '',
	file_type    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	chunk_count  INTEGER NOT NULL DEFAULT 0,
	last_indexed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);
`

// Registry wraps the SQLite database.
type Registry struct {
	db *sql.DB
}

// Open creates or opens the registry database at path and applies the schema.
func Open(path string) (*Registry, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, seekderrors.New(seekderrors.ErrCodeInternal,
			fmt.Sprintf("failed to open registry at %s", path), err)
	}

	// Single writer: SQLite serializes writes anyway, and one connection
	// avoids SQLITE_BUSY churn under concurrent indexing.
	db.SetMaxOpenConns(1)

	// DSN params may be ignored by modernc.org/sqlite; set pragmas explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, seekderrors.New(seekderrors.ErrCodeInternal,
				fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, seekderrors.New(seekderrors.ErrCodeInternal, "failed to apply registry schema", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// AddDirectory registers a watch root. The path is normalized before
// insertion so "/data/docs" and "/data/docs/" are the same root.
// Re-registering is a no-op.
func (r *Registry) AddDirectory(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO directories (path, registered_at) VALUES (?, ?)
		 ON CONFLICT(path) DO NOTHING`,
		filepath.Clean(path), time.Now().Unix())
	return err
}

// RemoveDirectory unregisters a watch root.
func (r *Registry) RemoveDirectory(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM directories WHERE path = ?`,
		filepath.Clean(path))
	return err
}

// Directories lists all registered watch roots.
func (r *Registry) Directories(ctx context.Context) ([]Directory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path, registered_at FROM directories ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirs []Directory
	for rows.Next() {
		var d Directory
		var ts int64
		if err := rows.Scan(&d.Path, &ts); err != nil {
			return nil, err
		}
		d.RegisteredAt = time.Unix(ts, 0)
		dirs = append(dirs, d)
	}
	return dirs, rows.Err()
}

// UpsertFile writes or replaces a file record.
func (r *Registry) UpsertFile(ctx context.Context, f File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (path, size, mod_time, digest, file_type, status, chunk_count, last_indexed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			digest = excluded.digest,
			file_type = excluded.file_type,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			last_indexed = excluded.last_indexed`,
		f.Path, f.Size, f.ModTime.Unix(), f.Digest, f.FileType,
		string(f.Status), f.ChunkCount, f.LastIndexed.Unix())
	return err
}

// SetStatus updates just the status of an existing record, creating a
// minimal one if the path is unknown.
func (r *Registry) SetStatus(ctx context.Context, path string, status FileStatus) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (path, status) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET status = excluded.status`,
		path, string(status))
	return err
}

// GetFile fetches one file record. Returns ErrCodeFileNotFound if absent.
func (r *Registry) GetFile(ctx context.Context, path string) (File, error) {
	var f File
	var modTime, lastIndexed int64
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT path, size, mod_time, digest, file_type, status, chunk_count, last_indexed
		 FROM files WHERE path = ?`, path).
		Scan(&f.Path, &f.Size, &modTime, &f.Digest, &f.FileType, &status, &f.ChunkCount, &lastIndexed)
	if err == sql.ErrNoRows {
		return File{}, seekderrors.NotFound(path)
	}
	if err != nil {
		return File{}, err
	}
	f.ModTime = time.Unix(modTime, 0)
	f.LastIndexed = time.Unix(lastIndexed, 0)
	f.Status = FileStatus(status)
	return f, nil
}

// RemoveFile deletes a file record. Missing paths are not an error.
func (r *Registry) RemoveFile(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	return err
}

// Files lists all file records ordered by path.
func (r *Registry) Files(ctx context.Context) ([]File, error) {
	return r.queryFiles(ctx,
		`SELECT path, size, mod_time, digest, file_type, status, chunk_count, last_indexed
		 FROM files ORDER BY path`)
}

// FilesUnder lists file records whose path sits under root.
func (r *Registry) FilesUnder(ctx context.Context, root string) ([]File, error) {
	pattern := filepath.Clean(root) + string(filepath.Separator) + "%"
	return r.queryFiles(ctx,
		`SELECT path, size, mod_time, digest, file_type, status, chunk_count, last_indexed
		 FROM files WHERE path LIKE ? ORDER BY path`, pattern)
}

func (r *Registry) queryFiles(ctx context.Context, query string, args ...any) ([]File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var modTime, lastIndexed int64
		var status string
		if err := rows.Scan(&f.Path, &f.Size, &modTime, &f.Digest, &f.FileType,
			&status, &f.ChunkCount, &lastIndexed); err != nil {
			return nil, err
		}
		f.ModTime = time.Unix(modTime, 0)
		f.LastIndexed = time.Unix(lastIndexed, 0)
		f.Status = FileStatus(status)
		files = append(files, f)
	}
	return files, rows.Err()
}

// Package indexer owns the file → chunks → vectors → store pipeline and the
// directory scan that feeds it.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/seekd/seekd/internal/chunk"
	"github.com/seekd/seekd/internal/embed"
	seekderrors "github.com/seekd/seekd/internal/errors"
	"github.com/seekd/seekd/internal/parser"
	"github.com/seekd/seekd/internal/registry"
	"github.com/seekd/seekd/internal/vectorstore"
)

// SearchInvalidator drops cached search results after any index mutation.
type SearchInvalidator interface {
	Clear()
}

// FileResult reports the outcome of a single-file operation.
type FileResult struct {
	FilePath      string
	FileName      string
	FileType      string
	Checksum      string
	Size          int64
	ChunksIndexed int

	// Skipped is set for unsupported extensions.
	Skipped bool
	// NoOp is set when the digest matched the registry and nothing was done.
	NoOp bool
	// Warning carries a soft parse failure; the file is marked failed but the
	// operation itself succeeds.
	Warning string
	// Reindexed marks results from ReindexFile.
	Reindexed bool
}

// DirResult aggregates a directory scan.
type DirResult struct {
	Directory      string
	TotalFiles     int
	FilesProcessed int
	ChunksIndexed  int
	FilesSkipped   int
	FilesFailed    int
}

// RemoveResult reports a removal.
type RemoveResult struct {
	FilePath      string
	FileName      string
	ChunksRemoved int
}

// Options configures an Indexer.
type Options struct {
	Parser   *parser.Parser
	Chunker  *chunk.Chunker
	Embedder embed.Embedder
	Store    vectorstore.Store
	Registry *registry.Registry
	// SearchCache is cleared after every successful mutation. Optional.
	SearchCache SearchInvalidator
	// Workers bounds concurrent file processing in a directory scan. 0 = NumCPU.
	Workers int
	// MaxInflightFiles bounds how many files are admitted into the scan
	// pipeline at once.
	MaxInflightFiles int
}

// Indexer coordinates parsing, chunking, embedding, and vector storage.
type Indexer struct {
	parser   *parser.Parser
	chunker  *chunk.Chunker
	embedder embed.Embedder
	store    vectorstore.Store
	registry *registry.Registry
	searchC  SearchInvalidator
	workers  int
	inflight int
	locks    *pathLocks
}

// New creates an Indexer.
func New(opts Options) *Indexer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxInflightFiles <= 0 {
		opts.MaxInflightFiles = 8
	}
	return &Indexer{
		parser:   opts.Parser,
		chunker:  opts.Chunker,
		embedder: opts.Embedder,
		store:    opts.Store,
		registry: opts.Registry,
		searchC:  opts.SearchCache,
		workers:  opts.Workers,
		inflight: opts.MaxInflightFiles,
		locks:    newPathLocks(),
	}
}

// IndexFile indexes one file, short-circuiting when the content digest is
// unchanged since the last successful index.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (FileResult, error) {
	return ix.indexOne(ctx, path, false)
}

// ReindexFile drops the file's existing points and indexes from scratch.
func (ix *Indexer) ReindexFile(ctx context.Context, path string) (FileResult, error) {
	res, err := ix.indexOne(ctx, path, true)
	res.Reindexed = true
	return res, err
}

func (ix *Indexer) indexOne(ctx context.Context, path string, force bool) (FileResult, error) {
	if err := validatePath(path); err != nil {
		return FileResult{}, err
	}

	res := FileResult{
		FilePath: path,
		FileName: filepath.Base(path),
		FileType: strings.ToLower(filepath.Ext(path)),
	}
	if !parser.IsSupported(res.FileType) {
		res.Skipped = true
		return res, nil
	}

	unlock := ix.locks.lock(path)
	defer unlock()

	// Cached search results go stale the moment the store changes, even when
	// a later step fails after a successful delete.
	mutated := false
	defer func() {
		if mutated {
			ix.invalidateSearch()
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return res, seekderrors.NotFound(path)
		}
		return res, seekderrors.Wrap(seekderrors.ErrCodeIndexFailed, err)
	}
	digest := sha256Hex(data)
	res.Checksum = digest
	res.Size = int64(len(data))

	prevDigest := ""
	if record, err := ix.registry.GetFile(ctx, path); err == nil {
		prevDigest = record.Digest
		if !force && record.Digest == digest && record.Status == registry.StatusIndexed {
			res.NoOp = true
			res.ChunksIndexed = record.ChunkCount
			return res, nil
		}
	}

	if force {
		if _, err := ix.store.DeleteByFile(ctx, path); err != nil {
			return res, err
		}
		mutated = true
		prevDigest = ""
	}

	text, err := ix.parser.Parse(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		// Soft failure: previously indexed chunks stay, the scan moves on.
		ix.markFailed(ctx, path)
		res.Warning = err.Error()
		slog.Warn("parse_failed", slog.String("path", path), slog.Any("error", err))
		return res, nil
	}

	chunks := ix.chunker.Split(text)
	if len(chunks) == 0 {
		// Content reduced to nothing: points for an older digest are stale.
		if prevDigest != "" {
			if _, err := ix.store.DeleteByFile(ctx, path); err != nil {
				return res, err
			}
			mutated = true
		}
		if err := ix.recordIndexed(ctx, path, res, digest, 0); err != nil {
			return res, err
		}
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		ix.markFailed(ctx, path)
		return res, seekderrors.Wrap(seekderrors.ErrCodeEmbeddingFailed, err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:     vectorstore.PointID(path, digest, c.Index),
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				FilePath:   path,
				FileName:   res.FileName,
				FileHash:   digest,
				FileSize:   res.Size,
				FileType:   res.FileType,
				Chunk:      c.Text,
				ChunkIndex: c.Index,
				ChunkSize:  len(c.Text),
			},
		}
	}

	// A changed digest changes every point id, so the old set must go first.
	// Same digest means stable ids and the upsert overwrites in place.
	if prevDigest != "" && prevDigest != digest {
		if _, err := ix.store.DeleteByFile(ctx, path); err != nil {
			ix.markFailed(ctx, path)
			return res, err
		}
		mutated = true
	}
	if err := ix.store.Upsert(ctx, points); err != nil {
		ix.markFailed(ctx, path)
		return res, err
	}
	mutated = true

	if err := ix.recordIndexed(ctx, path, res, digest, len(points)); err != nil {
		return res, err
	}
	res.ChunksIndexed = len(points)

	slog.Info("index_complete",
		slog.String("path", path),
		slog.Int("chunks", len(points)),
		slog.String("digest", digest[:12]))
	return res, nil
}

// RemoveFile deletes the file's points and registry record. The file need
// not exist on disk.
func (ix *Indexer) RemoveFile(ctx context.Context, path string) (RemoveResult, error) {
	if err := validatePath(path); err != nil {
		return RemoveResult{}, err
	}

	unlock := ix.locks.lock(path)
	defer unlock()

	res := RemoveResult{FilePath: path, FileName: filepath.Base(path)}

	removed, err := ix.store.DeleteByFile(ctx, path)
	if err != nil {
		return res, err
	}
	res.ChunksRemoved = removed
	defer ix.invalidateSearch()

	if err := ix.registry.RemoveFile(ctx, path); err != nil {
		return res, seekderrors.Wrap(seekderrors.ErrCodeIndexFailed, err)
	}

	slog.Info("remove_complete", slog.String("path", path), slog.Int("chunks_removed", removed))
	return res, nil
}

// IndexDirectory walks root and indexes every supported regular file with
// bounded concurrency. Per-file failures never abort the walk.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) (DirResult, error) {
	if err := validatePath(root); err != nil {
		return DirResult{}, err
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return DirResult{}, seekderrors.NotFound(root)
		}
		return DirResult{}, seekderrors.Wrap(seekderrors.ErrCodeIndexFailed, err)
	}
	if !info.IsDir() {
		return DirResult{}, seekderrors.InvalidInput("not a directory: " + root)
	}

	res := DirResult{Directory: root}
	var supported []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("walk_error", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// Follow symlinks only when they resolve inside the root.
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !strings.HasPrefix(resolved, filepath.Clean(root)+string(filepath.Separator)) {
				return nil
			}
		}
		res.TotalFiles++
		if !parser.IsSupported(filepath.Ext(path)) {
			res.FilesSkipped++
			return nil
		}
		supported = append(supported, path)
		return nil
	})
	if walkErr != nil {
		return res, seekderrors.Wrap(seekderrors.ErrCodeIndexFailed, walkErr)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	// The semaphore keeps the admission loop from racing ahead of the pool.
	sem := semaphore.NewWeighted(int64(ix.inflight))
	for _, path := range supported {
		path := path
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			fileRes, err := ix.IndexFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			res.FilesProcessed++
			switch {
			case err != nil:
				res.FilesFailed++
				slog.Warn("index_file_failed", slog.String("path", path), slog.Any("error", err))
			case fileRes.Warning != "":
				res.FilesFailed++
			default:
				res.ChunksIndexed += fileRes.ChunksIndexed
			}
			// Per-file errors are absorbed; only cancellation stops the scan.
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	slog.Info("scan_complete",
		slog.String("root", root),
		slog.Int("files_processed", res.FilesProcessed),
		slog.Int("chunks_indexed", res.ChunksIndexed),
		slog.Int("files_skipped", res.FilesSkipped),
		slog.Int("files_failed", res.FilesFailed))
	return res, nil
}

func (ix *Indexer) recordIndexed(ctx context.Context, path string, res FileResult, digest string, chunkCount int) error {
	now := time.Now()
	err := ix.registry.UpsertFile(ctx, registry.File{
		Path:        path,
		Size:        res.Size,
		ModTime:     now,
		Digest:      digest,
		FileType:    res.FileType,
		Status:      registry.StatusIndexed,
		ChunkCount:  chunkCount,
		LastIndexed: now,
	})
	if err != nil {
		return seekderrors.Wrap(seekderrors.ErrCodeIndexFailed, err)
	}
	return nil
}

// markFailed flips only the status so a failed reparse keeps the digest of
// the chunks still sitting in the store.
func (ix *Indexer) markFailed(ctx context.Context, path string) {
	if err := ix.registry.SetStatus(ctx, path, registry.StatusFailed); err != nil {
		slog.Warn("registry_update_failed", slog.String("path", path), slog.Any("error", err))
	}
}

func (ix *Indexer) invalidateSearch() {
	if ix.searchC != nil {
		ix.searchC.Clear()
	}
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return seekderrors.New(seekderrors.ErrCodeInvalidPath, "path is required", nil)
	}
	if !filepath.IsAbs(path) {
		return seekderrors.New(seekderrors.ErrCodeInvalidPath, "path must be absolute: "+path, nil)
	}
	return nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

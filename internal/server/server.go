// Package server exposes the index and search pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seekd/seekd/internal/cache"
	"github.com/seekd/seekd/internal/embed"
	seekderrors "github.com/seekd/seekd/internal/errors"
	"github.com/seekd/seekd/internal/indexer"
	"github.com/seekd/seekd/internal/registry"
	"github.com/seekd/seekd/internal/search"
	"github.com/seekd/seekd/internal/vectorstore"
)

// Indexer is the slice of the indexing pipeline the server drives.
type Indexer interface {
	IndexFile(ctx context.Context, path string) (indexer.FileResult, error)
	ReindexFile(ctx context.Context, path string) (indexer.FileResult, error)
	RemoveFile(ctx context.Context, path string) (indexer.RemoveResult, error)
	IndexDirectory(ctx context.Context, root string) (indexer.DirResult, error)
}

// Searcher answers queries and serves cache introspection.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, filter vectorstore.Filter) (search.Response, error)
	FileContent(ctx context.Context, path string) (string, int, error)
	CacheStats() cache.Stats
	InvalidateCache()
}

// EmbedCache exposes the embedding cache counters.
type EmbedCache interface {
	Stats() cache.Stats
	ClearCache()
}

// DirWatcher starts live watching for a directory after it is indexed.
type DirWatcher interface {
	Watch(ctx context.Context, dir string) error
}

// Options wires the server's dependencies.
type Options struct {
	Indexer  Indexer
	Searcher Searcher
	Embedder embed.Embedder
	Store    vectorstore.Store
	Registry *registry.Registry

	// EmbedCache is optional; without it /cache/stats reports only the
	// search cache.
	EmbedCache EmbedCache
	// Watcher is optional; when set, indexed directories are watched for
	// live changes.
	Watcher DirWatcher

	Collection string
	Addr       string
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	router *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Indexer == nil || opts.Searcher == nil || opts.Embedder == nil || opts.Store == nil {
		return nil, seekderrors.New(seekderrors.ErrCodeConfigInvalid,
			"server requires an indexer, searcher, embedder, and store", nil)
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{opts: opts, router: router}

	router.POST("/index-directory", s.handleIndexDirectory)
	router.POST("/index-file", s.handleIndexFile)
	router.POST("/reindex-file", s.handleReindexFile)
	router.DELETE("/remove-file", s.handleRemoveFile)
	router.POST("/search", s.handleSearch)
	router.GET("/health", s.handleHealth)
	router.POST("/file-content", s.handleFileContent)
	router.GET("/debug/indexed-files", s.handleIndexedFiles)
	router.GET("/cache/stats", s.handleCacheStats)
	router.POST("/cache/clear", s.handleCacheClear)

	return s, nil
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs each request through slog instead of gin's writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}

// writeError maps structured error codes onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch seekderrors.GetCode(err) {
	case seekderrors.ErrCodeInvalidPath,
		seekderrors.ErrCodeInvalidInput,
		seekderrors.ErrCodeQueryEmpty,
		seekderrors.ErrCodeUnsupportedFormat:
		status = http.StatusBadRequest
	case seekderrors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	}

	body := gin.H{"error": err.Error()}
	if code := seekderrors.GetCode(err); code != "" {
		body["details"] = code
	}
	c.JSON(status, body)
}

package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seekd/seekd/internal/indexer"
	"github.com/seekd/seekd/internal/vectorstore"
)

type pathRequest struct {
	Path string `json:"path"`
}

type searchRequest struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	FileType string `json:"file_type"`
	FilePath string `json:"file_path"`
}

func (s *Server) handleIndexDirectory(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	res, err := s.opts.Indexer.IndexDirectory(c.Request.Context(), req.Path)
	if err != nil {
		writeError(c, err)
		return
	}

	if s.opts.Registry != nil {
		if err := s.opts.Registry.AddDirectory(c.Request.Context(), res.Directory); err != nil {
			slog.Warn("failed to register directory",
				slog.String("dir", res.Directory),
				slog.String("error", err.Error()))
		}
	}
	if s.opts.Watcher != nil {
		if err := s.opts.Watcher.Watch(c.Request.Context(), res.Directory); err != nil {
			slog.Warn("failed to start watch",
				slog.String("dir", res.Directory),
				slog.String("error", err.Error()))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"directory":      res.Directory,
		"totalFiles":     res.TotalFiles,
		"filesProcessed": res.FilesProcessed,
		"chunksIndexed":  res.ChunksIndexed,
		"filesSkipped":   res.FilesSkipped,
		"filesFailed":    res.FilesFailed,
	})
}

func (s *Server) handleIndexFile(c *gin.Context) {
	s.indexFile(c, false)
}

func (s *Server) handleReindexFile(c *gin.Context) {
	s.indexFile(c, true)
}

func (s *Server) indexFile(c *gin.Context, reindex bool) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	var (
		res indexer.FileResult
		err error
	)
	if reindex {
		res, err = s.opts.Indexer.ReindexFile(c.Request.Context(), req.Path)
	} else {
		res, err = s.opts.Indexer.IndexFile(c.Request.Context(), req.Path)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"success":       true,
		"filePath":      res.FilePath,
		"fileName":      res.FileName,
		"fileType":      res.FileType,
		"checksum":      res.Checksum,
		"size":          res.Size,
		"chunksIndexed": res.ChunksIndexed,
	}
	if reindex {
		body["reindexed"] = true
	}
	if res.Skipped {
		body["skipped"] = true
	}
	if res.NoOp {
		body["upToDate"] = true
	}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleRemoveFile(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	res, err := s.opts.Indexer.RemoveFile(c.Request.Context(), req.Path)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"filePath":      res.FilePath,
		"fileName":      res.FileName,
		"chunksRemoved": res.ChunksRemoved,
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	filter := vectorstore.Filter{FileType: req.FileType, FilePath: req.FilePath}
	resp, err := s.opts.Searcher.Search(c.Request.Context(), req.Query, req.TopK, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()

	status := "healthy"
	loaded := s.opts.Embedder.Available(ctx)
	if !loaded || !s.opts.Store.Healthy(ctx) {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"model_info": gin.H{
			"model_name":      s.opts.Embedder.ModelName(),
			"vector_size":     s.opts.Embedder.Dimensions(),
			"is_loaded":       loaded,
			"collection_name": s.opts.Collection,
		},
	})
}

func (s *Server) handleFileContent(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	content, chunks, err := s.opts.Searcher.FileContent(c.Request.Context(), req.Path)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_path": req.Path,
		"content":   content,
		"chunks":    chunks,
	})
}

func (s *Server) handleIndexedFiles(c *gin.Context) {
	if s.opts.Registry == nil {
		c.JSON(http.StatusOK, gin.H{"files": []gin.H{}, "total": 0})
		return
	}

	files, err := s.opts.Registry.Files(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, len(files))
	for i, f := range files {
		out[i] = gin.H{
			"path":         f.Path,
			"size":         f.Size,
			"digest":       f.Digest,
			"file_type":    f.FileType,
			"status":       string(f.Status),
			"chunk_count":  f.ChunkCount,
			"last_indexed": f.LastIndexed,
		}
	}
	c.JSON(http.StatusOK, gin.H{"files": out, "total": len(out)})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	body := gin.H{"search_cache": s.opts.Searcher.CacheStats()}
	if s.opts.EmbedCache != nil {
		body["embedding_cache"] = s.opts.EmbedCache.Stats()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleCacheClear(c *gin.Context) {
	s.opts.Searcher.InvalidateCache()
	if s.opts.EmbedCache != nil {
		s.opts.EmbedCache.ClearCache()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

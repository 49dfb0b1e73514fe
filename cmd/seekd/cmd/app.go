package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/seekd/seekd/internal/chunk"
	"github.com/seekd/seekd/internal/config"
	"github.com/seekd/seekd/internal/embed"
	"github.com/seekd/seekd/internal/indexer"
	"github.com/seekd/seekd/internal/ocr"
	"github.com/seekd/seekd/internal/parser"
	"github.com/seekd/seekd/internal/registry"
	"github.com/seekd/seekd/internal/search"
	"github.com/seekd/seekd/internal/vectorstore"
)

// app bundles the wired pipeline shared by the serve, index, and search
// commands.
type app struct {
	cfg      *config.Config
	reg      *registry.Registry
	store    *vectorstore.Qdrant
	embedder *embed.CachedEmbedder
	indexer  *indexer.Indexer
	engine   *search.Engine
	lock     *flock.Flock
}

// buildApp wires the full pipeline from configuration. The data directory
// is locked for the lifetime of the app; a second instance fails fast
// instead of fighting over the registry.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.DataDir, ".seekd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data directory lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another seekd instance is using %s", cfg.DataDir)
	}

	a := &app{cfg: cfg, lock: lock}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	reg, err := registry.Open(filepath.Join(cfg.DataDir, "registry.db"))
	if err != nil {
		return err
	}
	a.reg = reg

	ocrEngine := ocr.NewTesseract(ocr.Options{
		DPI: cfg.OCR.DPI,
		PSM: cfg.OCR.PSM,
	})

	docParser := parser.New(parser.Options{
		OCR:           ocrEngine,
		MaxFileSizeMB: cfg.Performance.MaxFileSizeMB,
		PDFRenderDPI:  cfg.OCR.DPI,
	})

	chunker := chunk.New(chunk.Options{
		Size:    cfg.Chunking.ChunkSize,
		Overlap: cfg.Chunking.ChunkOverlap,
	})

	base, err := embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{
		Host:       cfg.Embeddings.OllamaURL,
		Model:      cfg.Embeddings.ModelID,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
	})
	if err != nil {
		return err
	}
	cached, err := embed.NewCachedEmbedder(base,
		cfg.Caches.EmbeddingCacheMB,
		time.Duration(cfg.Caches.EmbeddingCacheTTLS)*time.Second)
	if err != nil {
		return err
	}
	a.embedder = cached

	store := vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        cfg.VectorStore.URL,
		APIKey:     cfg.VectorStore.APIKey,
		Collection: cfg.VectorStore.Collection,
	})
	if err := store.EnsureCollection(ctx, cached.Dimensions()); err != nil {
		return err
	}
	a.store = store

	engine, err := search.New(search.Options{
		Embedder:    cached,
		Store:       store,
		MaxTopK:     cfg.Search.MaxTopK,
		CacheSizeMB: cfg.Caches.SearchCacheMB,
		CacheTTL:    time.Duration(cfg.Caches.SearchCacheTTLS) * time.Second,
	})
	if err != nil {
		return err
	}
	a.engine = engine

	a.indexer = indexer.New(indexer.Options{
		Parser:           docParser,
		Chunker:          chunker,
		Embedder:         cached,
		Store:            store,
		Registry:         reg,
		SearchCache:      engine,
		Workers:          cfg.Performance.WorkerPoolSize,
		MaxInflightFiles: cfg.Performance.MaxInflightFiles,
	})

	return nil
}

// Close releases the pipeline's resources in reverse wiring order.
func (a *app) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.reg != nil {
		_ = a.reg.Close()
	}
	if a.lock != nil {
		_ = a.lock.Unlock()
	}
}

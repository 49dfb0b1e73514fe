// Package config loads and validates the worker configuration from a YAML
// file, a .env file, and SEEKD_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/seekd/seekd/internal/errors"
)

// Config represents the complete seekd worker configuration.
type Config struct {
	DataDir     string            `yaml:"data_dir" json:"data_dir"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Chunking    ChunkingConfig    `yaml:"chunking" json:"chunking"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Caches      CachesConfig      `yaml:"caches" json:"caches"`
	VectorStore VectorStoreConfig `yaml:"vector_store" json:"vector_store"`
	Watcher     WatcherConfig     `yaml:"watcher" json:"watcher"`
	OCR         OCRConfig         `yaml:"ocr" json:"ocr"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	LogLevel    string            `yaml:"log_level" json:"log_level"`
}

// EmbeddingsConfig configures the embedding model runtime.
type EmbeddingsConfig struct {
	// ModelID is the sentence-embedding model to load.
	ModelID string `yaml:"model_id" json:"model_id"`
	// Dimensions is the asserted vector dimension. 0 = auto-detect at startup.
	Dimensions int `yaml:"embedding_dim" json:"embedding_dim"`
	// OllamaURL is the local model runtime endpoint.
	OllamaURL string `yaml:"ollama_url" json:"ollama_url"`
	// BatchSize is the maximum texts per model call.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// ChunkingConfig configures the overlapping-window chunker.
type ChunkingConfig struct {
	// ChunkSize is the window size in words.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the overlap between consecutive windows in words.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	// MaxTopK is the upper bound enforced on any search request.
	MaxTopK int `yaml:"max_top_k" json:"max_top_k"`
}

// CachesConfig bounds the embedding and search caches.
type CachesConfig struct {
	EmbeddingCacheMB   int `yaml:"embedding_cache_mb" json:"embedding_cache_mb"`
	EmbeddingCacheTTLS int `yaml:"embedding_cache_ttl_s" json:"embedding_cache_ttl_s"`
	SearchCacheMB      int `yaml:"search_cache_mb" json:"search_cache_mb"`
	SearchCacheTTLS    int `yaml:"search_cache_ttl_s" json:"search_cache_ttl_s"`
}

// VectorStoreConfig configures the external vector database.
type VectorStoreConfig struct {
	URL        string `yaml:"vector_store_url" json:"vector_store_url"`
	APIKey     string `yaml:"vector_store_api_key" json:"vector_store_api_key"`
	Collection string `yaml:"collection_name" json:"collection_name"`
}

// WatcherConfig configures filesystem watching.
type WatcherConfig struct {
	// DebounceMS is the per-path event coalescing window in milliseconds.
	DebounceMS int `yaml:"debounce_ms" json:"debounce_ms"`
}

// OCRConfig tunes the OCR engine.
type OCRConfig struct {
	// DPI is the render resolution for image-only PDF pages.
	DPI int `yaml:"ocr_dpi" json:"ocr_dpi"`
	// PSM is the tesseract page segmentation mode.
	PSM int `yaml:"ocr_psm" json:"ocr_psm"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Host string `yaml:"api_host" json:"api_host"`
	Port int    `yaml:"api_port" json:"api_port"`
}

// PerformanceConfig configures indexing concurrency and limits.
type PerformanceConfig struct {
	// WorkerPoolSize is the indexer's worker count. 0 = NumCPU.
	WorkerPoolSize int `yaml:"worker_pool_size" json:"worker_pool_size"`
	// MaxInflightFiles bounds a directory scan's in-flight file count.
	MaxInflightFiles int `yaml:"max_inflight_files" json:"max_inflight_files"`
	// MaxFileSizeMB is the largest file the parser will touch.
	MaxFileSizeMB int `yaml:"max_file_size_mb" json:"max_file_size_mb"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Embeddings: EmbeddingsConfig{
			ModelID:    "all-minilm",
			Dimensions: 0,
			OllamaURL:  "http://localhost:11434",
			BatchSize:  32,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    800,
			ChunkOverlap: 120,
		},
		Search: SearchConfig{
			MaxTopK: 8,
		},
		Caches: CachesConfig{
			EmbeddingCacheMB:   512,
			EmbeddingCacheTTLS: 3600,
			SearchCacheMB:      128,
			SearchCacheTTLS:    1800,
		},
		VectorStore: VectorStoreConfig{
			URL:        "http://localhost:6333",
			Collection: "files_chunks",
		},
		Watcher: WatcherConfig{
			DebounceMS: 400,
		},
		OCR: OCRConfig{
			DPI: 300,
			PSM: 3,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Performance: PerformanceConfig{
			WorkerPoolSize:   runtime.NumCPU(),
			MaxInflightFiles: 8,
			MaxFileSizeMB:    50,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from the given YAML file (optional), a .env file in
// the working directory (optional), and SEEKD_* environment overrides.
func Load(path string) (*Config, error) {
	// .env values become process env so the override pass picks them up.
	_ = godotenv.Load()

	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.ConfigError("failed to read config file", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError("failed to parse config file", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return errors.ConfigError("chunk_size must be positive", nil)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return errors.ConfigError("chunk_overlap cannot be negative", nil)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return errors.ConfigError("chunk_overlap must be less than chunk_size", nil)
	}
	if c.Search.MaxTopK < 1 {
		return errors.ConfigError("max_top_k must be at least 1", nil)
	}
	if c.Embeddings.Dimensions < 0 {
		return errors.ConfigError("embedding_dim cannot be negative", nil)
	}
	if c.VectorStore.URL == "" {
		return errors.ConfigError("vector_store_url is required", nil)
	}
	if c.VectorStore.Collection == "" {
		return errors.ConfigError("collection_name is required", nil)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.ConfigError(fmt.Sprintf("api_port out of range: %d", c.Server.Port), nil)
	}
	if c.Performance.WorkerPoolSize < 0 {
		return errors.ConfigError("worker_pool_size cannot be negative", nil)
	}
	if c.Performance.WorkerPoolSize == 0 {
		c.Performance.WorkerPoolSize = runtime.NumCPU()
	}
	if c.Performance.MaxInflightFiles <= 0 {
		c.Performance.MaxInflightFiles = 8
	}
	if c.Watcher.DebounceMS <= 0 {
		c.Watcher.DebounceMS = 400
	}
	return nil
}

// applyEnvOverrides applies SEEKD_* environment variables on top of file values.
func (c *Config) applyEnvOverrides() {
	setStr := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	setStr("SEEKD_DATA_DIR", &c.DataDir)
	setStr("SEEKD_MODEL_ID", &c.Embeddings.ModelID)
	setInt("SEEKD_EMBEDDING_DIM", &c.Embeddings.Dimensions)
	setStr("SEEKD_OLLAMA_URL", &c.Embeddings.OllamaURL)
	setInt("SEEKD_CHUNK_SIZE", &c.Chunking.ChunkSize)
	setInt("SEEKD_CHUNK_OVERLAP", &c.Chunking.ChunkOverlap)
	setInt("SEEKD_MAX_TOP_K", &c.Search.MaxTopK)
	setInt("SEEKD_EMBEDDING_CACHE_MB", &c.Caches.EmbeddingCacheMB)
	setInt("SEEKD_EMBEDDING_CACHE_TTL_S", &c.Caches.EmbeddingCacheTTLS)
	setInt("SEEKD_SEARCH_CACHE_MB", &c.Caches.SearchCacheMB)
	setInt("SEEKD_SEARCH_CACHE_TTL_S", &c.Caches.SearchCacheTTLS)
	setStr("SEEKD_VECTOR_STORE_URL", &c.VectorStore.URL)
	setStr("SEEKD_VECTOR_STORE_API_KEY", &c.VectorStore.APIKey)
	setStr("SEEKD_COLLECTION_NAME", &c.VectorStore.Collection)
	setInt("SEEKD_DEBOUNCE_MS", &c.Watcher.DebounceMS)
	setInt("SEEKD_OCR_DPI", &c.OCR.DPI)
	setInt("SEEKD_OCR_PSM", &c.OCR.PSM)
	setStr("SEEKD_API_HOST", &c.Server.Host)
	setInt("SEEKD_API_PORT", &c.Server.Port)
	setInt("SEEKD_WORKER_POOL_SIZE", &c.Performance.WorkerPoolSize)
	setInt("SEEKD_MAX_INFLIGHT_FILES", &c.Performance.MaxInflightFiles)
	setInt("SEEKD_MAX_FILE_SIZE_MB", &c.Performance.MaxFileSizeMB)
	setStr("SEEKD_LOG_LEVEL", &c.LogLevel)
}

// defaultDataDir returns ~/.seekd, falling back to the temp directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".seekd")
	}
	return filepath.Join(home, ".seekd")
}

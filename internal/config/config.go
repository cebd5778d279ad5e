// Package config loads and validates ixchel's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is ixchel's complete configuration.
type Config struct {
	Embedding EmbeddingConfig `toml:"embedding"`
	Storage   StorageConfig   `toml:"storage"`
}

// EmbeddingConfig configures the embedding provider used to vectorize
// entity bodies.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: "fastembed" (built-in, offline,
	// deterministic) or "ollama" (local model server).
	Provider string `toml:"provider"`
	// Model is the model name string passed to the provider.
	Model string `toml:"model"`
	// BatchSize is the number of texts embedded per provider call.
	BatchSize int `toml:"batch_size"`
	// Dimension, if non-zero, must equal the provider's actual output
	// dimension; a mismatch is a fatal startup error.
	Dimension int `toml:"dimension"`
}

// StorageConfig configures the storage backend and its on-disk or remote
// location.
type StorageConfig struct {
	// Backend selects the storage implementation: "helixdb" (embedded
	// BadgerDB-backed KV+graph, default) or "surrealdb" (external document
	// store).
	Backend string `toml:"backend"`
	// Path is relative to the index root for "helixdb", or a connection URL
	// for "surrealdb".
	Path string `toml:"path"`
}

const (
	// DefaultEmbeddingProvider is used when embedding.provider is unset.
	DefaultEmbeddingProvider = "fastembed"
	// DefaultEmbeddingModel is used when embedding.model is unset.
	DefaultEmbeddingModel = "static-minilm"
	// DefaultBatchSize is used when embedding.batch_size is unset.
	DefaultBatchSize = 32
	// DefaultStorageBackend is used when storage.backend is unset.
	DefaultStorageBackend = "helixdb"
	// DefaultStoragePath is used when storage.path is unset.
	DefaultStoragePath = "data/ixchel"

	// ConfigFileName is the configuration file name looked for in an index
	// root directory.
	ConfigFileName = "ixchel.toml"

	// IndexDirName is the sibling directory holding the embedded store.
	IndexDirName = ".ixchel"
)

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  DefaultEmbeddingProvider,
			Model:     DefaultEmbeddingModel,
			BatchSize: DefaultBatchSize,
			Dimension: 0,
		},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			Path:    DefaultStoragePath,
		},
	}
}

// Load loads configuration for the given source directory, applying
// precedence low to high: hardcoded defaults, the `ixchel.toml` file inside
// `<dir>/.ixchel/`, environment variable overrides.
func Load(dir string) (*Config, error) {
	cfg := New()

	if err := cfg.loadFromFile(configPath(dir)); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func configPath(dir string) string {
	return filepath.Join(dir, IndexDirName, ConfigFileName)
}

// loadFromFile merges non-zero fields parsed from path into c. A missing
// file is not an error: defaults apply.
func (c *Config) loadFromFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	var parsed Config
	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.BatchSize != 0 {
		c.Embedding.BatchSize = other.Embedding.BatchSize
	}
	if other.Embedding.Dimension != 0 {
		c.Embedding.Dimension = other.Embedding.Dimension
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
}

// applyEnvOverrides applies IXCHEL_* environment variable overrides, highest
// precedence.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("IXCHEL_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("IXCHEL_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("IXCHEL_EMBEDDING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embedding.BatchSize = n
		}
	}
	if v := os.Getenv("IXCHEL_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("IXCHEL_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

// Validate rejects configurations with unrecognized or out-of-range values.
func (c *Config) Validate() error {
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension must be non-negative, got %d", c.Embedding.Dimension)
	}
	if strings.TrimSpace(c.Embedding.Provider) == "" {
		return fmt.Errorf("embedding.provider must not be empty")
	}
	validBackends := map[string]bool{"helixdb": true, "surrealdb": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		return fmt.Errorf("storage.backend must be 'helixdb' or 'surrealdb', got %q", c.Storage.Backend)
	}
	return nil
}

// Save writes the configuration as TOML to path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// IndexRoot returns the `.ixchel` directory inside dir, the conventional
// sibling index directory.
func IndexRoot(dir string) string {
	return filepath.Join(dir, IndexDirName)
}

// StorageRoot returns the absolute path the configured storage backend
// should use. For the "surrealdb" backend, Storage.Path is treated as a
// connection URL and returned unchanged.
func (c *Config) StorageRoot(dir string) string {
	if strings.EqualFold(c.Storage.Backend, "surrealdb") {
		return c.Storage.Path
	}
	return filepath.Join(IndexRoot(dir), c.Storage.Path)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embedding.Provider)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Embedding.Model)
	assert.Equal(t, DefaultBatchSize, cfg.Embedding.BatchSize)
	assert.Equal(t, 0, cfg.Embedding.Dimension)
	assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
}

func TestLoad_ParsesTOMLFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(IndexRoot(dir), 0o755))

	doc := `
[embedding]
provider = "ollama"
model = "nomic-embed-text"
batch_size = 16
dimension = 768

[storage]
backend = "surrealdb"
path = "ws://localhost:8000"
`
	require.NoError(t, os.WriteFile(configPath(dir), []byte(doc), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 16, cfg.Embedding.BatchSize)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
	assert.Equal(t, "ws://localhost:8000", cfg.Storage.Path)
}

func TestLoad_PartialFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(IndexRoot(dir), 0o755))

	doc := `
[embedding]
model = "custom-model"
`
	require.NoError(t, os.WriteFile(configPath(dir), []byte(doc), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "custom-model", cfg.Embedding.Model)
	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embedding.Provider)
	assert.Equal(t, DefaultBatchSize, cfg.Embedding.BatchSize)
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IXCHEL_STORAGE_BACKEND", "surrealdb")
	t.Setenv("IXCHEL_EMBEDDING_MODEL", "env-model")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
	assert.Equal(t, "env-model", cfg.Embedding.Model)
}

func TestValidate_RejectsUnknownStorageBackend(t *testing.T) {
	cfg := New()
	cfg.Storage.Backend = "sqlite"

	err := cfg.Validate()

	assert.ErrorContains(t, err, "storage.backend")
}

func TestValidate_RejectsNonPositiveBatchSize(t *testing.T) {
	cfg := New()
	cfg.Embedding.BatchSize = 0

	err := cfg.Validate()

	assert.ErrorContains(t, err, "batch_size")
}

func TestSave_RoundTripsThroughTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.toml")
	cfg := New()
	cfg.Embedding.Model = "round-trip-model"

	require.NoError(t, cfg.Save(path))

	loaded := New()
	_, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, loaded.loadFromFile(path))

	assert.Equal(t, "round-trip-model", loaded.Embedding.Model)
}

func TestStorageRoot_JoinsPathForEmbeddedBackend(t *testing.T) {
	cfg := New()
	cfg.Storage.Path = "data/ixchel"

	got := cfg.StorageRoot("/repo")

	assert.Equal(t, filepath.Join("/repo", IndexDirName, "data/ixchel"), got)
}

func TestStorageRoot_PassesThroughURLForSurreal(t *testing.T) {
	cfg := New()
	cfg.Storage.Backend = "surrealdb"
	cfg.Storage.Path = "ws://localhost:8000"

	assert.Equal(t, "ws://localhost:8000", cfg.StorageRoot("/repo"))
}

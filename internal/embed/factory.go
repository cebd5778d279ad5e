package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinmichaelchen/ixchel/internal/config"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
)

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	// ProviderFastEmbed is the default, offline, deterministic provider.
	ProviderFastEmbed ProviderType = "fastembed"

	// ProviderOllama delegates to a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// ParseProvider converts a config string into a ProviderType, defaulting
// to ProviderFastEmbed for an empty or unrecognized value.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderOllama):
		return ProviderOllama
	default:
		return ProviderFastEmbed
	}
}

// New builds the Embedder named by cfg.Embedding, and validates its
// dimension against expectedDimension (the dimension storage.Open
// declared for an existing index). A mismatch is fatal: mixing
// embedders of different widths inside one index silently corrupts
// nearest-neighbor search. Pass 0 to skip the check (first sync of a
// fresh index).
func New(ctx context.Context, cfg config.EmbeddingConfig, expectedDimension int) (Embedder, error) {
	var embedder Embedder
	var err error

	switch ParseProvider(cfg.Provider) {
	case ProviderOllama:
		embedder, err = newOllama(ctx, cfg)
	default:
		embedder = NewStaticEmbedder()
	}
	if err != nil {
		return nil, err
	}

	if expectedDimension != 0 && embedder.Dimensions() != expectedDimension {
		return nil, ixerr.New(ixerr.KindEmbedding,
			fmt.Sprintf("embedder %q produces %d-dimensional vectors, but the index was built with %d",
				embedder.ModelName(), embedder.Dimensions(), expectedDimension), nil)
	}

	if cfg.Dimension != 0 && embedder.Dimensions() != cfg.Dimension {
		_ = embedder.Close()
		return nil, ixerr.New(ixerr.KindEmbedding,
			fmt.Sprintf("embedding.dimension is %d, but embedder %q produces %d-dimensional vectors",
				cfg.Dimension, embedder.ModelName(), embedder.Dimensions()), nil)
	}

	return embedder, nil
}

func newOllama(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	oc := DefaultOllamaConfig()
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	if cfg.BatchSize > 0 {
		oc.BatchSize = cfg.BatchSize
	}
	if cfg.Dimension > 0 {
		oc.Dimensions = cfg.Dimension
	}

	embedder, err := NewOllamaEmbedder(ctx, oc)
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindEmbedding, fmt.Errorf("ollama unavailable: %w", err))
	}
	return embedder, nil
}

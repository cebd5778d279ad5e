package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kevinmichaelchen/ixchel/internal/config"
	"github.com/kevinmichaelchen/ixchel/internal/coordinator"
	"github.com/kevinmichaelchen/ixchel/internal/embed"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
	"github.com/kevinmichaelchen/ixchel/internal/store"
	"github.com/kevinmichaelchen/ixchel/internal/store/badgerkv"
	"github.com/kevinmichaelchen/ixchel/internal/store/surreal"
)

// openCoordinator loads the project configuration for dir, opens the
// configured storage backend and embedder, and wires them into a
// Coordinator. Callers must Close() the returned backend once done.
func openCoordinator(ctx context.Context, dir string) (*coordinator.Coordinator, store.Backend, error) {
	indexRoot := config.IndexRoot(dir)
	if !dirExists(indexRoot) {
		return nil, nil, ixerr.New(ixerr.KindNotInitialized,
			fmt.Sprintf("no index found at %s; run 'ixchel init' first", indexRoot), nil)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, ixerr.Wrap(ixerr.KindIO, err)
	}

	embedder, err := embed.New(ctx, cfg.Embedding, 0)
	if err != nil {
		return nil, nil, err
	}

	backend, err := newBackend(cfg.Storage.Backend)
	if err != nil {
		return nil, nil, err
	}

	if err := backend.Open(ctx, cfg.StorageRoot(dir), embedder.Dimensions()); err != nil {
		return nil, nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}

	coord, err := coordinator.New(coordinator.Config{
		SourceDir: dir,
		LockDir:   indexRoot,
		Recursive: true,
		Backend:   backend,
		Embedder:  embedder,
	})
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	return coord, backend, nil
}

// newBackend constructs the store.Backend named by backendName.
func newBackend(backendName string) (store.Backend, error) {
	switch strings.ToLower(backendName) {
	case "surrealdb":
		return surreal.New(), nil
	case "helixdb", "":
		return badgerkv.New(), nil
	default:
		return nil, ixerr.New(ixerr.KindDatabase,
			fmt.Sprintf("unknown storage backend %q", backendName), nil)
	}
}

// dirExists reports whether path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

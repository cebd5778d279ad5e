// Package badgerkv implements store.Backend over an embedded BadgerDB
// key-value engine plus a coder/hnsw vector index sidecar. This is the
// "helixdb" default storage backend.
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
	"github.com/kevinmichaelchen/ixchel/internal/store"
	"github.com/kevinmichaelchen/ixchel/internal/store/vectorindex"
)

// Backend implements store.Backend over BadgerDB. Nodes, edges, secondary
// indices, adjacency lists, and the sync manifest all live in one Badger
// instance under the byte-prefixed key layout in keys.go; embedding
// vectors live in a separate coder/hnsw sidecar, since Badger has no
// native nearest-neighbor search.
type Backend struct {
	mu  sync.RWMutex
	db  *badger.DB
	vec *vectorindex.Index

	vectorPath string
	dimension  int
	closed     bool
}

// New returns an unopened Backend; call Open before use.
func New() *Backend {
	return &Backend{}
}

// Open creates or opens the Badger instance and vector index sidecar
// under path. A dimension recorded by a prior Open that disagrees with
// dimension is fatal: mixing vector widths inside one index silently
// corrupts nearest-neighbor search.
func (b *Backend) Open(ctx context.Context, path string, dimension int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vectorPath := filepath.Join(path, "vectors.hnsw")
	existingDim, err := vectorindex.ReadDimensions(vectorPath)
	if err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("reading existing vector index: %w", err))
	}
	if existingDim != 0 && dimension != 0 && existingDim != dimension {
		return ixerr.New(ixerr.KindDatabase,
			fmt.Sprintf("index at %q was built with dimension %d, got %d", path, existingDim, dimension), nil)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "kv")).
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("open badger store: %w", err))
	}

	vec, err := vectorindex.New(store.DefaultVectorIndexConfig(dimension))
	if err != nil {
		db.Close()
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("build vector index: %w", err))
	}
	if existingDim != 0 {
		if err := vec.Load(vectorPath); err != nil {
			db.Close()
			return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("load vector index: %w", err))
		}
	}

	b.db = db
	b.vec = vec
	b.vectorPath = vectorPath
	b.dimension = dimension
	return nil
}

// GetManifest returns every entity.ManifestRecord currently recorded,
// keyed by path so Delta can detect renames.
func (b *Backend) GetManifest(ctx context.Context) (map[string]entity.ManifestRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	manifest := make(map[string]entity.ManifestRecord)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := manifestPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := decodeManifest(val)
				if err != nil {
					return err
				}
				manifest[rec.Path] = rec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	return manifest, nil
}

// Upsert writes or replaces e's node record, secondary indices, manifest
// entry, and (if e.Embedding is set) its vector.
func (b *Backend) Upsert(ctx context.Context, e entity.Entity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		var existing *nodeRecord
		if item, err := txn.Get(nodeKey(e.ID)); err == nil {
			if err := item.Value(func(val []byte) error {
				rec, err := decodeNodeRecord(val)
				if err != nil {
					return err
				}
				existing = &rec
				return nil
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if existing != nil {
			if err := deleteIndexEntries(txn, *existing); err != nil {
				return err
			}
		}

		rec := toNodeRecord(e)
		data, err := encodeNodeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(nodeKey(e.ID), data); err != nil {
			return err
		}
		if err := writeIndexEntries(txn, rec); err != nil {
			return err
		}

		manifestData, err := encodeManifest(store.TouchManifest(e, time.Now()))
		if err != nil {
			return err
		}
		return txn.Set(manifestKey(e.ID), manifestData)
	})
	if err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, err)
	}

	if len(e.Embedding) > 0 {
		if err := b.vec.Add(e.ID, e.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes id's node record, secondary indices, manifest entry,
// incident edges, and vector. Removing an id that does not exist is a
// no-op, matching the idempotent-delete idiom used elsewhere in the
// engine (e.g. WriterLock.Unlock).
func (b *Backend) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var rec nodeRecord
		if verr := item.Value(func(val []byte) error {
			r, derr := decodeNodeRecord(val)
			if derr != nil {
				return derr
			}
			rec = r
			return nil
		}); verr != nil {
			return verr
		}

		if err := deleteIndexEntries(txn, rec); err != nil {
			return err
		}
		if err := txn.Delete(nodeKey(id)); err != nil {
			return err
		}
		if err := txn.Delete(manifestKey(id)); err != nil {
			return err
		}

		if err := deleteAdjacency(txn, outAdjPrefix(id), true); err != nil {
			return err
		}
		if err := deleteAdjacency(txn, inAdjPrefix(id), false); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, err)
	}

	return b.vec.Delete(id)
}

// deleteAdjacency removes every adjacency entry under prefix (one side of
// id's edges), along with the edge record and the mirrored entry on the
// other side. fromOut is true when prefix is an out-adjacency scan (so the
// mirror lives in the in-adjacency family, and vice versa).
func deleteAdjacency(txn *badger.Txn, prefix []byte, fromOut bool) error {
	type pending struct {
		key, edgeID string
	}
	var toDelete []pending

	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := string(append([]byte{}, item.Key()...))
		err := item.Value(func(val []byte) error {
			edgeID, _, ok := decodePair(val)
			if ok {
				toDelete = append(toDelete, pending{key: key, edgeID: edgeID})
			}
			return nil
		})
		if err != nil {
			it.Close()
			return err
		}
	}
	it.Close()

	for _, p := range toDelete {
		if err := txn.Delete([]byte(p.key)); err != nil {
			return err
		}

		edgeItem, err := txn.Get(edgeKey(p.edgeID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		rec, err := decodeEdgeRecordFromItem(edgeItem)
		if err != nil {
			return err
		}

		var mirrorKey []byte
		if fromOut {
			mirrorKey = inAdjKey(rec.To, rec.Label)
		} else {
			mirrorKey = outAdjKey(rec.From, rec.Label)
		}
		if err := txn.Delete(mirrorKey); err != nil {
			return err
		}
		if err := txn.Delete(edgeKey(p.edgeID)); err != nil {
			return err
		}
	}
	return nil
}

func decodeEdgeRecordFromItem(item *badger.Item) (edgeRecord, error) {
	var rec edgeRecord
	err := item.Value(func(val []byte) error {
		r, err := decodeEdgeRecord(val)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// indexFamilies returns the (indexName, value) pairs a node record
// contributes to the kind/status/path secondary indices.
func indexFamilies(rec nodeRecord) []struct{ name, value string } {
	families := []struct{ name, value string }{
		{"kind", rec.Kind},
		{"path", rec.Path},
	}
	if rec.Status != "" {
		families = append(families, struct{ name, value string }{"status", rec.Status})
	}
	return families
}

func writeIndexEntries(txn *badger.Txn, rec nodeRecord) error {
	for _, f := range indexFamilies(rec) {
		if err := txn.Set(indexKey(f.name, f.value, rec.ID), []byte(rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

func deleteIndexEntries(txn *badger.Txn, rec nodeRecord) error {
	for _, f := range indexFamilies(rec) {
		if err := txn.Delete(indexKey(f.name, f.value, rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

// AddEdge records a directed edge. A missing endpoint fails only this
// edge: the caller (SyncApply) treats it as best-effort and continues
// applying the rest of the batch.
func (b *Backend) AddEdge(ctx context.Context, e store.Edge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(e.From)); errors.Is(err, badger.ErrKeyNotFound) {
			return ixerr.New(ixerr.KindInvalidRelationship,
				fmt.Sprintf("edge %q: source entity %q does not exist", e.ID, e.From), nil)
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(nodeKey(e.To)); errors.Is(err, badger.ErrKeyNotFound) {
			return ixerr.New(ixerr.KindInvalidRelationship,
				fmt.Sprintf("edge %q: target entity %q does not exist", e.ID, e.To), nil)
		} else if err != nil {
			return err
		}

		data, err := encodeEdgeRecord(edgeRecord{ID: e.ID, From: e.From, To: e.To, Label: string(e.Label)})
		if err != nil {
			return err
		}
		if err := txn.Set(edgeKey(e.ID), data); err != nil {
			return err
		}
		if err := txn.Set(outAdjKey(e.From, string(e.Label)), encodePair(e.ID, e.To)); err != nil {
			return err
		}
		return txn.Set(inAdjKey(e.To, string(e.Label)), encodePair(e.ID, e.From))
	})
}

// Search returns the k nearest entities to query.
func (b *Backend) Search(ctx context.Context, query []float32, k int) ([]store.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	hits, err := b.vec.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, 0, len(hits))
	for _, hit := range hits {
		e, err := b.lookupByIDLocked(hit.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue // vector index and node store briefly disagree mid-sync
		}
		if err != nil {
			return nil, err
		}
		results = append(results, store.SearchResult{Entity: e, Score: hit.Score})
	}
	return results, nil
}

// LookupByID returns a single entity, or store.ErrNotFound if absent.
func (b *Backend) LookupByID(ctx context.Context, id string) (entity.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return entity.Entity{}, err
	}
	return b.lookupByIDLocked(id)
}

func (b *Backend) lookupByIDLocked(id string) (entity.Entity, error) {
	var e entity.Entity
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err := decodeNodeRecord(val)
			if err != nil {
				return err
			}
			e = rec.toEntity()
			return nil
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		return entity.Entity{}, store.ErrNotFound
	}
	if err != nil {
		return entity.Entity{}, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	return e, nil
}

// Neighbors returns the entities reachable by a single hop from id.
func (b *Backend) Neighbors(ctx context.Context, id string, dir store.Direction, label entity.Label) ([]store.Neighbor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var neighbors []store.Neighbor
	err := b.db.View(func(txn *badger.Txn) error {
		if dir == store.DirectionOut || dir == store.DirectionBoth {
			ns, err := scanAdjacency(txn, outAdjPrefix(id), label, true, b)
			if err != nil {
				return err
			}
			neighbors = append(neighbors, ns...)
		}
		if dir == store.DirectionIn || dir == store.DirectionBoth {
			ns, err := scanAdjacency(txn, inAdjPrefix(id), label, false, b)
			if err != nil {
				return err
			}
			neighbors = append(neighbors, ns...)
		}
		return nil
	})
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	return neighbors, nil
}

func scanAdjacency(txn *badger.Txn, prefix []byte, filter entity.Label, out bool, b *Backend) ([]store.Neighbor, error) {
	var neighbors []store.Neighbor
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			edgeID, otherID, ok := decodePair(val)
			if !ok {
				return nil
			}
			edgeItem, err := txn.Get(edgeKey(edgeID))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil
				}
				return err
			}
			rec, err := decodeEdgeRecordFromItem(edgeItem)
			if err != nil {
				return err
			}
			if filter != "" && rec.Label != string(filter) {
				return nil // hash collision or unrequested label
			}

			neighborEntity, lookupErr := b.lookupByIDLocked(otherID)
			if errors.Is(lookupErr, store.ErrNotFound) {
				return nil
			}
			if lookupErr != nil {
				return lookupErr
			}
			neighbors = append(neighbors, store.Neighbor{
				Entity: neighborEntity,
				Label:  entity.Label(rec.Label),
				Out:    out,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return neighbors, nil
}

// Stats reports node/edge counts and the configured dimension.
func (b *Backend) Stats(ctx context.Context) (store.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return store.Stats{}, err
	}

	stats := store.Stats{Dimension: b.dimension, Backend: "helixdb"}
	err := b.db.View(func(txn *badger.Txn) error {
		stats.NodeCount = countPrefix(txn, nodePrefix())
		stats.EdgeCount = countPrefix(txn, edgePrefix())
		return nil
	})
	if err != nil {
		return store.Stats{}, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	return stats, nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count
}

// SyncApply applies one sync round: every removal, then every upsert, then
// every edge, in that order. Each removal, upsert and edge commits in its
// own Badger transaction, so the round is not atomic: an error part-way
// through leaves the earlier writes in place. Edge failures (missing
// endpoints) are collected and returned together but never abort
// processing of the remaining edges or the round as a whole.
func (b *Backend) SyncApply(ctx context.Context, removals []string, upserts []entity.Entity, edges []store.Edge) error {
	for _, id := range removals {
		if err := b.Remove(ctx, id); err != nil {
			return err
		}
	}
	for _, e := range upserts {
		if err := b.Upsert(ctx, e); err != nil {
			return err
		}
	}

	var edgeErrs []error
	for _, e := range edges {
		if err := b.AddEdge(ctx, e); err != nil {
			edgeErrs = append(edgeErrs, err)
		}
	}

	b.mu.Lock()
	saveErr := b.vec.Save(b.vectorPath)
	b.mu.Unlock()
	if saveErr != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("persist vector index: %w", saveErr))
	}

	if len(edgeErrs) > 0 {
		return errors.Join(edgeErrs...)
	}
	return nil
}

// Close releases the Badger instance and vector index.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.vec != nil {
		if err := b.vec.Save(b.vectorPath); err != nil {
			errs = append(errs, err)
		}
		if err := b.vec.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) checkOpen() error {
	if b.closed || b.db == nil {
		return ixerr.New(ixerr.KindDatabase, "store is not open", nil)
	}
	return nil
}

var _ store.Backend = (*Backend)(nil)

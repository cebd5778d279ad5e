// Package vectorindex wraps coder/hnsw's pure-Go HNSW graph behind the
// store.VectorIndex contract, keyed by entity id rather than the graph's
// internal uint64 node keys.
package vectorindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kevinmichaelchen/ixchel/internal/store"
)

// Index implements store.VectorIndex over a coder/hnsw graph.
type Index struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config store.VectorIndexConfig

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// metadata is the gob-persisted sidecar carrying id mappings and config,
// read back by Load and by ReadDimensions.
type metadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  store.VectorIndexConfig
}

// New builds an Index tuned per cfg. M=16/EfConstruction=150 is the
// retrieval design's fixed tuning (see store.DefaultVectorIndexConfig);
// coder/hnsw exposes no direct EfConstruction knob, so it is recorded here
// for persistence/diagnostics only and does not otherwise affect build
// behavior (see DESIGN.md for this as an open question).
func New(cfg store.VectorIndexConfig) (*Index, error) {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Index{
		graph:   graph,
		config:  cfg,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		nextKey: 0,
	}, nil
}

// Add inserts or replaces the vector for id.
func (idx *Index) Add(id string, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}
	if len(vector) != idx.config.Dimensions {
		return store.ErrDimensionMismatch{Expected: idx.config.Dimensions, Got: len(vector)}
	}

	// An existing id is orphaned rather than deleted from the graph: coder/hnsw
	// has a known issue deleting the last remaining node, so replacement
	// always proceeds through lazy deletion plus a fresh key.
	if existingKey, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, existingKey)
		delete(idx.idMap, id)
	}

	key := idx.nextKey
	idx.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	if idx.config.Metric == "cos" {
		normalizeInPlace(vec)
	}

	idx.graph.Add(hnsw.MakeNode(key, vec))
	idx.idMap[id] = key
	idx.keyMap[key] = id
	return nil
}

// Search returns the k nearest ids to query, scores in [0, 1].
func (idx *Index) Search(query []float32, k int) ([]store.VectorResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if len(query) != idx.config.Dimensions {
		return nil, store.ErrDimensionMismatch{Expected: idx.config.Dimensions, Got: len(query)}
	}
	if idx.graph.Len() == 0 {
		return []store.VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if idx.config.Metric == "cos" {
		normalizeInPlace(q)
	}

	nodes := idx.graph.Search(q, k)
	results := make([]store.VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, exists := idx.keyMap[node.Key]
		if !exists {
			continue // orphaned (lazily deleted) node
		}
		distance := idx.graph.Distance(q, node.Value)
		results = append(results, store.VectorResult{
			ID:       id,
			Distance: distance,
			Score:    distanceToScore(distance, idx.config.Metric),
		})
	}
	return results, nil
}

// Delete removes id from the index (lazily; see Add).
func (idx *Index) Delete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}
	if key, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, key)
		delete(idx.idMap, id)
	}
	return nil
}

// Contains reports whether id currently has a vector.
func (idx *Index) Contains(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return false
	}
	_, exists := idx.idMap[id]
	return exists
}

// Count returns the number of live (non-orphaned) vectors.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return 0
	}
	return len(idx.idMap)
}

// Save persists the graph and id mappings atomically (temp file + rename).
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create vector index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create vector index file: %w", err)
	}
	if err := idx.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close vector index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename vector index file: %w", err)
	}

	return idx.saveMetadata(path + ".meta")
}

func (idx *Index) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	meta := metadata{IDMap: idx.idMap, NextKey: idx.nextKey, Config: idx.config}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores the graph and id mappings from disk.
func (idx *Index) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := idx.loadMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vector index file: %w", err)
	}
	defer file.Close()

	if err := idx.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func (idx *Index) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer file.Close()

	var meta metadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	idx.idMap = meta.IDMap
	idx.nextKey = meta.NextKey
	idx.config = meta.Config
	idx.keyMap = make(map[uint64]string, len(idx.idMap))
	for id, key := range idx.idMap {
		idx.keyMap[key] = id
	}
	return nil
}

// Close releases resources. coder/hnsw's Graph needs no explicit teardown.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.graph = nil
	return nil
}

// ReadDimensions reads the dimension recorded in an index's metadata
// sidecar without loading the full graph, returning 0 if absent (fresh
// index).
func ReadDimensions(indexPath string) (int, error) {
	file, err := os.Open(indexPath + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open metadata: %w", err)
	}
	defer file.Close()

	var meta metadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return 0, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.Config.Dimensions, nil
}

var _ store.VectorIndex = (*Index)(nil)

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts a raw graph distance into a [0, 1] similarity
// score: cosine distance ranges 0 (identical) to 2 (opposite).
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}

// Package store defines the abstract graph+vector storage contract
// ixchel indexes are built against, plus the two concrete backends:
// store/badgerkv (the embedded "helixdb" default) and store/surreal (the
// "surrealdb" alternate, talking to an external server).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
)

// Direction selects which side of an edge to traverse from a node.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

// Edge is a directed, labeled relationship persisted between two entity
// identifiers, as recorded by AddEdge.
type Edge struct {
	ID    string
	From  string
	To    string
	Label entity.Label
}

// Neighbor is one hop across an edge: the entity on the other end plus the
// edge's label and direction relative to the node queried.
type Neighbor struct {
	Entity entity.Entity
	Label  entity.Label
	Out    bool // true if the edge points away from the queried node
}

// SearchResult pairs an entity with its similarity score against the query
// vector, highest first.
type SearchResult struct {
	Entity entity.Entity
	Score  float32
}

// Stats summarizes the current contents of an opened backend.
type Stats struct {
	NodeCount int
	EdgeCount int
	Dimension int
	Backend   string
}

// Backend is the single abstract storage contract both store/badgerkv and
// store/surreal implement identically: every operation here must have the
// same semantics regardless of which is configured, so the Coordinator
// never branches on backend kind.
//
// Failure semantics: a write error aborts the in-progress operation and is
// surfaced to the caller; Open on a corrupt store is fatal; a read by a
// missing id returns (nil, ErrNotFound) rather than an error value;
// AddEdge with a missing endpoint fails only that edge, best-effort, and
// must not abort a batch of other writes.
type Backend interface {
	// Open prepares the backend for use, creating on-disk structures if
	// absent. dimension is the embedding width this index is (or will be)
	// built with; Open fails if an existing index was built with a
	// different dimension.
	Open(ctx context.Context, path string, dimension int) error

	// GetManifest returns the authoritative "what's currently indexed"
	// record set the Delta step diffs against, keyed by entity path (not
	// id): a filesystem rename must manifest as remove-plus-add even when
	// the id and content hash are unchanged.
	GetManifest(ctx context.Context) (map[string]entity.ManifestRecord, error)

	// Upsert writes or replaces an entity's node record and vector.
	Upsert(ctx context.Context, e entity.Entity) error

	// Remove deletes an entity's node record, vector, and incident edges.
	Remove(ctx context.Context, id string) error

	// AddEdge records a directed edge. Returns an error naming the
	// missing endpoint if From or To does not exist; callers treat this
	// as a per-edge failure, not a fatal one.
	AddEdge(ctx context.Context, e Edge) error

	// Search returns the k nearest entities to query by vector similarity.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// LookupByID returns a single entity, or ErrNotFound if absent.
	LookupByID(ctx context.Context, id string) (entity.Entity, error)

	// Neighbors returns the entities reachable by a single hop from id in
	// the given direction, optionally filtered to one label.
	Neighbors(ctx context.Context, id string, dir Direction, label entity.Label) ([]Neighbor, error)

	// Stats reports counts for CLI/diagnostic use.
	Stats(ctx context.Context) (Stats, error)

	// SyncApply applies a full sync round: removals, then upserts, then
	// edges, in that order, per the documented round ordering (removals
	// before upserts avoids transient id collisions when an entity is
	// recreated under the same id in the same round). Neither backend
	// applies the round as one transaction: each write commits on its own,
	// so an error part-way through leaves the round's earlier writes in place.
	SyncApply(ctx context.Context, removals []string, upserts []entity.Entity, edges []Edge) error

	// Close releases all resources held by the backend.
	Close() error
}

// ErrNotFound is returned by LookupByID and GetManifest-adjacent reads
// when the requested id has no record. Backends must return this exact
// sentinel (via errors.Is) rather than a backend-specific not-found type,
// so the Coordinator can treat both backends alike.
var ErrNotFound = fmt.Errorf("store: not found")

// VectorResult is a single nearest-neighbor hit against the vector index,
// keyed by entity id rather than the index's own internal numeric key.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorIndexConfig configures the HNSW vector index store/vectorindex
// wraps. M and EfConstruction are fixed by the retrieval design (see
// store/vectorindex); Dimensions must match the configured Embedder.
type VectorIndexConfig struct {
	Dimensions     int
	Metric         string
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorIndexConfig returns the tuning the retrieval design calls
// for: M=16, trading a little recall for a smaller per-node footprint
// appropriate to a few-thousand-document corpus, and EfConstruction=150.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 150,
		EfSearch:       64,
	}
}

// VectorIndex is the narrow nearest-neighbor contract store/vectorindex
// implements over coder/hnsw; badgerkv owns one instance to back
// Backend.Search. surreal does not use it: it ranks by a client-side cosine
// scan instead.
type VectorIndex interface {
	Add(id string, vector []float32) error
	Search(query []float32, k int) ([]VectorResult, error)
	Delete(id string) error
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a query or insert vector's width disagrees
// with the index's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (reindex required)", e.Expected, e.Got)
}

// TouchManifest stamps a ManifestRecord for an entity at sync time. The
// badgerkv backend calls this from Upsert; the surreal backend does not,
// and stamps synced_at server-side with time::now() instead.
func TouchManifest(e entity.Entity, syncedAt time.Time) entity.ManifestRecord {
	return entity.ManifestRecord{
		ID:          e.ID,
		ContentHash: e.ContentHash,
		Path:        e.Path,
		SyncedAt:    syncedAt,
	}
}

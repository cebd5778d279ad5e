// Package surreal implements store.Backend against an external SurrealDB
// server. This is the "surrealdb" alternate storage backend; the
// configured storage path is interpreted as SurrealDB's connection URL
// rather than a filesystem directory.
package surreal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"sync"

	"github.com/surrealdb/surrealdb.go"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
	"github.com/kevinmichaelchen/ixchel/internal/store"
)

const (
	namespace = "ixchel"
	database  = "ixchel"
)

// Backend implements store.Backend over SurrealDB. Search runs as a
// client-side cosine scan over every embedded entity: SurrealDB in this
// deployment carries no native ANN index, the same tradeoff the
// reference SemanticSearch implementation this is grounded on accepts.
type Backend struct {
	mu        sync.RWMutex
	db        *surrealdb.DB
	dimension int
	closed    bool
}

// New returns an unopened Backend; call Open before use.
func New() *Backend {
	return &Backend{}
}

// Open connects to the SurrealDB instance at path (a connection URL,
// optionally carrying basic-auth credentials as userinfo) and ensures
// the schema exists. dimension is recorded for Stats only: Open does not
// compare it with the width of embeddings already stored, and does not
// fail on a mismatch. Search skips any stored embedding whose width
// differs from the query's.
func (b *Backend) Open(ctx context.Context, path string, dimension int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	connURL, username, password, err := parseConnectionURL(path)
	if err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, err)
	}

	db, err := surrealdb.New(connURL)
	if err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("connect to surrealdb at %q: %w", connURL, err))
	}

	if username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": username,
			"pass": password,
		}); err != nil {
			return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("sign in to surrealdb: %w", err))
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("select namespace/database: %w", err))
	}

	b.db = db
	b.dimension = dimension
	if err := ensureSchema(ctx, db); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("ensure schema: %w", err))
	}
	return nil
}

// parseConnectionURL splits userinfo (if any) out of a connection URL,
// since surrealdb.New does not accept credentials embedded in the URL.
func parseConnectionURL(raw string) (connURL, username, password string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("parse storage path as connection URL: %w", err)
	}
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
		u.User = nil
	}
	return u.String(), username, password, nil
}

// ensureSchema defines the entities/edges/manifest tables. DEFINE
// statements are idempotent in SurrealDB; any error here (e.g. a
// permissions issue on a pre-existing schema) is swallowed, matching the
// reference migration runner's tolerance of "already exists" failures.
func ensureSchema(ctx context.Context, db *surrealdb.DB) error {
	statements := []string{
		`DEFINE TABLE entities SCHEMALESS`,
		`DEFINE INDEX idx_entities_id ON entities FIELDS id UNIQUE`,
		`DEFINE INDEX idx_entities_kind ON entities FIELDS kind`,
		`DEFINE INDEX idx_entities_status ON entities FIELDS status`,
		`DEFINE INDEX idx_entities_path ON entities FIELDS path`,

		`DEFINE TABLE edges SCHEMALESS`,
		`DEFINE INDEX idx_edges_id ON edges FIELDS id UNIQUE`,
		`DEFINE INDEX idx_edges_from ON edges FIELDS from_id`,
		`DEFINE INDEX idx_edges_to ON edges FIELDS to_id`,

		`DEFINE TABLE manifest SCHEMALESS`,
		`DEFINE INDEX idx_manifest_id ON manifest FIELDS id UNIQUE`,
	}
	for _, stmt := range statements {
		_, _ = surrealdb.Query[any](ctx, db, stmt, nil)
	}
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

	results, err := surrealdb.Query[[]manifestRecord](ctx, b.db, `SELECT * FROM manifest`, nil)
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}

	manifest := make(map[string]entity.ManifestRecord)
	if results != nil && len(*results) > 0 {
		for _, rec := range (*results)[0].Result {
			entry := rec.toEntityManifest()
			manifest[entry.Path] = entry
		}
	}
	return manifest, nil
}

// Upsert writes or replaces e's entity record and manifest entry.
func (b *Backend) Upsert(ctx context.Context, e entity.Entity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	rec := toEntityRecord(e)
	query := `UPSERT entities SET
		kind = $kind,
		title = $title,
		status = $status,
		date = $date,
		tags = $tags,
		deciders = $deciders,
		supersedes = $supersedes,
		superseded_by = $superseded_by,
		body = $body,
		path = $path,
		content_hash = $content_hash,
		embedding = $embedding
	WHERE id = $id`

	if _, err := surrealdb.Query[any](ctx, b.db, query, map[string]any{
		"id":            rec.ID,
		"kind":          rec.Kind,
		"title":         rec.Title,
		"status":        rec.Status,
		"date":          rec.Date,
		"tags":          rec.Tags,
		"deciders":      rec.Deciders,
		"supersedes":    rec.Supersedes,
		"superseded_by": rec.SupersededBy,
		"body":          rec.Body,
		"path":          rec.Path,
		"content_hash":  rec.ContentHash,
		"embedding":     rec.Embedding,
	}); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("upsert entity %q: %w", e.ID, err))
	}

	manifestQuery := `UPSERT manifest SET
		content_hash = $content_hash,
		path = $path,
		synced_at = time::now()
	WHERE id = $id`
	if _, err := surrealdb.Query[any](ctx, b.db, manifestQuery, map[string]any{
		"id":           e.ID,
		"content_hash": e.ContentHash,
		"path":         e.Path,
	}); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("upsert manifest %q: %w", e.ID, err))
	}
	return nil
}

// Remove deletes id's entity record, manifest entry, and incident edges.
func (b *Backend) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	if _, err := surrealdb.Query[any](ctx, b.db, `DELETE FROM entities WHERE id = $id`, map[string]any{"id": id}); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("delete entity %q: %w", id, err))
	}
	if _, err := surrealdb.Query[any](ctx, b.db, `DELETE FROM manifest WHERE id = $id`, map[string]any{"id": id}); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("delete manifest %q: %w", id, err))
	}
	if _, err := surrealdb.Query[any](ctx, b.db, `DELETE FROM edges WHERE from_id = $id OR to_id = $id`, map[string]any{"id": id}); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("delete edges incident to %q: %w", id, err))
	}
	return nil
}

// AddEdge records a directed edge. A missing endpoint fails only this
// edge: SyncApply treats it as best-effort.
func (b *Backend) AddEdge(ctx context.Context, e store.Edge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	if _, err := b.lookupByIDLocked(ctx, e.From); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ixerr.New(ixerr.KindInvalidRelationship,
				fmt.Sprintf("edge %q: source entity %q does not exist", e.ID, e.From), nil)
		}
		return err
	}
	if _, err := b.lookupByIDLocked(ctx, e.To); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ixerr.New(ixerr.KindInvalidRelationship,
				fmt.Sprintf("edge %q: target entity %q does not exist", e.ID, e.To), nil)
		}
		return err
	}

	query := `UPSERT edges SET from_id = $from_id, to_id = $to_id, label = $label WHERE id = $id`
	if _, err := surrealdb.Query[any](ctx, b.db, query, map[string]any{
		"id":      e.ID,
		"from_id": e.From,
		"to_id":   e.To,
		"label":   string(e.Label),
	}); err != nil {
		return ixerr.Wrap(ixerr.KindDatabase, fmt.Errorf("upsert edge %q: %w", e.ID, err))
	}
	return nil
}

// Search fetches up to 10,000 embedded entities and ranks them by cosine
// similarity to query, client-side; entities beyond that limit are not
// considered.
func (b *Backend) Search(ctx context.Context, query []float32, k int) ([]store.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("surreal: search query vector is empty")
	}

	results, err := surrealdb.Query[[]entityRecord](ctx, b.db,
		`SELECT * FROM entities WHERE embedding != NONE LIMIT 10000`, nil)
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}

	var scored []store.SearchResult
	if results != nil && len(*results) > 0 {
		for _, rec := range (*results)[0].Result {
			if len(rec.Embedding) != len(query) {
				continue
			}
			scored = append(scored, store.SearchResult{
				Entity: rec.toEntity(),
				Score:  cosineSimilarity(query, rec.Embedding),
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// LookupByID returns a single entity, or store.ErrNotFound if absent.
func (b *Backend) LookupByID(ctx context.Context, id string) (entity.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return entity.Entity{}, err
	}
	return b.lookupByIDLocked(ctx, id)
}

func (b *Backend) lookupByIDLocked(ctx context.Context, id string) (entity.Entity, error) {
	results, err := surrealdb.Query[[]entityRecord](ctx, b.db,
		`SELECT * FROM entities WHERE id = $id LIMIT 1`, map[string]any{"id": id})
	if err != nil {
		return entity.Entity{}, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return entity.Entity{}, store.ErrNotFound
	}
	return (*results)[0].Result[0].toEntity(), nil
}

// Neighbors returns the entities reachable by a single hop from id.
func (b *Backend) Neighbors(ctx context.Context, id string, dir store.Direction, label entity.Label) ([]store.Neighbor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var neighbors []store.Neighbor
	if dir == store.DirectionOut || dir == store.DirectionBoth {
		ns, err := b.scanEdges(ctx, "from_id", id, label, true)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, ns...)
	}
	if dir == store.DirectionIn || dir == store.DirectionBoth {
		ns, err := b.scanEdges(ctx, "to_id", id, label, false)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, ns...)
	}
	return neighbors, nil
}

func (b *Backend) scanEdges(ctx context.Context, anchorField, id string, label entity.Label, out bool) ([]store.Neighbor, error) {
	query := fmt.Sprintf(`SELECT * FROM edges WHERE %s = $id`, anchorField)
	params := map[string]any{"id": id}
	if label != "" {
		query += fmt.Sprintf(` AND label = $label`)
		params["label"] = string(label)
	}

	results, err := surrealdb.Query[[]edgeRecord](ctx, b.db, query, params)
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}

	var neighbors []store.Neighbor
	if results == nil || len(*results) == 0 {
		return neighbors, nil
	}
	for _, rec := range (*results)[0].Result {
		var otherID string
		if out {
			otherID = rec.To
		} else {
			otherID = rec.From
		}
		otherEntity, err := b.lookupByIDLocked(ctx, otherID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, store.Neighbor{
			Entity: otherEntity,
			Label:  entity.Label(rec.Label),
			Out:    out,
		})
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

	nodeCount, err := b.countTable(ctx, "entities")
	if err != nil {
		return store.Stats{}, err
	}
	edgeCount, err := b.countTable(ctx, "edges")
	if err != nil {
		return store.Stats{}, err
	}

	return store.Stats{
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
		Dimension: b.dimension,
		Backend:   "surrealdb",
	}, nil
}

func (b *Backend) countTable(ctx context.Context, table string) (int, error) {
	query := fmt.Sprintf(`SELECT count() AS count FROM %s GROUP ALL`, table)
	results, err := surrealdb.Query[[]countResult](ctx, b.db, query, nil)
	if err != nil {
		return 0, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// SyncApply applies one sync round: every removal, then every upsert,
// then every edge. Edge failures are collected and returned together but
// never abort processing of the remaining edges or the round as a whole.
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
	if len(edgeErrs) > 0 {
		return errors.Join(edgeErrs...)
	}
	return nil
}

// Close disconnects from SurrealDB.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.db == nil {
		b.closed = true
		return nil
	}
	b.closed = true
	return b.db.Close(context.Background())
}

func (b *Backend) checkOpen() error {
	if b.closed || b.db == nil {
		return ixerr.New(ixerr.KindDatabase, "store is not open", nil)
	}
	return nil
}

var _ store.Backend = (*Backend)(nil)

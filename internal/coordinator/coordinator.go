// Package coordinator ties the loader, embedder, and storage backend
// together into the sync/search/relationship operations the CLI boundary
// calls. It is the single place that knows the shape of a full round:
// load, diff against the manifest, embed what changed, then hand the
// whole round to the backend's SyncApply in one call.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kevinmichaelchen/ixchel/internal/delta"
	"github.com/kevinmichaelchen/ixchel/internal/embed"
	"github.com/kevinmichaelchen/ixchel/internal/entity"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
	"github.com/kevinmichaelchen/ixchel/internal/loader"
	"github.com/kevinmichaelchen/ixchel/internal/store"
)

// Config wires a Coordinator's collaborators. All fields are required.
type Config struct {
	// SourceDir is the directory Load walks for entity files.
	SourceDir string

	// LockDir is the directory the writer lock file lives under, usually
	// the index root (config.IndexRoot(SourceDir)).
	LockDir string

	// Recursive is passed through to loader.Options for every Sync.
	Recursive bool

	Backend  store.Backend
	Embedder embed.Embedder
}

// SyncStats summarizes one completed Sync round.
type SyncStats struct {
	Scanned   int
	Added     int
	Modified  int
	Deleted   int
	Unchanged int
	Duration  time.Duration
}

// Filters narrows Search results by entity properties not captured in the
// vector itself.
type Filters struct {
	Status string
	Tags   []string
}

// Coordinator is the single entry point for sync, search, and
// relationship-graph operations. Method calls are safe for concurrent use;
// Sync additionally serializes against other processes via a writer lock
// on LockDir.
type Coordinator struct {
	cfg    Config
	loader *loader.Loader

	mu        sync.Mutex
	lastStats SyncStats
}

// New constructs a Coordinator. Backend and Embedder must already be
// opened/ready; Coordinator does not own their lifecycle.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	l, err := loader.New()
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	return &Coordinator{cfg: cfg, loader: l}, nil
}

// Sync walks SourceDir, diffs the result against the backend's manifest,
// embeds whatever changed, and applies the round through the backend's
// SyncApply, which does not apply it as one transaction. Only one
// Sync may run at a time against a given LockDir, across processes.
func (c *Coordinator) Sync(ctx context.Context) (SyncStats, error) {
	lock := store.NewWriterLock(c.cfg.LockDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return SyncStats{}, ixerr.Wrap(ixerr.KindDatabase, err)
	}
	if !acquired {
		return SyncStats{}, ixerr.ErrBusy("another sync is already in progress against this index")
	}
	defer func() { _ = lock.Unlock() }()

	start := time.Now()

	entities, warnings, err := c.loader.Load(c.cfg.SourceDir, loader.Options{Recursive: c.cfg.Recursive})
	if err != nil {
		return SyncStats{}, ixerr.Wrap(ixerr.KindLoad, err)
	}
	for _, w := range warnings {
		slog.Warn("skipped entity file", slog.String("path", w.Path), slog.String("error", w.Err.Error()))
	}

	if err := ctx.Err(); err != nil {
		return SyncStats{}, err
	}

	manifest, err := c.cfg.Backend.GetManifest(ctx)
	if err != nil {
		return SyncStats{}, ixerr.Wrap(ixerr.KindDatabase, err)
	}

	d := delta.Compute(entities, manifest)

	added, modified := 0, 0
	for _, e := range d.ToUpsert {
		if _, existed := manifest[e.Path]; existed {
			modified++
		} else {
			added++
		}
	}

	if err := ctx.Err(); err != nil {
		return SyncStats{}, err
	}

	if len(d.ToUpsert) > 0 {
		texts := make([]string, len(d.ToUpsert))
		for i, e := range d.ToUpsert {
			texts[i] = e.Body
		}
		embeddings, err := c.cfg.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return SyncStats{}, ixerr.Wrap(ixerr.KindEmbedding, err)
		}
		for i := range d.ToUpsert {
			d.ToUpsert[i].Embedding = embeddings[i]
		}
	}

	if err := ctx.Err(); err != nil {
		return SyncStats{}, err
	}

	edges := frontMatterEdges(d.ToUpsert)

	if err := c.cfg.Backend.SyncApply(ctx, d.ToRemove, d.ToUpsert, edges); err != nil {
		return SyncStats{}, err
	}

	stats := SyncStats{
		Scanned:   len(entities),
		Added:     added,
		Modified:  modified,
		Deleted:   len(d.ToRemove),
		Unchanged: len(entities) - added - modified,
		Duration:  time.Since(start),
	}

	c.mu.Lock()
	c.lastStats = stats
	c.mu.Unlock()

	slog.Info("sync_complete",
		slog.Int("scanned", stats.Scanned),
		slog.Int("added", stats.Added),
		slog.Int("modified", stats.Modified),
		slog.Int("deleted", stats.Deleted),
		slog.Int("unchanged", stats.Unchanged),
		slog.String("duration", stats.Duration.String()))

	return stats, nil
}

// Stats returns the counts from the most recently completed Sync round.
func (c *Coordinator) Stats() SyncStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStats
}

// BackendStats reports the backend's current node/edge counts, for the CLI
// `stats` command.
func (c *Coordinator) BackendStats(ctx context.Context) (store.Stats, error) {
	return c.cfg.Backend.Stats(ctx)
}

// Search embeds query and returns the nearest entities, narrowed by
// filters and truncated to limit.
func (c *Coordinator) Search(ctx context.Context, query string, limit int, filters Filters) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	vec, err := c.cfg.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindEmbedding, err)
	}

	// Over-fetch when post-filtering by status/tags so the filter doesn't
	// starve the result set below limit.
	k := limit
	if filters.Status != "" || len(filters.Tags) > 0 {
		k = limit * 10
	}

	results, err := c.cfg.Backend.Search(ctx, vec, k)
	if err != nil {
		return nil, ixerr.Wrap(ixerr.KindDatabase, err)
	}

	filtered := applyFilters(results, filters)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func applyFilters(results []store.SearchResult, filters Filters) []store.SearchResult {
	if filters.Status == "" && len(filters.Tags) == 0 {
		return results
	}

	out := make([]store.SearchResult, 0, len(results))
	for _, r := range results {
		if filters.Status != "" && r.Entity.Status != filters.Status {
			continue
		}
		if len(filters.Tags) > 0 && !hasAllTags(r.Entity.Tags, filters.Tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasAllTags(entityTags, want []string) bool {
	have := make(map[string]bool, len(entityTags))
	for _, t := range entityTags {
		have[t] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// RemoveEntity resolves id (which may be a partial identifier) and removes
// the matching entity, its incident edges, and its manifest entry.
func (c *Coordinator) RemoveEntity(ctx context.Context, id string) error {
	resolved, err := c.ResolvePartialID(ctx, id)
	if err != nil {
		return err
	}
	return c.cfg.Backend.Remove(ctx, resolved)
}

// ResolvePartialID resolves fragment to a single full entity id. An exact
// id match short-circuits the search; otherwise fragment is matched as a
// substring against every known id. Zero matches is a not-found error;
// more than one is an ambiguous-id error carrying the sorted candidate
// list.
func (c *Coordinator) ResolvePartialID(ctx context.Context, fragment string) (string, error) {
	if _, err := c.cfg.Backend.LookupByID(ctx, fragment); err == nil {
		return fragment, nil
	}

	manifest, err := c.cfg.Backend.GetManifest(ctx)
	if err != nil {
		return "", ixerr.Wrap(ixerr.KindDatabase, err)
	}

	var candidates []string
	for _, rec := range manifest {
		if strings.Contains(rec.ID, fragment) {
			candidates = append(candidates, rec.ID)
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", ixerr.NotFound(fmt.Sprintf("no entity matches %q", fragment), nil)
	case 1:
		return candidates[0], nil
	default:
		return "", ixerr.Ambiguous(fragment, candidates)
	}
}

// AddRelationship records a directed edge between fromID and toID,
// resolving both as partial identifiers first. When label has a paired
// inverse (entity.Label.Inverse), the reverse edge is recorded too, in
// the same call. Labels with no inverse pairing (the acyclic,
// dependsOn-style relations) are checked for a would-be cycle first: if
// toID can already reach fromID via edges of the same label, the new
// edge is rejected with the offending path.
func (c *Coordinator) AddRelationship(ctx context.Context, fromID, toID string, label entity.Label) error {
	from, err := c.ResolvePartialID(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := c.ResolvePartialID(ctx, toID)
	if err != nil {
		return err
	}

	inverse, hasInverse := label.Inverse()

	if !hasInverse {
		if path, cyclic := c.wouldCycle(ctx, label, from, to); cyclic {
			return ixerr.Cycle(string(label), path)
		}
	}

	if err := c.cfg.Backend.AddEdge(ctx, store.Edge{
		ID:    edgeID(from, to, label),
		From:  from,
		To:    to,
		Label: label,
	}); err != nil {
		return err
	}

	if hasInverse {
		if err := c.cfg.Backend.AddEdge(ctx, store.Edge{
			ID:    edgeID(to, from, inverse),
			From:  to,
			To:    from,
			Label: inverse,
		}); err != nil {
			return err
		}
	}

	return nil
}

// wouldCycle reports whether adding a from->to edge labeled label would
// close a cycle, by breadth-first search for a path to->...->from over
// existing edges of the same label. The returned path runs from (the
// point that would close the cycle) back to to, matching the order a
// caller would want to print it: "from -> ... -> to".
func (c *Coordinator) wouldCycle(ctx context.Context, label entity.Label, from, to string) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}

	visited := map[string]bool{to: true}
	parent := map[string]string{}
	queue := []string{to}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		neighbors, err := c.cfg.Backend.Neighbors(ctx, cur, store.DirectionOut, label)
		if err != nil {
			continue
		}

		for _, n := range neighbors {
			next := n.Entity.ID
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur

			if next == from {
				path := []string{from}
				for node := cur; node != to; node = parent[node] {
					path = append(path, node)
				}
				path = append(path, to)
				return path, true
			}
			queue = append(queue, next)
		}
	}

	return nil, false
}

// edgeID derives a deterministic identifier for an edge from its
// endpoints and label, so re-syncing the same relationship is idempotent
// rather than accumulating duplicate edges.
func edgeID(from, to string, label entity.Label) string {
	return fmt.Sprintf("%s--%s-->%s", from, label, to)
}

// frontMatterEdges materializes the supersedes/supersededBy front-matter
// fields on freshly upserted entities into graph edges, pairing each with
// its inverse label. Declaring either field implies both directions.
func frontMatterEdges(entities []entity.Entity) []store.Edge {
	var edges []store.Edge
	for _, e := range entities {
		if e.Supersedes != "" {
			edges = append(edges,
				store.Edge{ID: edgeID(e.ID, e.Supersedes, entity.LabelSupersedes), From: e.ID, To: e.Supersedes, Label: entity.LabelSupersedes},
				store.Edge{ID: edgeID(e.Supersedes, e.ID, entity.LabelSupersededBy), From: e.Supersedes, To: e.ID, Label: entity.LabelSupersededBy},
			)
		}
		if e.SupersededBy != "" {
			edges = append(edges,
				store.Edge{ID: edgeID(e.ID, e.SupersededBy, entity.LabelSupersededBy), From: e.ID, To: e.SupersededBy, Label: entity.LabelSupersededBy},
				store.Edge{ID: edgeID(e.SupersededBy, e.ID, entity.LabelSupersedes), From: e.SupersededBy, To: e.ID, Label: entity.LabelSupersedes},
			)
		}
	}
	return edges
}

package entity

import "time"

// Entity is a single Markdown document with YAML front-matter: a decision,
// issue, idea, report, source, citation, agent, or session.
type Entity struct {
	ID       string
	Kind     Kind
	Title    string
	Status   string
	Date     time.Time
	Tags     []string
	Deciders []string

	// Supersedes and SupersededBy mirror the front-matter fields; they are
	// materialized into Relationships by the loader/coordinator, not
	// consulted directly by storage.
	Supersedes   string
	SupersededBy string

	Body string

	// Path is the absolute filesystem path this entity was loaded from.
	Path string

	// ContentHash is the hex-encoded hash over the entire file's bytes,
	// front-matter included.
	ContentHash string

	// Embedding is the dense-vector representation of Body, populated by
	// the Embedder during sync; nil until embedded.
	Embedding []float32
}

// ManifestRecord is the authoritative "what is currently in the index"
// record the Delta step consults: identifier, content hash at last sync,
// file path, and last-sync timestamp. Path is the entity's Path as loaded,
// which is absolute, not relative to the source directory.
type ManifestRecord struct {
	ID          string
	ContentHash string
	Path        string
	SyncedAt    time.Time
}

package surreal

import (
	"time"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
)

// entityRecord is the SurrealQL-facing shape of an entity.Entity. Unlike
// the badgerkv backend, the embedding travels with the record: SurrealDB
// is a single external store here, so there is no separate vector-index
// sidecar to keep it out of.
type entityRecord struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	Date         time.Time `json:"date"`
	Tags         []string  `json:"tags"`
	Deciders     []string  `json:"deciders"`
	Supersedes   string    `json:"supersedes"`
	SupersededBy string    `json:"superseded_by"`
	Body         string    `json:"body"`
	Path         string    `json:"path"`
	ContentHash  string    `json:"content_hash"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

func toEntityRecord(e entity.Entity) entityRecord {
	return entityRecord{
		ID:           e.ID,
		Kind:         string(e.Kind),
		Title:        e.Title,
		Status:       e.Status,
		Date:         e.Date,
		Tags:         e.Tags,
		Deciders:     e.Deciders,
		Supersedes:   e.Supersedes,
		SupersededBy: e.SupersededBy,
		Body:         e.Body,
		Path:         e.Path,
		ContentHash:  e.ContentHash,
		Embedding:    e.Embedding,
	}
}

func (r entityRecord) toEntity() entity.Entity {
	return entity.Entity{
		ID:           r.ID,
		Kind:         entity.Kind(r.Kind),
		Title:        r.Title,
		Status:       r.Status,
		Date:         r.Date,
		Tags:         r.Tags,
		Deciders:     r.Deciders,
		Supersedes:   r.Supersedes,
		SupersededBy: r.SupersededBy,
		Body:         r.Body,
		Path:         r.Path,
		ContentHash:  r.ContentHash,
		Embedding:    r.Embedding,
	}
}

type edgeRecord struct {
	ID    string `json:"id"`
	From  string `json:"from_id"`
	To    string `json:"to_id"`
	Label string `json:"label"`
}

type manifestRecord struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	Path        string    `json:"path"`
	SyncedAt    time.Time `json:"synced_at"`
}

func (r manifestRecord) toEntityManifest() entity.ManifestRecord {
	return entity.ManifestRecord{
		ID:          r.ID,
		ContentHash: r.ContentHash,
		Path:        r.Path,
		SyncedAt:    r.SyncedAt,
	}
}

type countResult struct {
	Count int `json:"count"`
}

package badgerkv

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
)

// nodeRecord is the gob-serializable form of an entity.Entity. Embedding
// is deliberately omitted: vectors live only in the vector index, so a
// node record never duplicates the (often largest) part of an entity.
type nodeRecord struct {
	ID           string
	Kind         string
	Title        string
	Status       string
	Date         time.Time
	Tags         []string
	Deciders     []string
	Supersedes   string
	SupersededBy string
	Body         string
	Path         string
	ContentHash  string
}

func toNodeRecord(e entity.Entity) nodeRecord {
	return nodeRecord{
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
	}
}

func (r nodeRecord) toEntity() entity.Entity {
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
	}
}

type edgeRecord struct {
	ID    string
	From  string
	To    string
	Label string
}

func encodeNodeRecord(r nodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode node record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeNodeRecord(data []byte) (nodeRecord, error) {
	var r nodeRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nodeRecord{}, fmt.Errorf("decode node record: %w", err)
	}
	return r, nil
}

func encodeEdgeRecord(r edgeRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode edge record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEdgeRecord(data []byte) (edgeRecord, error) {
	var r edgeRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return edgeRecord{}, fmt.Errorf("decode edge record: %w", err)
	}
	return r, nil
}

func encodeManifest(r entity.ManifestRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode manifest record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeManifest(data []byte) (entity.ManifestRecord, error) {
	var r entity.ManifestRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return entity.ManifestRecord{}, fmt.Errorf("decode manifest record: %w", err)
	}
	return r, nil
}

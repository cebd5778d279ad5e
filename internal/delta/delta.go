// Package delta computes the set-difference between loaded entities and the
// stored manifest, grounding the sync round's incremental upserts/removes.
package delta

import "github.com/kevinmichaelchen/ixchel/internal/entity"

// Result is the outcome of comparing freshly loaded entities against the
// stored manifest: entities needing an upsert, and ids whose manifest
// entry no longer corresponds to a loaded file.
type Result struct {
	ToUpsert []entity.Entity
	ToRemove []string
}

// Compute is a pure function: it performs no I/O. It keys the comparison
// by path, not id — manifest is keyed by entity path, matching
// store.Backend.GetManifest — so a file renamed with unchanged content
// manifests as a remove-by-old-path plus an add-by-new-path even though
// its id and hash never changed. The two result sets are disjoint by path;
// in that rename case the same id appears in both ToUpsert and ToRemove.
func Compute(current []entity.Entity, manifest map[string]entity.ManifestRecord) Result {
	var result Result

	seenPaths := make(map[string]bool, len(current))
	for _, e := range current {
		seenPaths[e.Path] = true

		stored, ok := manifest[e.Path]
		if !ok || stored.ContentHash != e.ContentHash {
			result.ToUpsert = append(result.ToUpsert, e)
		}
	}

	for path, rec := range manifest {
		if !seenPaths[path] {
			result.ToRemove = append(result.ToRemove, rec.ID)
		}
	}

	return result
}

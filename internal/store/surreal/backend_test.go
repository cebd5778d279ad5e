package surreal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
	"github.com/kevinmichaelchen/ixchel/internal/store"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestParseConnectionURL_ExtractsUserinfo(t *testing.T) {
	connURL, user, pass, err := parseConnectionURL("ws://root:secret@localhost:8000/rpc")
	require.NoError(t, err)
	assert.Equal(t, "root", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "ws://localhost:8000/rpc", connURL)
}

func TestParseConnectionURL_NoCredentials(t *testing.T) {
	connURL, user, pass, err := parseConnectionURL("ws://localhost:8000/rpc")
	require.NoError(t, err)
	assert.Empty(t, user)
	assert.Empty(t, pass)
	assert.Equal(t, "ws://localhost:8000/rpc", connURL)
}

// The remaining tests exercise the backend against a live SurrealDB
// instance at the default local address. newTestBackend skips them
// unconditionally; it does not probe whether such an instance is reachable.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	t.Skip("requires a running SurrealDB instance")

	b := New()
	require.NoError(t, b.Open(context.Background(), "ws://root:root@localhost:8000/rpc", 4))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_UpsertAndLookup(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e := entity.Entity{
		ID:        "DECISION-001",
		Kind:      entity.KindDecision,
		Title:     "Use SurrealDB for storage",
		Status:    "accepted",
		Embedding: []float32{1, 0, 0, 0},
	}
	require.NoError(t, b.Upsert(ctx, e))

	got, err := b.LookupByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
}

func TestBackend_AddEdge_MissingEndpoint_ReturnsInvalidRelationship(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	err := b.AddEdge(ctx, store.Edge{ID: "EDGE-1", From: "DECISION-missing", To: "DECISION-also-missing", Label: entity.LabelRelatesTo})
	assert.Error(t, err)
}

func TestBackend_Stats(t *testing.T) {
	b := newTestBackend(t)
	stats, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "surrealdb", stats.Backend)
}

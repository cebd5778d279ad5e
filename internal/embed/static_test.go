package embed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Embed_ReturnsCorrectDimensions(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "we should adopt structured logging")

	require.NoError(t, err)
	assert.Len(t, embedding, StaticDimensions)
}

func TestStaticEmbedder_Embed_VectorIsNormalized(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "we should adopt structured logging")
	require.NoError(t, err)

	magnitude := vectorMagnitude(embedding)
	assert.InDelta(t, 1.0, magnitude, 0.001, "vector should be normalized to unit length")
}

func TestStaticEmbedder_Embed_IsDeterministic(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	text := "migrate the metadata store to badger for embedded deployments"

	emb1, err1 := embedder.Embed(context.Background(), text)
	emb2, err2 := embedder.Embed(context.Background(), text)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, emb1, emb2, "same text should produce identical vectors")
}

func TestStaticEmbedder_Embed_DeterministicAcrossInstances(t *testing.T) {
	embedder1 := NewStaticEmbedder()
	embedder2 := NewStaticEmbedder()
	defer func() { _ = embedder1.Close() }()
	defer func() { _ = embedder2.Close() }()

	text := "deprecate the legacy session manager"

	emb1, _ := embedder1.Embed(context.Background(), text)
	emb2, _ := embedder2.Embed(context.Background(), text)

	assert.Equal(t, emb1, emb2, "same text should produce identical vectors across instances")
}

func TestStaticEmbedder_Embed_DifferentTextsProduceDifferentVectors(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	emb1, _ := embedder.Embed(context.Background(), "adopt a new caching layer")
	emb2, _ := embedder.Embed(context.Background(), "deprecate the billing webhook")

	assert.NotEqual(t, emb1, emb2, "different texts should produce different vectors")
}

func TestStaticEmbedder_Embed_EmptyInput_ReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, embedding, StaticDimensions)
	for i, v := range embedding {
		assert.Equal(t, float32(0), v, "element %d should be zero", i)
	}
}

func TestStaticEmbedder_Embed_WhitespaceOnly_ReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "   \t\n  ")

	require.NoError(t, err)
	assert.Len(t, embedding, StaticDimensions)
	for _, v := range embedding {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder_SimilarProse_HasHigherSimilarity(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	adoptCaching := "we decided to adopt a write-through cache for the catalog service"
	adoptQueue := "we decided to adopt a message queue for the catalog service"
	unrelated := "the on-call rotation schedule was updated for next quarter"

	simRelated := cosineSimilarity(mustEmbed(t, embedder, adoptCaching), mustEmbed(t, embedder, adoptQueue))
	simUnrelated := cosineSimilarity(mustEmbed(t, embedder, adoptCaching), mustEmbed(t, embedder, unrelated))

	assert.Greater(t, simRelated, simUnrelated,
		"similar decisions should have higher similarity (related: %.4f) than unrelated (unrelated: %.4f)",
		simRelated, simUnrelated)
}

func TestStaticEmbedder_Available_AlwaysTrue(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	assert.True(t, embedder.Available(context.Background()), "static embedder should always be available")
}

func TestStaticEmbedder_Available_TrueEvenWithCancelledContext(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, embedder.Available(ctx), "static embedder should be available even with cancelled context")
}

func TestStaticEmbedder_Performance(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	texts := make([]string, 1000)
	for i := range texts {
		texts[i] = "we decided to adopt item " + string(rune('A'+i%26))
	}

	start := time.Now()
	for _, text := range texts {
		_, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 1*time.Second, "embedding 1000 texts should take < 1s (took %v)", elapsed)
}

func TestStaticEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	var _ Embedder = embedder
}

func TestStaticEmbedder_Dimensions_Returns384(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, 384, embedder.Dimensions())
}

func TestStaticEmbedder_ModelName_ReturnsStaticMinilm(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, "static-minilm", embedder.ModelName())
}

func TestStaticEmbedder_BatchSize_ReturnsDefault(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, DefaultBatchSize, embedder.BatchSize())
}

func TestStaticEmbedder_EmbedBatch_ReturnsCorrectCount(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	texts := []string{"adopt caching", "deprecate webhook", "supersede the old ADR"}

	embeddings, err := embedder.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, embeddings, 3)
	for i, emb := range embeddings {
		assert.Len(t, emb, StaticDimensions, "embedding %d should have correct dimensions", i)
	}
}

func TestStaticEmbedder_EmbedBatch_EmptyList_ReturnsEmpty(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	embeddings, err := embedder.EmbedBatch(context.Background(), []string{})

	require.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestStaticEmbedder_EmbedBatch_HandlesEmptyStringsInBatch(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	texts := []string{
		"adopt a write-through cache",
		"",
		"deprecate the legacy webhook",
	}

	embeddings, err := embedder.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, embeddings, 3)
	for _, v := range embeddings[1] {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder_Close_IsIdempotent(t *testing.T) {
	embedder := NewStaticEmbedder()

	err1 := embedder.Close()
	err2 := embedder.Close()
	err3 := embedder.Close()

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NoError(t, err3)
}

func TestStaticEmbedder_Embed_AfterClose_ReturnsError(t *testing.T) {
	embedder := NewStaticEmbedder()
	_ = embedder.Close()

	_, err := embedder.Embed(context.Background(), "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestStaticEmbedder_Available_AfterClose_ReturnsFalse(t *testing.T) {
	embedder := NewStaticEmbedder()
	_ = embedder.Close()

	assert.False(t, embedder.Available(context.Background()))
}

func TestStaticEmbedder_StopWordFiltering(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	withStopWords := "the decision is that we should and will adopt it"
	withoutStopWords := "decision adopt migrate deprecate"

	embWith := mustEmbed(t, embedder, withStopWords)
	embWithout := mustEmbed(t, embedder, withoutStopWords)

	similarity := cosineSimilarity(embWith, embWithout)
	assert.Less(t, similarity, float64(0.5),
		"stop words should be filtered, making vectors different (similarity: %.4f)", similarity)
}

func TestStaticEmbedder_Embed_UnicodeText_NoError(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	texts := []string{
		"決定を採用する",
		"принято решение",
		"decision noted 🚀",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			embedding, err := embedder.Embed(context.Background(), text)
			require.NoError(t, err)
			assert.Len(t, embedding, StaticDimensions)
		})
	}
}

func TestStaticEmbedder_Embed_LongText_NoError(t *testing.T) {
	embedder := NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	longText := ""
	for i := 0; i < 10000; i++ {
		longText += "word "
	}

	embedding, err := embedder.Embed(context.Background(), longText)
	require.NoError(t, err)
	assert.Len(t, embedding, StaticDimensions)
	assert.InDelta(t, 1.0, vectorMagnitude(embedding), 0.001)
}

func mustEmbed(t *testing.T, embedder Embedder, text string) []float32 {
	t.Helper()
	v, err := embedder.Embed(context.Background(), text)
	require.NoError(t, err)
	return v
}

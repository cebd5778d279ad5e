package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/ixchel/internal/store"
)

func TestIndex_AddAndSearch(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Add("b", []float32{0, 1, 0, 0}))
	require.NoError(t, idx.Add("c", []float32{0.9, 0.1, 0, 0}))

	results, err := idx.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Greater(t, results[0].Score, float32(0.99))
}

func TestIndex_ReplaceExistingID(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Add("a", []float32{0, 1, 0, 0}))

	assert.Equal(t, 1, idx.Count())
	results, err := idx.Search([]float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestIndex_Delete(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Add("b", []float32{0, 1, 0, 0}))

	require.NoError(t, idx.Delete("a"))

	assert.False(t, idx.Contains("a"))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestIndex_DimensionMismatch_OnAdd(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer idx.Close()

	err = idx.Add("a", []float32{1, 0, 0})
	require.Error(t, err)
	var dimErr store.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)
}

func TestIndex_DimensionMismatch_OnSearch(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Search([]float32{1, 0, 0}, 1)
	require.Error(t, err)
}

func TestIndex_Search_EmptyIndex_ReturnsEmpty(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_SaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	require.NoError(t, idx.Add("a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Add("b", []float32{0, 1, 0, 0}))
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Contains("a"))
	assert.True(t, loaded.Contains("b"))
}

func TestReadDimensions_MissingFile_ReturnsZero(t *testing.T) {
	dims, err := ReadDimensions(filepath.Join(t.TempDir(), "missing.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 0, dims)
}

func TestReadDimensions_AfterSave_MatchesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx, err := New(store.DefaultVectorIndexConfig(384))
	require.NoError(t, err)
	require.NoError(t, idx.Add("a", make([]float32, 384)))
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Close())

	dims, err := ReadDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 384, dims)
}

func TestIndex_OperationsAfterClose_Error(t *testing.T) {
	idx, err := New(store.DefaultVectorIndexConfig(4))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	assert.Error(t, idx.Add("a", []float32{1, 0, 0, 0}))
	_, err = idx.Search([]float32{1, 0, 0, 0}, 1)
	assert.Error(t, err)
	assert.False(t, idx.Contains("a"))
	assert.Equal(t, 0, idx.Count())
}

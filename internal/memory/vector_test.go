package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedChunks() []*Chunk {
	return []*Chunk{
		{ID: "c1", Scope: "alice", Text: "about cats", Embedding: []float32{1, 0, 0}},
		{ID: "c2", Scope: "alice", Text: "about dogs", Embedding: []float32{0, 1, 0}},
		{ID: "c3", Scope: "alice", Text: "no embedding"},
	}
}

func TestVectorIndex_SearchFindsNearest(t *testing.T) {
	idx := NewVectorIndex()

	hits := idx.Search("alice", embeddedChunks(), []float32{0.9, 0.1, 0}, 2)

	require.NotEmpty(t, hits)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.InDelta(t, 0.99, hits[0].Similarity, 0.02)
}

func TestVectorIndex_SkipsChunksWithoutEmbeddings(t *testing.T) {
	idx := NewVectorIndex()

	hits := idx.Search("alice", embeddedChunks(), []float32{1, 0, 0}, 10)

	for _, h := range hits {
		assert.NotEqual(t, "c3", h.ChunkID)
	}
}

func TestVectorIndex_EmptyQueryReturnsNil(t *testing.T) {
	idx := NewVectorIndex()

	assert.Nil(t, idx.Search("alice", embeddedChunks(), nil, 5))
	assert.Nil(t, idx.Search("alice", embeddedChunks(), []float32{1, 0, 0}, 0))
}

func TestVectorIndex_NoEmbeddableChunksReturnsNil(t *testing.T) {
	idx := NewVectorIndex()
	chunks := []*Chunk{{ID: "c1", Scope: "alice", Text: "plain"}}

	assert.Nil(t, idx.Search("alice", chunks, []float32{1, 0, 0}, 5))
}

func TestVectorIndex_DimensionMismatchReturnsNil(t *testing.T) {
	idx := NewVectorIndex()

	hits := idx.Search("alice", embeddedChunks(), []float32{1, 0}, 5)

	assert.Nil(t, hits)
}

func TestVectorIndex_InvalidateRebuildsFromCurrentChunks(t *testing.T) {
	idx := NewVectorIndex()

	// First search builds the index from the initial chunk set.
	hits := idx.Search("alice", embeddedChunks(), []float32{1, 0, 0}, 5)
	require.NotEmpty(t, hits)

	// After invalidation the next search sees only the new chunks.
	idx.Invalidate("alice")
	updated := []*Chunk{{ID: "c9", Scope: "alice", Text: "fresh", Embedding: []float32{1, 0, 0}}}
	hits = idx.Search("alice", updated, []float32{1, 0, 0}, 5)

	require.Len(t, hits, 1)
	assert.Equal(t, "c9", hits[0].ChunkID)
}

func TestVectorIndex_StaleIndexServedUntilInvalidated(t *testing.T) {
	idx := NewVectorIndex()

	_ = idx.Search("alice", embeddedChunks(), []float32{1, 0, 0}, 5)

	// Without an invalidation signal, the cached index is still used even
	// if the caller passes a different chunk set.
	updated := []*Chunk{{ID: "c9", Scope: "alice", Text: "fresh", Embedding: []float32{1, 0, 0}}}
	hits := idx.Search("alice", updated, []float32{1, 0, 0}, 5)

	require.NotEmpty(t, hits)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestVectorIndex_InvalidateAll(t *testing.T) {
	idx := NewVectorIndex()
	_ = idx.Search("alice", embeddedChunks(), []float32{1, 0, 0}, 5)
	_ = idx.Search("bob", []*Chunk{{ID: "b1", Embedding: []float32{0, 0, 1}}}, []float32{0, 0, 1}, 5)

	idx.InvalidateAll()

	updated := []*Chunk{{ID: "c9", Embedding: []float32{1, 0, 0}}}
	hits := idx.Search("alice", updated, []float32{1, 0, 0}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "c9", hits[0].ChunkID)
}

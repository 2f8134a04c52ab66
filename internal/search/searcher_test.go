package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/recall/internal/extract"
	"github.com/contextlab/recall/internal/memory"
)

func chunk(id, text string, tags ...string) *memory.Chunk {
	return &memory.Chunk{ID: id, Scope: "user1", Text: text, Tags: tags}
}

func TestSearcher_ExactMatch_CaseInsensitiveSubstring(t *testing.T) {
	// Given: chunks with and without the query substring
	s := NewSearcher(DefaultConfig(), nil, nil)
	chunks := []*memory.Chunk{
		chunk("c1", "My Uncle's Profession is carpentry"),
		chunk("c2", "we went hiking last weekend"),
	}

	// When: searching with a query that differs only in case
	results := s.Search("user1", "my uncle's profession", extract.EmptyKeywords(), chunks, nil)

	// Then: only the containing chunk matches, at the exact score
	require.Len(t, results.Exact, 1)
	assert.Equal(t, "c1", results.Exact[0].Chunk.ID)
	assert.Equal(t, 10.0, results.Exact[0].Score)
	assert.Equal(t, SourceExact, results.Exact[0].Source)
}

func TestSearcher_ExactMatch_EmptyQueryMatchesNothing(t *testing.T) {
	s := NewSearcher(DefaultConfig(), nil, nil)
	chunks := []*memory.Chunk{chunk("c1", "some text")}

	results := s.Search("user1", "   ", extract.EmptyKeywords(), chunks, nil)

	assert.Empty(t, results.Exact)
}

func TestSearcher_EntityMatch_TagAndMentionScoring(t *testing.T) {
	// Given: a chunk tagged for an entity that also mentions it twice
	s := NewSearcher(DefaultConfig(), nil, nil)
	chunks := []*memory.Chunk{
		chunk("c1", "Lilou loves the park. Lilou naps all afternoon.", "entity:lilou"),
		chunk("c2", "the weather was nice"),
	}
	kw := extract.EmptyKeywords()
	kw.Entities = []string{"Lilou"}

	// When: searching
	results := s.Search("user1", "unrelated query text", kw, chunks, nil)

	// Then: tag match (+5) plus two mentions (+3 each) = 11
	require.Len(t, results.Entity, 1)
	assert.Equal(t, "c1", results.Entity[0].Chunk.ID)
	assert.Equal(t, 11.0, results.Entity[0].Score)
	assert.Equal(t, SourceEntity, results.Entity[0].Source)
}

func TestSearcher_EntityMatch_AccumulatesAcrossEntities(t *testing.T) {
	s := NewSearcher(DefaultConfig(), nil, nil)
	chunks := []*memory.Chunk{
		chunk("c1", "Marie and Paul visited", "entity:marie", "entity:paul"),
	}
	kw := extract.EmptyKeywords()
	kw.Entities = []string{"Marie", "Paul"}

	results := s.Search("user1", "zzz", kw, chunks, nil)

	// Two tags (+5 each) and one mention of each name (+3 each) = 16
	require.Len(t, results.Entity, 1)
	assert.Equal(t, 16.0, results.Entity[0].Score)
}

func TestSearcher_EntityMatch_MentionWithoutTagStillScores(t *testing.T) {
	s := NewSearcher(DefaultConfig(), nil, nil)
	chunks := []*memory.Chunk{
		chunk("c1", "dinner with Marie downtown"),
	}
	kw := extract.EmptyKeywords()
	kw.Entities = []string{"Marie"}

	results := s.Search("user1", "zzz", kw, chunks, nil)

	require.Len(t, results.Entity, 1)
	assert.Equal(t, 3.0, results.Entity[0].Score)
}

func TestSearcher_SemanticMatch_SkippedWithoutEmbedding(t *testing.T) {
	s := NewSearcher(DefaultConfig(), memory.NewVectorIndex(), nil)
	chunks := []*memory.Chunk{chunk("c1", "anything")}

	results := s.Search("user1", "query", extract.EmptyKeywords(), chunks, nil)

	assert.Empty(t, results.Semantic)
}

func TestSearcher_SemanticMatch_ThresholdFiltersResults(t *testing.T) {
	// Given: one chunk aligned with the query embedding, one orthogonal
	s := NewSearcher(DefaultConfig(), memory.NewVectorIndex(), nil)
	aligned := chunk("c1", "aligned")
	aligned.Embedding = []float32{1, 0, 0, 0}
	orthogonal := chunk("c2", "orthogonal")
	orthogonal.Embedding = []float32{0, 1, 0, 0}
	chunks := []*memory.Chunk{aligned, orthogonal}

	// When: searching with an embedding matching the first chunk
	results := s.Search("user1", "zzz", extract.EmptyKeywords(), chunks, []float32{1, 0, 0, 0})

	// Then: only the aligned chunk clears the 0.3 similarity threshold
	require.Len(t, results.Semantic, 1)
	assert.Equal(t, "c1", results.Semantic[0].Chunk.ID)
	assert.InDelta(t, 1.0, results.Semantic[0].Score, 0.01)
	assert.Equal(t, SourceSemantic, results.Semantic[0].Source)
}

func TestSearcher_SameChunkCanMatchMultipleStrategies(t *testing.T) {
	// Given: a chunk that matches exactly and by entity
	s := NewSearcher(DefaultConfig(), nil, nil)
	chunks := []*memory.Chunk{
		chunk("c1", "my uncle Bob is a carpenter", "entity:bob"),
	}
	kw := extract.EmptyKeywords()
	kw.Entities = []string{"Bob"}

	// When: searching with the contained substring
	results := s.Search("user1", "uncle Bob", kw, chunks, nil)

	// Then: the chunk appears in both lists independently
	assert.Len(t, results.Exact, 1)
	assert.Len(t, results.Entity, 1)
}

func TestResults_Counts(t *testing.T) {
	r := Results{
		Exact:  []ScoredChunk{{}, {}},
		Entity: []ScoredChunk{{}},
	}
	exact, entity, semantic := r.Counts()
	assert.Equal(t, 2, exact)
	assert.Equal(t, 1, entity)
	assert.Equal(t, 0, semantic)
}

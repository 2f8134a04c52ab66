package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/recall/internal/extract"
)

func scored(id string, score float64, source MatchSource) ScoredChunk {
	return ScoredChunk{Chunk: chunk(id, "text for "+id), Score: score, Source: source}
}

func TestRank_OrdersByWeightedScoreDescending(t *testing.T) {
	// Given: matches from different strategies under FACTUAL weights
	results := Results{
		Exact:    []ScoredChunk{scored("c1", 10, SourceExact)},      // 10 * 1.5 = 15
		Entity:   []ScoredChunk{scored("c2", 8, SourceEntity)},      // 8 * 1.3 = 10.4
		Semantic: []ScoredChunk{scored("c3", 0.9, SourceSemantic)},  // 0.9 * 0.8 = 0.72
	}

	// When: ranking
	ranked := Rank(results, extract.IntentFactual)

	// Then: weighted scores order the output
	require.Len(t, ranked, 3)
	assert.Equal(t, "c1", ranked[0].Chunk.ID)
	assert.InDelta(t, 15.0, ranked[0].Score, 1e-9)
	assert.Equal(t, "c2", ranked[1].Chunk.ID)
	assert.InDelta(t, 10.4, ranked[1].Score, 1e-9)
	assert.Equal(t, "c3", ranked[2].Chunk.ID)
}

func TestRank_DeduplicatesByHighestPrioritySource(t *testing.T) {
	// Given: the same chunk matched by all three strategies
	results := Results{
		Exact:    []ScoredChunk{scored("c1", 10, SourceExact)},
		Entity:   []ScoredChunk{scored("c1", 50, SourceEntity)},
		Semantic: []ScoredChunk{scored("c1", 0.99, SourceSemantic)},
	}

	// When: ranking under RELATIONAL weights (entity weight is highest)
	ranked := Rank(results, extract.IntentRelational)

	// Then: the exact source wins regardless of which score is larger
	require.Len(t, ranked, 1)
	assert.Equal(t, SourceExact, ranked[0].Source)
	assert.InDelta(t, 10*1.1, ranked[0].Score, 1e-9)
}

func TestRank_IntentChangesOrdering(t *testing.T) {
	// Given: an entity match and a semantic match with close raw scores
	results := Results{
		Entity:   []ScoredChunk{scored("c1", 5, SourceEntity)},
		Semantic: []ScoredChunk{scored("c2", 6, SourceSemantic)},
	}

	// RELATIONAL boosts entities: 5*1.5=7.5 beats 6*1.0=6
	relational := Rank(results, extract.IntentRelational)
	require.Len(t, relational, 2)
	assert.Equal(t, "c1", relational[0].Chunk.ID)

	// CONCEPTUAL boosts semantic: 6*1.3=7.8 beats 5*1.0=5
	conceptual := Rank(results, extract.IntentConceptual)
	require.Len(t, conceptual, 2)
	assert.Equal(t, "c2", conceptual[0].Chunk.ID)
}

func TestRank_TiesBreakByChunkID(t *testing.T) {
	results := Results{
		Exact: []ScoredChunk{
			scored("c9", 10, SourceExact),
			scored("c2", 10, SourceExact),
			scored("c5", 10, SourceExact),
		},
	}

	ranked := Rank(results, extract.IntentFactual)

	require.Len(t, ranked, 3)
	assert.Equal(t, "c2", ranked[0].Chunk.ID)
	assert.Equal(t, "c5", ranked[1].Chunk.ID)
	assert.Equal(t, "c9", ranked[2].Chunk.ID)
}

func TestRank_IsDeterministic(t *testing.T) {
	results := Results{
		Exact:    []ScoredChunk{scored("c1", 10, SourceExact), scored("c4", 10, SourceExact)},
		Entity:   []ScoredChunk{scored("c2", 7, SourceEntity), scored("c4", 3, SourceEntity)},
		Semantic: []ScoredChunk{scored("c3", 0.8, SourceSemantic), scored("c1", 0.95, SourceSemantic)},
	}

	first := Rank(results, extract.IntentNarrative)
	for range 10 {
		again := Rank(results, extract.IntentNarrative)
		require.Equal(t, first, again)
	}
}

func TestRank_UnknownIntentUsesConceptualWeights(t *testing.T) {
	results := Results{
		Semantic: []ScoredChunk{scored("c1", 2, SourceSemantic)},
	}

	ranked := Rank(results, extract.Intent("MYSTERY"))

	require.Len(t, ranked, 1)
	assert.InDelta(t, 2*1.3, ranked[0].Score, 1e-9)
}

func TestRank_EmptyResults(t *testing.T) {
	ranked := Rank(Results{}, extract.IntentFactual)
	assert.Empty(t, ranked)
}

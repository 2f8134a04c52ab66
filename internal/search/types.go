// Package search runs the three retrieval strategies over a user's memory
// chunks: exact substring matching, entity tag matching, and semantic
// similarity. Each strategy scores independently; the ranker merges and
// deduplicates afterwards.
package search

import (
	"github.com/contextlab/recall/internal/memory"
)

// MatchSource identifies which strategy produced a scored chunk.
type MatchSource string

const (
	SourceExact    MatchSource = "exact"
	SourceEntity   MatchSource = "entity"
	SourceSemantic MatchSource = "semantic"
)

// sourcePriority orders sources for deduplication. When the same chunk
// matches under multiple strategies the highest-priority source wins
// outright; scores are never averaged across sources.
func sourcePriority(s MatchSource) int {
	switch s {
	case SourceExact:
		return 3
	case SourceEntity:
		return 2
	case SourceSemantic:
		return 1
	default:
		return 0
	}
}

// ScoredChunk pairs a chunk with its raw strategy score.
type ScoredChunk struct {
	Chunk  *memory.Chunk
	Score  float64
	Source MatchSource
}

// Results holds the per-strategy match lists. The same chunk may appear
// in more than one list; deduplication is the ranker's job.
type Results struct {
	Exact    []ScoredChunk
	Entity   []ScoredChunk
	Semantic []ScoredChunk
}

// Counts returns the per-strategy match counts for debug reporting.
func (r Results) Counts() (exact, entity, semantic int) {
	return len(r.Exact), len(r.Entity), len(r.Semantic)
}

// Config holds the strategy scoring parameters.
type Config struct {
	// ExactScore is the flat score for a raw substring match.
	ExactScore float64
	// EntityTagScore is added per matched entity tag.
	EntityTagScore float64
	// EntityMentionScore is added per literal in-text entity occurrence.
	EntityMentionScore float64
	// SemanticThreshold is the minimum cosine similarity for inclusion.
	SemanticThreshold float64
	// MaxResults caps the semantic candidate list.
	MaxResults int
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		ExactScore:         10,
		EntityTagScore:     5,
		EntityMentionScore: 3,
		SemanticThreshold:  0.3,
		MaxResults:         20,
	}
}

package search

import (
	"sort"

	"github.com/contextlab/recall/internal/extract"
)

// intentWeights is the fixed (exact, entity, semantic) weight triple per
// intent. A raw strategy score is multiplied by the matching weight, which
// makes retrieval intent-sensitive without re-running search.
type intentWeights struct {
	Exact    float64
	Entity   float64
	Semantic float64
}

var weightsByIntent = map[extract.Intent]intentWeights{
	extract.IntentFactual:    {Exact: 1.5, Entity: 1.3, Semantic: 0.8},
	extract.IntentNarrative:  {Exact: 1.2, Entity: 1.0, Semantic: 1.2},
	extract.IntentConceptual: {Exact: 1.0, Entity: 1.0, Semantic: 1.3},
	extract.IntentRelational: {Exact: 1.1, Entity: 1.5, Semantic: 1.0},
	extract.IntentEmotional:  {Exact: 1.0, Entity: 1.1, Semantic: 1.3},
	extract.IntentTask:       {Exact: 1.4, Entity: 1.2, Semantic: 0.9},
}

func weightsFor(intent extract.Intent) intentWeights {
	if w, ok := weightsByIntent[intent]; ok {
		return w
	}
	return weightsByIntent[extract.IntentConceptual]
}

func (w intentWeights) apply(sc ScoredChunk) float64 {
	switch sc.Source {
	case SourceExact:
		return sc.Score * w.Exact
	case SourceEntity:
		return sc.Score * w.Entity
	case SourceSemantic:
		return sc.Score * w.Semantic
	default:
		return sc.Score
	}
}

// Rank merges the per-strategy match lists into one descending-score list,
// deduplicated by chunk ID. When a chunk appears under multiple sources the
// highest-priority source wins (exact beats entity beats semantic) and its
// weighted score is used alone. Ties sort by chunk ID so the ordering is
// deterministic for identical inputs.
func Rank(results Results, intent extract.Intent) []ScoredChunk {
	weights := weightsFor(intent)

	best := make(map[string]ScoredChunk)
	for _, list := range [][]ScoredChunk{results.Exact, results.Entity, results.Semantic} {
		for _, sc := range list {
			weighted := ScoredChunk{
				Chunk:  sc.Chunk,
				Score:  weights.apply(sc),
				Source: sc.Source,
			}
			existing, seen := best[sc.Chunk.ID]
			if !seen || sourcePriority(weighted.Source) > sourcePriority(existing.Source) {
				best[sc.Chunk.ID] = weighted
			}
		}
	}

	ranked := make([]ScoredChunk, 0, len(best))
	for _, sc := range best {
		ranked = append(ranked, sc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})
	return ranked
}

package search

import (
	"log/slog"
	"strings"

	"github.com/contextlab/recall/internal/extract"
	"github.com/contextlab/recall/internal/memory"
)

// Searcher executes the three retrieval strategies over a chunk set.
type Searcher struct {
	config  Config
	vectors *memory.VectorIndex
	logger  *slog.Logger
}

// NewSearcher creates a searcher. vectors may be shared across queries;
// it is safe for concurrent use.
func NewSearcher(cfg Config, vectors *memory.VectorIndex, logger *slog.Logger) *Searcher {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{config: cfg, vectors: vectors, logger: logger}
}

// Search runs all strategies and returns their raw match lists.
// embedding may be nil, which skips the semantic branch entirely.
func (s *Searcher) Search(scope, query string, keywords extract.ExtractedKeywords, chunks []*memory.Chunk, embedding []float32) Results {
	results := Results{
		Exact:    s.exactMatches(query, chunks),
		Entity:   s.entityMatches(keywords.Entities, chunks),
		Semantic: s.semanticMatches(scope, chunks, embedding),
	}

	exact, entity, semantic := results.Counts()
	s.logger.Debug("search complete",
		"scope", scope,
		"exact_matches", exact,
		"entity_matches", entity,
		"semantic_matches", semantic,
		"embedding_available", embedding != nil)
	return results
}

// exactMatches finds chunks whose text contains the raw query substring,
// case-insensitive.
func (s *Searcher) exactMatches(query string, chunks []*memory.Chunk) []ScoredChunk {
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := []ScoredChunk{}
	if needle == "" {
		return matches
	}
	for _, chunk := range chunks {
		if strings.Contains(strings.ToLower(chunk.Text), needle) {
			matches = append(matches, ScoredChunk{
				Chunk:  chunk,
				Score:  s.config.ExactScore,
				Source: SourceExact,
			})
		}
	}
	return matches
}

// entityMatches scores chunks against the extracted entities. A chunk
// tagged "entity:<name>" earns the tag score per matched entity, and the
// mention score per literal occurrence of the entity string in its text.
// Scores accumulate across entities.
func (s *Searcher) entityMatches(entities []string, chunks []*memory.Chunk) []ScoredChunk {
	matches := []ScoredChunk{}
	if len(entities) == 0 {
		return matches
	}

	lowered := make([]string, 0, len(entities))
	for _, e := range entities {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			lowered = append(lowered, e)
		}
	}

	for _, chunk := range chunks {
		var score float64
		text := strings.ToLower(chunk.Text)
		for _, entity := range lowered {
			if hasEntityTag(chunk.Tags, entity) {
				score += s.config.EntityTagScore
			}
			if n := strings.Count(text, entity); n > 0 {
				score += s.config.EntityMentionScore * float64(n)
			}
		}
		if score > 0 {
			matches = append(matches, ScoredChunk{
				Chunk:  chunk,
				Score:  score,
				Source: SourceEntity,
			})
		}
	}
	return matches
}

func hasEntityTag(tags []string, entity string) bool {
	want := "entity:" + entity
	for _, tag := range tags {
		if strings.ToLower(tag) == want {
			return true
		}
	}
	return false
}

// semanticMatches returns chunks whose embedding similarity to the query
// embedding meets the threshold. Score is the cosine similarity itself.
func (s *Searcher) semanticMatches(scope string, chunks []*memory.Chunk, embedding []float32) []ScoredChunk {
	matches := []ScoredChunk{}
	if len(embedding) == 0 || s.vectors == nil {
		return matches
	}

	byID := make(map[string]*memory.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk
	}

	for _, hit := range s.vectors.Search(scope, chunks, embedding, s.config.MaxResults) {
		if hit.Similarity < s.config.SemanticThreshold {
			continue
		}
		chunk, ok := byID[hit.ChunkID]
		if !ok {
			continue
		}
		matches = append(matches, ScoredChunk{
			Chunk:  chunk,
			Score:  hit.Similarity,
			Source: SourceSemantic,
		})
	}
	return matches
}

// Package assemble packs ranked chunks into a token-budgeted context block.
package assemble

import (
	"sort"
	"strings"

	"github.com/contextlab/recall/internal/extract"
	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/internal/search"
)

// DefaultTokenBudget bounds the assembled context when no budget is given.
const DefaultTokenBudget = 2000

// Assembly is the rendered context block and its accounting.
type Assembly struct {
	// ContextText is the final rendered block: entity facts first, then
	// the selected chunks in presentation order.
	ContextText string
	// Chunks are the selected chunks in presentation order.
	Chunks []*memory.Chunk
	// TotalTokens is the approximate token count of ContextText content.
	TotalTokens int
	// ChunksSelected is the number of chunks that fit the budget.
	ChunksSelected int
}

// EstimateTokens approximates the model token count of text as
// ceil(len/4), the convention used throughout the pipeline.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Assemble packs chunks in ranked order until the next chunk would exceed
// the token budget. The entity facts block is placed first and counts
// against the budget. For NARRATIVE intent the selected chunks are
// re-sorted by sequence index so story order survives relevance selection.
func Assemble(ranked []search.ScoredChunk, intent extract.Intent, factsBlock string, tokenBudget int) Assembly {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}

	total := 0
	factsBlock = strings.TrimSpace(factsBlock)
	if factsBlock != "" {
		factTokens := EstimateTokens(factsBlock)
		if factTokens > tokenBudget {
			// Facts alone blow the budget; emit nothing rather than overrun.
			return Assembly{}
		}
		total += factTokens
	}

	selected := make([]*memory.Chunk, 0, len(ranked))
	for _, sc := range ranked {
		cost := EstimateTokens(sc.Chunk.Text)
		if total+cost > tokenBudget {
			break
		}
		total += cost
		selected = append(selected, sc.Chunk)
	}

	if intent == extract.IntentNarrative {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].SequenceIndex < selected[j].SequenceIndex
		})
	}

	return Assembly{
		ContextText:    render(factsBlock, selected),
		Chunks:         selected,
		TotalTokens:    total,
		ChunksSelected: len(selected),
	}
}

// render joins the facts block and chunk texts with blank lines.
func render(factsBlock string, chunks []*memory.Chunk) string {
	parts := make([]string, 0, len(chunks)+1)
	if factsBlock != "" {
		parts = append(parts, factsBlock)
	}
	for _, chunk := range chunks {
		parts = append(parts, strings.TrimSpace(chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}

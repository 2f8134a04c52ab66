// Package output renders engine results for the CLI in plain text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/contextlab/recall/internal/engine"
	"github.com/contextlab/recall/internal/extract"
	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/internal/telemetry"
)

// Writer renders results to an io.Writer.
type Writer struct {
	out  io.Writer
	json bool
}

// NewWriter creates a writer. When jsonMode is true every render emits
// indented JSON instead of plain text.
func NewWriter(out io.Writer, jsonMode bool) *Writer {
	return &Writer{out: out, json: jsonMode}
}

func (w *Writer) encode(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// QueryResult renders one processed query.
func (w *Writer) QueryResult(result *engine.Result, verbose bool) error {
	if w.json {
		return w.encode(result)
	}

	if result.ContextText == "" {
		fmt.Fprintln(w.out, "(no relevant context found)")
	} else {
		fmt.Fprintln(w.out, result.ContextText)
	}

	if verbose {
		fmt.Fprintln(w.out)
		fmt.Fprintf(w.out, "intent:    %s\n", result.Intent)
		if result.FromCache {
			fmt.Fprintf(w.out, "cache:     hit (%s tier)\n", result.CacheTier)
		} else {
			fmt.Fprintln(w.out, "cache:     miss")
		}
		fmt.Fprintf(w.out, "matches:   exact=%d entity=%d semantic=%d\n",
			result.Debug.ExactMatches, result.Debug.EntityMatches, result.Debug.SemanticMatches)
		fmt.Fprintf(w.out, "selected:  %d chunks, %d tokens\n",
			result.Debug.ChunksSelected, result.Debug.TokensUsed)
		if result.Debug.UsedFallback {
			fmt.Fprintln(w.out, "note:      classification used heuristic fallback")
		}
	}
	return nil
}

// statusView is the combined status payload for JSON output.
type statusView struct {
	Store   *memory.StoreStats `json:"store,omitempty"`
	Queries telemetry.Snapshot `json:"queries"`
}

// Status renders store stats and pipeline metrics.
func (w *Writer) Status(stats *memory.StoreStats, snap telemetry.Snapshot) error {
	if w.json {
		return w.encode(statusView{Store: stats, Queries: snap})
	}

	if stats != nil {
		fmt.Fprintf(w.out, "chunks:        %d\n", stats.Chunks)
		fmt.Fprintf(w.out, "entities:      %d\n", stats.Entities)
		fmt.Fprintf(w.out, "entity facts:  %d\n", stats.EntityFacts)
		fmt.Fprintln(w.out)
	}

	fmt.Fprintf(w.out, "queries:       %d since %s\n", snap.TotalQueries, snap.Since.Format("15:04:05"))
	fmt.Fprintf(w.out, "cache hits:    %d (%.0f%%)\n", snap.CacheHits, snap.CacheHitRate()*100)
	fmt.Fprintf(w.out, "fallbacks:     %d (%.0f%%)\n", snap.FallbackCount, snap.FallbackRate()*100)

	if len(snap.IntentCounts) > 0 {
		intents := make([]extract.Intent, 0, len(snap.IntentCounts))
		for intent := range snap.IntentCounts {
			intents = append(intents, intent)
		}
		sort.Slice(intents, func(i, j int) bool { return intents[i] < intents[j] })
		fmt.Fprintln(w.out, "intents:")
		for _, intent := range intents {
			fmt.Fprintf(w.out, "  %-12s %d\n", intent, snap.IntentCounts[intent])
		}
	}
	return nil
}

// Invalidated reports a cache invalidation. A negative removed count
// means the whole cache was cleared without counting entries.
func (w *Writer) Invalidated(target string, removed int) error {
	if w.json {
		v := map[string]any{"target": target}
		if removed >= 0 {
			v["entries_removed"] = removed
		}
		return w.encode(v)
	}
	if removed < 0 {
		fmt.Fprintf(w.out, "invalidated %s\n", target)
		return nil
	}
	fmt.Fprintf(w.out, "invalidated %s: %d cache entries removed\n", target, removed)
	return nil
}

// Imported reports an import run.
func (w *Writer) Imported(chunks, facts int) error {
	if w.json {
		return w.encode(map[string]any{"chunks": chunks, "entity_facts": facts})
	}
	fmt.Fprintf(w.out, "imported %d chunks and %d entity facts\n", chunks, facts)
	return nil
}

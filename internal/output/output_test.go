package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/recall/internal/cache"
	"github.com/contextlab/recall/internal/engine"
	"github.com/contextlab/recall/internal/extract"
	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/internal/telemetry"
)

func sampleEngineResult() *engine.Result {
	return &engine.Result{
		ContextText: "Known facts:\n- Lilou: cat",
		Intent:      extract.IntentRelational,
		FromCache:   true,
		CacheTier:   cache.TierExact,
		Debug: engine.DebugInfo{
			Intent:         extract.IntentRelational,
			ExactMatches:   1,
			EntityMatches:  2,
			ChunksSelected: 2,
			TokensUsed:     50,
			UsedFallback:   true,
		},
	}
}

func TestWriter_QueryResult_Plain(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	require.NoError(t, w.QueryResult(sampleEngineResult(), true))

	out := buf.String()
	assert.Contains(t, out, "Known facts:")
	assert.Contains(t, out, "intent:    RELATIONAL")
	assert.Contains(t, out, "cache:     hit (exact tier)")
	assert.Contains(t, out, "heuristic fallback")
}

func TestWriter_QueryResult_PlainWithoutVerbose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	require.NoError(t, w.QueryResult(sampleEngineResult(), false))

	assert.NotContains(t, buf.String(), "intent:")
}

func TestWriter_QueryResult_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	result := sampleEngineResult()
	result.ContextText = ""
	require.NoError(t, w.QueryResult(result, false))

	assert.Contains(t, buf.String(), "no relevant context")
}

func TestWriter_QueryResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	require.NoError(t, w.QueryResult(sampleEngineResult(), false))

	var decoded engine.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, extract.IntentRelational, decoded.Intent)
	assert.True(t, decoded.FromCache)
}

func TestWriter_Status_Plain(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	stats := &memory.StoreStats{Chunks: 12, Entities: 3, EntityFacts: 7}
	snap := telemetry.Snapshot{
		TotalQueries: 10,
		CacheHits:    4,
		IntentCounts: map[extract.Intent]int64{extract.IntentFactual: 6, extract.IntentRelational: 4},
		Since:        time.Now(),
	}
	require.NoError(t, w.Status(stats, snap))

	out := buf.String()
	assert.Contains(t, out, "chunks:        12")
	assert.Contains(t, out, "cache hits:    4 (40%)")
	assert.Contains(t, out, "FACTUAL")
}

func TestWriter_Invalidated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, false).Invalidated("entity Lilou", 2))
	assert.Contains(t, buf.String(), "invalidated entity Lilou: 2 cache entries removed")
}

func TestWriter_Imported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, false).Imported(5, 3))
	assert.Contains(t, buf.String(), "imported 5 chunks and 3 entity facts")
}

package mcp

// PersonalContextInput defines the input schema for the personal_context tool.
type PersonalContextInput struct {
	Message string `json:"message" jsonschema:"the user message to retrieve personalization context for"`
	Scope   string `json:"scope" jsonschema:"the user scope whose memory should be searched"`
}

// DebugOutput carries per-query observability fields.
type DebugOutput struct {
	Intent             string   `json:"intent"`
	Entities           []string `json:"entities"`
	Concepts           []string `json:"concepts"`
	Temporal           []string `json:"temporal"`
	Relational         []string `json:"relational"`
	Emotional          []string `json:"emotional"`
	ExactMatches       int      `json:"exact_matches"`
	EntityMatches      int      `json:"entity_matches"`
	SemanticMatches    int      `json:"semantic_matches"`
	ChunksSelected     int      `json:"chunks_selected"`
	TokensUsed         int      `json:"tokens_used"`
	UsedFallback       bool     `json:"used_fallback"`
	EmbeddingAvailable bool     `json:"embedding_available"`
}

// PersonalContextOutput defines the output schema for the personal_context tool.
type PersonalContextOutput struct {
	ContextText string      `json:"context_text" jsonschema:"assembled context block, empty when nothing relevant was found"`
	Intent      string      `json:"intent" jsonschema:"classified query intent"`
	FromCache   bool        `json:"from_cache" jsonschema:"true when served from the semantic cache"`
	CacheTier   string      `json:"cache_tier" jsonschema:"cache tier that matched: exact, normalized, semantic, or none"`
	Debug       DebugOutput `json:"debug" jsonschema:"pipeline observability details"`
}

// InvalidateMemoryInput defines the input schema for the invalidate_memory tool.
// Exactly one of Entity, ChunkID, or All should be set.
type InvalidateMemoryInput struct {
	Entity  string `json:"entity,omitempty" jsonschema:"invalidate cache entries referencing this entity name"`
	ChunkID string `json:"chunk_id,omitempty" jsonschema:"invalidate cache entries that included this chunk"`
	All     bool   `json:"all,omitempty" jsonschema:"clear the entire cache"`
}

// InvalidateMemoryOutput defines the output schema for the invalidate_memory tool.
type InvalidateMemoryOutput struct {
	EntriesRemoved int `json:"entries_removed" jsonschema:"number of cache entries removed (0 for full clears)"`
}

// MemoryStatusInput defines the input schema for the memory_status tool.
type MemoryStatusInput struct {
	Scope string `json:"scope,omitempty" jsonschema:"optional user scope to report store contents for"`
}

// StoreStatusOutput reports store contents for one scope.
type StoreStatusOutput struct {
	Scope       string `json:"scope"`
	Chunks      int    `json:"chunks"`
	Entities    int    `json:"entities"`
	EntityFacts int    `json:"entity_facts"`
}

// IntentCount pairs an intent with its observed query count.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int64  `json:"count"`
}

// QueryStatusOutput reports pipeline metrics.
type QueryStatusOutput struct {
	Total         int64         `json:"total"`
	CacheHits     int64         `json:"cache_hits"`
	CacheHitRate  float64       `json:"cache_hit_rate"`
	FallbackCount int64         `json:"fallback_count"`
	FallbackRate  float64       `json:"fallback_rate"`
	IntentCounts  []IntentCount `json:"intent_counts,omitempty"`
	Since         string        `json:"since"`
}

// MemoryStatusOutput defines the output schema for the memory_status tool.
type MemoryStatusOutput struct {
	Store   *StoreStatusOutput `json:"store,omitempty"`
	Queries QueryStatusOutput  `json:"queries"`
}

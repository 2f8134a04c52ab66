// Package memory provides the personal knowledge store: chunks of
// free-form text, per-entity fact indexes, and the vector index used by
// semantic search. Storage is scoped per user; the query pipeline only
// reads from it, writes happen through import tooling and the
// memory-editing layer.
package memory

import (
	"context"
	"time"
)

// Chunk represents an atomic retrievable unit of personal knowledge text.
type Chunk struct {
	ID string `json:"id"`
	// Scope identifies the owning user.
	Scope string `json:"scope"`
	Text  string `json:"text"`
	// SequenceIndex orders chunks within their source narrative. Assembly
	// restores this order for narrative intents.
	SequenceIndex int `json:"sequence_index"`
	// Tags carry retrieval hints, notably "entity:<name>" markers.
	Tags []string `json:"tags,omitempty"`
	// Embedding is the stored vector for semantic matching, nil if the
	// chunk was imported without one.
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityIndex maps a normalized (lowercase) entity name to its known facts.
type EntityIndex map[string][]string

// EntityFact is one stored fact about a named entity.
type EntityFact struct {
	Scope  string `json:"scope"`
	Entity string `json:"entity"`
	Fact   string `json:"fact"`
}

// Store is the chunk/entity storage engine.
// The query pipeline uses only the Load methods; the write side exists for
// the import tooling and memory-editing flows.
type Store interface {
	// LoadChunks returns all chunks for a user scope.
	LoadChunks(ctx context.Context, scope string) ([]*Chunk, error)

	// LoadEntityIndex returns the entity index for a user scope.
	// Keys are lowercase entity names.
	LoadEntityIndex(ctx context.Context, scope string) (EntityIndex, error)

	// SaveChunks inserts or replaces chunks.
	SaveChunks(ctx context.Context, chunks []*Chunk) error

	// SaveEntityFacts inserts entity facts.
	SaveEntityFacts(ctx context.Context, facts []*EntityFact) error

	// DeleteChunk removes a chunk by id.
	DeleteChunk(ctx context.Context, id string) error

	// DeleteEntity removes all facts for an entity within a scope.
	DeleteEntity(ctx context.Context, scope, entity string) error

	// Stats returns per-scope counts for status reporting.
	Stats(ctx context.Context, scope string) (StoreStats, error)

	// Close releases the underlying database.
	Close() error
}

// StoreStats summarizes stored data for one scope.
type StoreStats struct {
	Chunks      int `json:"chunks"`
	Entities    int `json:"entities"`
	EntityFacts int `json:"entity_facts"`
}

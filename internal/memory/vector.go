package memory

import (
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// VectorHit is one semantic match from the vector index.
type VectorHit struct {
	ChunkID    string
	Similarity float64
}

// scopeIndex is an HNSW graph over one scope's chunk embeddings.
type scopeIndex struct {
	graph      *hnsw.Graph[uint64]
	keyMap     map[uint64]string
	dimensions int
}

// VectorIndex maintains per-scope HNSW indexes over chunk embeddings.
// Indexes are built lazily on first semantic search for a scope and dropped
// on invalidation, the next search rebuilds from the current chunk set.
type VectorIndex struct {
	mu     sync.RWMutex
	scopes map[string]*scopeIndex
}

// NewVectorIndex creates an empty index manager.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{scopes: make(map[string]*scopeIndex)}
}

// Search returns up to k chunks semantically closest to the query embedding,
// building the scope's index from chunks if it does not exist yet.
// Chunks without embeddings are skipped. Returns similarities in [-1, 1].
func (v *VectorIndex) Search(scope string, chunks []*Chunk, query []float32, k int) []VectorHit {
	if len(query) == 0 || k <= 0 {
		return nil
	}

	idx := v.ensure(scope, chunks)
	if idx == nil || idx.graph.Len() == 0 || idx.dimensions != len(query) {
		return nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	v.mu.RLock()
	defer v.mu.RUnlock()

	nodes := idx.graph.Search(normalized, k)
	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := idx.keyMap[node.Key]
		if !ok {
			continue
		}
		// CosineDistance is 1 - cos, so similarity recovers the raw cosine.
		distance := idx.graph.Distance(normalized, node.Value)
		hits = append(hits, VectorHit{
			ChunkID:    id,
			Similarity: 1 - float64(distance),
		})
	}
	return hits
}

// Invalidate drops the index for one scope.
func (v *VectorIndex) Invalidate(scope string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.scopes, scope)
}

// InvalidateAll drops every scope index.
func (v *VectorIndex) InvalidateAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scopes = make(map[string]*scopeIndex)
}

// ensure returns the scope's index, building it from chunks if absent.
func (v *VectorIndex) ensure(scope string, chunks []*Chunk) *scopeIndex {
	v.mu.RLock()
	idx, ok := v.scopes[scope]
	v.mu.RUnlock()
	if ok {
		return idx
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if idx, ok = v.scopes[scope]; ok {
		return idx
	}

	idx = buildScopeIndex(chunks)
	if idx != nil {
		v.scopes[scope] = idx
	}
	return idx
}

func buildScopeIndex(chunks []*Chunk) *scopeIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	idx := &scopeIndex{
		graph:  graph,
		keyMap: make(map[uint64]string),
	}

	var key uint64
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if idx.dimensions == 0 {
			idx.dimensions = len(c.Embedding)
		}
		if len(c.Embedding) != idx.dimensions {
			continue
		}

		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		normalizeInPlace(vec)

		graph.Add(hnsw.MakeNode(key, vec))
		idx.keyMap[key] = c.ID
		key++
	}

	if len(idx.keyMap) == 0 {
		return nil
	}
	return idx
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

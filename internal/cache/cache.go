// Package cache implements the three-tier semantic query cache. Tier 1
// matches the normalized query exactly, Tier 2 matches a stopword-stripped
// token set, and Tier 3 matches by embedding cosine similarity. Entries are
// removed only through explicit invalidation or TTL expiry; the cache never
// self-detects staleness.
package cache

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/contextlab/recall/internal/embed"
	rerrors "github.com/contextlab/recall/internal/errors"
	"github.com/contextlab/recall/internal/extract"
)

// Tier identifies which matching strategy produced a cache hit.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNormalized
	TierSemantic
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized"
	case TierSemantic:
		return "semantic"
	default:
		return "none"
	}
}

// Defaults for the cache service.
const (
	DefaultMaxEntries     = 1000
	DefaultTier3Threshold = 0.92
	cleanupInterval       = 5 * time.Minute
)

// CachedResult is the pipeline output preserved for replay on a hit.
// Entities and ChunkIDs record what the result referenced, which drives
// invalidation.
type CachedResult struct {
	ContextText string
	Intent      extract.Intent
	TokensUsed  int
	Entities    []string
	ChunkIDs    []string
}

// entry is one stored cache record with its lookup keys.
type entry struct {
	ID         string
	Scope      string
	Normalized string
	TokenSet   string
	Embedding  []float32
	Result     CachedResult
	StoredAt   time.Time
}

// Hit reports a successful lookup.
type Hit struct {
	Result CachedResult
	Tier   Tier
}

// Config configures the cache service.
type Config struct {
	// MaxEntries bounds the entry count; oldest entries are evicted first.
	MaxEntries int
	// Tier3Threshold is the minimum cosine similarity for a semantic hit.
	Tier3Threshold float64
	// TTL expires entries after this duration; zero disables expiry.
	TTL time.Duration
}

// DefaultConfig returns the standard cache configuration with no TTL.
func DefaultConfig() Config {
	return Config{
		MaxEntries:     DefaultMaxEntries,
		Tier3Threshold: DefaultTier3Threshold,
	}
}

// Service is the query cache. It must be initialized before use; lookups
// and stores against an uninitialized service return a cache error that
// callers treat as a bypass, never as a query failure.
type Service struct {
	config Config
	logger *slog.Logger

	mu      sync.RWMutex
	store   *gocache.Cache
	byTier1 map[string]string // scope+normalized -> entry ID
	byTier2 map[string]string // scope+tokenset   -> entry ID
	ready   bool
}

// NewService creates an uninitialized cache service.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Tier3Threshold <= 0 {
		cfg.Tier3Threshold = DefaultTier3Threshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{config: cfg, logger: logger}
}

// Initialize builds the entry store. Safe to call once per service.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	ttl := s.config.TTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	// TTL expiry leaves secondary keys behind; lookups tolerate index
	// entries whose backing record is gone, and the keys are reclaimed
	// when the same normalized query is stored again.
	s.store = gocache.New(ttl, cleanupInterval)
	s.byTier1 = make(map[string]string)
	s.byTier2 = make(map[string]string)

	s.ready = true
	return nil
}

// Ready reports whether Initialize succeeded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Service) notReadyError() error {
	return rerrors.CacheError("cache service not initialized", nil)
}

func tier1Key(scope, normalized string) string { return scope + "\x00" + normalized }
func tier2Key(scope, tokenSet string) string   { return scope + "\x00" + tokenSet }

// Lookup checks the tiers in order and stops at the first hit.
// A nil embedding skips Tier 3.
func (s *Service) Lookup(scope, query string, embedding []float32) (*Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, s.notReadyError()
	}

	// Tier 1: normalized exact match.
	normalized := NormalizeQuery(query)
	if id, ok := s.byTier1[tier1Key(scope, normalized)]; ok {
		if e := s.getLocked(id); e != nil {
			return &Hit{Result: e.Result, Tier: TierExact}, nil
		}
	}

	// Tier 2: token-set equality.
	tokenSet := TokenSetKey(query)
	if tokenSet != "" {
		if id, ok := s.byTier2[tier2Key(scope, tokenSet)]; ok {
			if e := s.getLocked(id); e != nil {
				return &Hit{Result: e.Result, Tier: TierNormalized}, nil
			}
		}
	}

	// Tier 3: embedding similarity scan over the scope's entries.
	if len(embedding) > 0 {
		if e := s.bestSemanticLocked(scope, embedding); e != nil {
			return &Hit{Result: e.Result, Tier: TierSemantic}, nil
		}
	}

	return nil, nil
}

// getLocked fetches an entry by ID, tolerating index entries whose backing
// record already expired.
func (s *Service) getLocked(id string) *entry {
	value, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	e, _ := value.(*entry)
	return e
}

// bestSemanticLocked returns the stored entry with the highest cosine
// similarity above the threshold, or nil.
func (s *Service) bestSemanticLocked(scope string, embedding []float32) *entry {
	var best *entry
	bestSim := s.config.Tier3Threshold
	for _, item := range s.store.Items() {
		e, ok := item.Object.(*entry)
		if !ok || e.Scope != scope || len(e.Embedding) == 0 {
			continue
		}
		sim := embed.CosineSimilarity(embedding, e.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = e
		}
	}
	return best
}

// Store writes a cache entry. The entry is always Tier-1 and Tier-2
// eligible; it is Tier-3 eligible when an embedding is supplied. A later
// store for the same normalized query replaces the earlier entry.
func (s *Service) Store(scope, query string, embedding []float32, result CachedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return s.notReadyError()
	}

	e := &entry{
		ID:         uuid.NewString(),
		Scope:      scope,
		Normalized: NormalizeQuery(query),
		TokenSet:   TokenSetKey(query),
		Embedding:  embedding,
		Result:     result,
		StoredAt:   time.Now(),
	}

	// Replace any entry already holding this normalized key.
	if oldID, ok := s.byTier1[tier1Key(scope, e.Normalized)]; ok {
		s.removeLocked(oldID)
	}
	if s.store.ItemCount() >= s.config.MaxEntries {
		s.evictOldestLocked()
	}

	s.store.SetDefault(e.ID, e)
	s.byTier1[tier1Key(scope, e.Normalized)] = e.ID
	if e.TokenSet != "" {
		s.byTier2[tier2Key(scope, e.TokenSet)] = e.ID
	}
	return nil
}

// evictOldestLocked removes the oldest stored entry to respect MaxEntries.
func (s *Service) evictOldestLocked() {
	var oldest *entry
	for _, item := range s.store.Items() {
		e, ok := item.Object.(*entry)
		if !ok {
			continue
		}
		if oldest == nil || e.StoredAt.Before(oldest.StoredAt) {
			oldest = e
		}
	}
	if oldest != nil {
		s.removeLocked(oldest.ID)
	}
}

// removeLocked deletes an entry and its secondary keys.
func (s *Service) removeLocked(id string) {
	e := s.getLocked(id)
	s.store.Delete(id)
	if e != nil {
		s.dropKeysLocked(e)
	}
}

// dropKeysLocked clears secondary keys still pointing at this entry.
func (s *Service) dropKeysLocked(e *entry) {
	k1 := tier1Key(e.Scope, e.Normalized)
	if s.byTier1[k1] == e.ID {
		delete(s.byTier1, k1)
	}
	if e.TokenSet != "" {
		k2 := tier2Key(e.Scope, e.TokenSet)
		if s.byTier2[k2] == e.ID {
			delete(s.byTier2, k2)
		}
	}
}

// InvalidateByEntity removes every entry whose result referenced the named
// entity, case-insensitive. Returns the number of entries removed.
func (s *Service) InvalidateByEntity(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, s.notReadyError()
	}

	name = strings.ToLower(strings.TrimSpace(name))
	removed := 0
	for _, item := range s.store.Items() {
		e, ok := item.Object.(*entry)
		if !ok {
			continue
		}
		for _, ent := range e.Result.Entities {
			if strings.ToLower(ent) == name {
				s.removeLocked(e.ID)
				removed++
				break
			}
		}
	}
	s.logInvalidation("entity", name, removed)
	return removed, nil
}

// InvalidateByChunk removes every entry whose result included the chunk.
func (s *Service) InvalidateByChunk(chunkID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, s.notReadyError()
	}

	removed := 0
	for _, item := range s.store.Items() {
		e, ok := item.Object.(*entry)
		if !ok {
			continue
		}
		for _, id := range e.Result.ChunkIDs {
			if id == chunkID {
				s.removeLocked(e.ID)
				removed++
				break
			}
		}
	}
	s.logInvalidation("chunk", chunkID, removed)
	return removed, nil
}

// InvalidateAll clears the cache.
func (s *Service) InvalidateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return s.notReadyError()
	}

	s.store.Flush()
	s.byTier1 = make(map[string]string)
	s.byTier2 = make(map[string]string)
	s.logger.Info("cache cleared")
	return nil
}

// Len returns the current entry count.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return 0
	}
	return s.store.ItemCount()
}

func (s *Service) logInvalidation(kind, key string, removed int) {
	s.logger.Info(fmt.Sprintf("cache invalidated by %s", kind),
		"key", key, "entries_removed", removed)
}

// Package engine orchestrates the query pipeline: cache lookup, the
// concurrent classify/embed/load join, hybrid search, ranking, assembly,
// and the cache write-back.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contextlab/recall/internal/assemble"
	"github.com/contextlab/recall/internal/cache"
	"github.com/contextlab/recall/internal/config"
	"github.com/contextlab/recall/internal/embed"
	rerrors "github.com/contextlab/recall/internal/errors"
	"github.com/contextlab/recall/internal/extract"
	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/internal/search"
	"github.com/contextlab/recall/internal/telemetry"
	"github.com/contextlab/recall/internal/validation"
)

// DebugInfo reports what the pipeline did for one query. It is always
// populated so callers can observe fallbacks and match counts without
// extra round trips.
type DebugInfo struct {
	Intent             extract.Intent            `json:"intent"`
	Keywords           extract.ExtractedKeywords `json:"keywords"`
	ExactMatches       int                       `json:"exact_matches"`
	EntityMatches      int                       `json:"entity_matches"`
	SemanticMatches    int                       `json:"semantic_matches"`
	ChunksSelected     int                       `json:"chunks_selected"`
	TokensUsed         int                       `json:"tokens_used"`
	UsedFallback       bool                      `json:"used_fallback"`
	EmbeddingAvailable bool                      `json:"embedding_available"`
	CacheBypassed      bool                      `json:"cache_bypassed,omitempty"`
}

// Result is the outcome of one processed query.
type Result struct {
	ContextText string         `json:"context_text"`
	Intent      extract.Intent `json:"intent"`
	FromCache   bool           `json:"from_cache"`
	CacheTier   cache.Tier     `json:"cache_tier"`
	Debug       DebugInfo      `json:"debug"`
}

// Engine runs the personalization pipeline. Safe for concurrent use;
// the cache service is the only shared mutable state between queries.
type Engine struct {
	config     config.Config
	store      memory.Store
	classifier *extract.Adapter
	embedder   embed.Embedder // nil disables the semantic branch
	cache      *cache.Service
	vectors    *memory.VectorIndex
	searcher   *search.Searcher
	metrics    *telemetry.Collector
	logger     *slog.Logger
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClassifier overrides the classification adapter.
func WithClassifier(adapter *extract.Adapter) Option {
	return func(e *Engine) { e.classifier = adapter }
}

// WithEmbedder overrides the embedder. Passing nil disables embeddings.
func WithEmbedder(embedder embed.Embedder) Option {
	return func(e *Engine) { e.embedder = embedder }
}

// WithMetrics overrides the telemetry collector.
func WithMetrics(collector *telemetry.Collector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// New creates an engine over the given store using cfg for every
// component default.
func New(cfg config.Config, store memory.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		config:  cfg,
		store:   store,
		vectors: memory.NewVectorIndex(),
		metrics: telemetry.NewCollector(telemetry.DefaultRecentCapacity),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.classifier == nil {
		var service extract.Classifier
		if !cfg.Classifier.FallbackOnly {
			service = extract.NewServiceClassifier(extract.ServiceConfig{
				Endpoint: cfg.Classifier.Endpoint,
				Model:    cfg.Classifier.Model,
				Timeout:  cfg.Classifier.Timeout,
			})
		}
		e.classifier = extract.NewAdapter(service,
			extract.WithCacheSize(cfg.Classifier.CacheSize),
			extract.WithLogger(e.logger))
	}

	if e.embedder == nil {
		embedder, err := embed.New(embed.Config{
			Provider:   cfg.Embeddings.Provider,
			Endpoint:   cfg.Embeddings.Endpoint,
			Model:      cfg.Embeddings.Model,
			APIKeyEnv:  cfg.Embeddings.APIKeyEnv,
			Dimensions: cfg.Embeddings.Dimensions,
			Timeout:    cfg.Embeddings.Timeout,
			CacheSize:  cfg.Embeddings.CacheSize,
		}, e.logger)
		if err != nil {
			return nil, err
		}
		e.embedder = embedder
	}

	e.cache = cache.NewService(cache.Config{
		MaxEntries:     cfg.Cache.MaxEntries,
		Tier3Threshold: cfg.Cache.Tier3Threshold,
		TTL:            cfg.Cache.TTL,
	}, e.logger)
	if err := e.cache.Initialize(); err != nil {
		return nil, err
	}

	e.searcher = search.NewSearcher(search.Config{
		ExactScore:         cfg.Search.ExactScore,
		EntityTagScore:     cfg.Search.EntityTagScore,
		EntityMentionScore: cfg.Search.EntityMentionScore,
		SemanticThreshold:  cfg.Search.SemanticThreshold,
		MaxResults:         cfg.Search.MaxResults,
	}, e.vectors, e.logger)

	return e, nil
}

// joined holds the outputs of the concurrent classify/embed/load phase.
type joined struct {
	classification extract.Classification
	usedFallback   bool
	embedding      []float32
	chunks         []*memory.Chunk
	entityIndex    memory.EntityIndex
}

// ProcessQuery runs the full pipeline for one user message.
//
// Storage failures are fatal and surfaced; every other failure degrades:
// classification falls back to the heuristic extractor, a missing
// embedding disables the semantic branch and Tier-3 cache, and cache
// errors bypass the cache for this query only.
func (e *Engine) ProcessQuery(ctx context.Context, userMessage, userScope string) (*Result, error) {
	started := time.Now()

	if err := validation.ValidateQuery(userMessage); err != nil {
		return nil, err
	}
	if err := validation.ValidateScope(userScope); err != nil {
		return nil, err
	}

	// Cheap tiers first; the embedding is not available yet.
	cacheBypassed := false
	if hit := e.lookupCache(userScope, userMessage, nil, &cacheBypassed); hit != nil {
		return e.cachedResult(userScope, hit, cacheBypassed, started), nil
	}

	join, err := e.runJoin(ctx, userMessage, userScope)
	if err != nil {
		return nil, err
	}

	// The embedding may unlock a Tier-3 hit that the first pass could not see.
	if len(join.embedding) > 0 && !cacheBypassed {
		if hit := e.lookupCache(userScope, userMessage, join.embedding, &cacheBypassed); hit != nil {
			return e.cachedResult(userScope, hit, cacheBypassed, started), nil
		}
	}

	results := e.searcher.Search(userScope, userMessage, join.classification.Keywords, join.chunks, join.embedding)
	ranked := search.Rank(results, join.classification.Intent)

	facts := memory.Lookup(join.classification.Keywords.Entities, join.entityIndex)
	assembly := assemble.Assemble(ranked, join.classification.Intent,
		memory.FormatFacts(facts), e.config.Assembly.TokenBudget)

	exact, entity, semantic := results.Counts()
	result := &Result{
		ContextText: assembly.ContextText,
		Intent:      join.classification.Intent,
		CacheTier:   cache.TierNone,
		Debug: DebugInfo{
			Intent:             join.classification.Intent,
			Keywords:           join.classification.Keywords,
			ExactMatches:       exact,
			EntityMatches:      entity,
			SemanticMatches:    semantic,
			ChunksSelected:     assembly.ChunksSelected,
			TokensUsed:         assembly.TotalTokens,
			UsedFallback:       join.usedFallback,
			EmbeddingAvailable: len(join.embedding) > 0,
			CacheBypassed:      cacheBypassed,
		},
	}

	// A cancelled pipeline must not leave a partial entry behind.
	if ctx.Err() == nil && !cacheBypassed {
		e.storeCache(userScope, userMessage, join, assembly, result)
	}

	e.metrics.Record(telemetry.QueryEvent{
		Scope:        userScope,
		Intent:       result.Intent,
		FromCache:    false,
		UsedFallback: join.usedFallback,
		ChunkCount:   assembly.ChunksSelected,
		Latency:      time.Since(started),
	})
	return result, nil
}

// runJoin launches classification, embedding, and the storage load
// concurrently and waits for all three. Only storage failures propagate.
func (e *Engine) runJoin(ctx context.Context, userMessage, userScope string) (*joined, error) {
	join := &joined{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		join.classification, join.usedFallback = e.classifier.Classify(gctx, userMessage)
		return nil
	})

	g.Go(func() error {
		if e.embedder == nil {
			return nil
		}
		vec, err := e.embedder.Embed(gctx, userMessage)
		if err != nil {
			// Embedding loss only narrows this query, never fails it.
			e.logger.Warn("embedding failed, semantic branch disabled",
				"error", err, "scope", userScope)
			return nil
		}
		join.embedding = vec
		return nil
	})

	g.Go(func() error {
		chunks, err := e.store.LoadChunks(gctx, userScope)
		if err != nil {
			return err
		}
		index, err := e.store.LoadEntityIndex(gctx, userScope)
		if err != nil {
			return err
		}
		join.chunks = chunks
		join.entityIndex = index
		return nil
	})

	if err := g.Wait(); err != nil {
		// Storage is the only failing branch; empty context would read as
		// "nothing relevant" when the truth is "could not check".
		var re *rerrors.RecallError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, rerrors.Wrap(rerrors.ErrCodeStorageUnavailable, err)
	}
	return join, nil
}

// lookupCache consults the cache, downgrading any cache failure to a
// bypass for this query.
func (e *Engine) lookupCache(scope, query string, embedding []float32, bypassed *bool) *cache.Hit {
	if *bypassed {
		return nil
	}
	hit, err := e.cache.Lookup(scope, query, embedding)
	if err != nil {
		e.logger.Warn("cache lookup failed, bypassing cache", "error", err, "scope", scope)
		*bypassed = true
		return nil
	}
	return hit
}

// storeCache writes the pipeline result back. Failures are logged and
// dropped; the result has already been computed.
func (e *Engine) storeCache(scope, query string, join *joined, assembly assemble.Assembly, result *Result) {
	chunkIDs := make([]string, 0, len(assembly.Chunks))
	for _, chunk := range assembly.Chunks {
		chunkIDs = append(chunkIDs, chunk.ID)
	}
	err := e.cache.Store(scope, query, join.embedding, cache.CachedResult{
		ContextText: result.ContextText,
		Intent:      result.Intent,
		TokensUsed:  assembly.TotalTokens,
		Entities:    join.classification.Keywords.Entities,
		ChunkIDs:    chunkIDs,
	})
	if err != nil {
		e.logger.Warn("cache store failed", "error", err, "scope", scope)
	}
}

// cachedResult adapts a cache hit into a full result and records metrics.
func (e *Engine) cachedResult(scope string, hit *cache.Hit, bypassed bool, started time.Time) *Result {
	result := &Result{
		ContextText: hit.Result.ContextText,
		Intent:      hit.Result.Intent,
		FromCache:   true,
		CacheTier:   hit.Tier,
		Debug: DebugInfo{
			Intent:        hit.Result.Intent,
			Keywords:      extract.EmptyKeywords(),
			TokensUsed:    hit.Result.TokensUsed,
			CacheBypassed: bypassed,
		},
	}
	e.metrics.Record(telemetry.QueryEvent{
		Scope:     scope,
		Intent:    hit.Result.Intent,
		FromCache: true,
		CacheTier: hit.Tier,
		Latency:   time.Since(started),
	})
	return result
}

// InvalidateByEntity drops cache entries referencing the entity.
func (e *Engine) InvalidateByEntity(name string) (int, error) {
	return e.cache.InvalidateByEntity(name)
}

// InvalidateByChunk drops cache entries that included the chunk and
// rebuilds vector indexes, since the chunk's embedding may have changed.
func (e *Engine) InvalidateByChunk(chunkID string) (int, error) {
	e.vectors.InvalidateAll()
	return e.cache.InvalidateByChunk(chunkID)
}

// InvalidateAll clears the cache and all vector indexes.
func (e *Engine) InvalidateAll() error {
	e.vectors.InvalidateAll()
	return e.cache.InvalidateAll()
}

// Metrics exposes the telemetry collector.
func (e *Engine) Metrics() *telemetry.Collector {
	return e.metrics
}

// Store exposes the underlying chunk store for import and status flows.
func (e *Engine) Store() memory.Store {
	return e.store
}

// Close releases engine resources. The store is owned by the caller.
func (e *Engine) Close() error {
	if e.embedder != nil {
		return e.embedder.Close()
	}
	return nil
}

package extract

import (
	"context"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	rerrors "github.com/contextlab/recall/internal/errors"
)

// DefaultAdapterCacheSize is the classification LRU capacity.
const DefaultAdapterCacheSize = 512

// Adapter is the classification entry point for the pipeline. It tries the
// external service first and recovers with the heuristic extractor on any
// failure. Classification errors never reach the caller.
//
// Results are cached in an LRU keyed by the normalized message. The service
// runs behind a circuit breaker so a dead endpoint stops costing a timeout
// per query.
type Adapter struct {
	service  Classifier
	fallback *FallbackExtractor
	cache    *lru.Cache[string, Classification]
	breaker  *rerrors.CircuitBreaker
	logger   *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithCacheSize overrides the classification LRU capacity.
func WithCacheSize(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			cache, _ := lru.New[string, Classification](n)
			a.cache = cache
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates a classification adapter.
// If service is nil, every query uses the heuristic extractor.
func NewAdapter(service Classifier, opts ...AdapterOption) *Adapter {
	cache, _ := lru.New[string, Classification](DefaultAdapterCacheSize)
	a := &Adapter{
		service:  service,
		fallback: NewFallbackExtractor(),
		cache:    cache,
		breaker:  rerrors.NewCircuitBreaker("classifier"),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// outcome carries the service result across the fallback decision site.
// Exactly one of classification/err is meaningful.
type outcome struct {
	classification Classification
	err            error
}

// Classify returns the classification for a message, plus whether the
// heuristic fallback produced it. It never returns an error, failures are
// downgraded to the fallback and logged.
func (a *Adapter) Classify(ctx context.Context, message string) (Classification, bool) {
	cacheKey := normalizeMessage(message)
	if cacheKey == "" {
		return Classification{Intent: IntentConceptual, Keywords: EmptyKeywords()}, true
	}

	if cached, ok := a.cache.Get(cacheKey); ok {
		return cached, false
	}

	out := a.callService(ctx, message)
	classification, usedFallback := a.decide(message, out)

	// A cancelled context must not poison the cache with a fallback result
	// the service might have answered better.
	if ctx.Err() == nil {
		a.cache.Add(cacheKey, classification)
	}

	return classification, usedFallback
}

// callService invokes the external classifier through the circuit breaker.
func (a *Adapter) callService(ctx context.Context, message string) outcome {
	if a.service == nil {
		return outcome{err: rerrors.New(rerrors.ErrCodeClassifyUnavailable, "classification service not configured", nil)}
	}

	classification, err := rerrors.CircuitExecute(a.breaker, func() (Classification, error) {
		return a.service.Classify(ctx, message)
	})
	if err != nil {
		return outcome{err: err}
	}
	return outcome{classification: classification}
}

// decide is the single fallback decision site. Given the service outcome it
// returns the final classification and whether the fallback produced it.
func (a *Adapter) decide(message string, out outcome) (Classification, bool) {
	if out.err == nil {
		return out.classification, false
	}

	a.logger.Debug("classification_fallback",
		slog.String("error", out.err.Error()),
		slog.String("code", rerrors.GetCode(out.err)))

	intent, keywords := a.fallback.Extract(message)
	return Classification{Intent: intent, Keywords: keywords}, true
}

// normalizeMessage normalizes a message for the cache key.
func normalizeMessage(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

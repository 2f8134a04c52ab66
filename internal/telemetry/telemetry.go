// Package telemetry collects query pipeline metrics for observability.
// All data stays in process memory, there is no external reporting.
package telemetry

import (
	"sync"
	"time"

	"github.com/contextlab/recall/internal/cache"
	"github.com/contextlab/recall/internal/extract"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent records one processed query.
type QueryEvent struct {
	Scope        string
	Intent       extract.Intent
	CacheTier    cache.Tier
	FromCache    bool
	UsedFallback bool
	ChunkCount   int
	Latency      time.Duration
	Timestamp    time.Time
}

// DefaultRecentCapacity bounds the recent-event ring buffer.
const DefaultRecentCapacity = 100

// Collector aggregates query events.
type Collector struct {
	mu            sync.RWMutex
	totalQueries  int64
	cacheHits     int64
	fallbackCount int64
	intentCounts  map[extract.Intent]int64
	tierCounts    map[cache.Tier]int64
	latencyCounts map[LatencyBucket]int64
	recent        *CircularBuffer[QueryEvent]
	since         time.Time
}

// NewCollector creates a collector keeping up to capacity recent events.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &Collector{
		intentCounts:  make(map[extract.Intent]int64),
		tierCounts:    make(map[cache.Tier]int64),
		latencyCounts: make(map[LatencyBucket]int64),
		recent:        NewCircularBuffer[QueryEvent](capacity),
		since:         time.Now(),
	}
}

// Record adds one query event to the aggregates.
func (c *Collector) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalQueries++
	c.intentCounts[event.Intent]++
	c.latencyCounts[LatencyToBucket(event.Latency)]++
	if event.FromCache {
		c.cacheHits++
		c.tierCounts[event.CacheTier]++
	}
	if event.UsedFallback {
		c.fallbackCount++
	}
	c.recent.Add(event)
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	TotalQueries  int64                     `json:"total_queries"`
	CacheHits     int64                     `json:"cache_hits"`
	FallbackCount int64                     `json:"fallback_count"`
	IntentCounts  map[extract.Intent]int64  `json:"intent_counts"`
	TierCounts    map[cache.Tier]int64      `json:"tier_counts"`
	LatencyCounts map[LatencyBucket]int64   `json:"latency_counts"`
	Since         time.Time                 `json:"since"`
}

// CacheHitRate returns the fraction of queries served from cache.
func (s Snapshot) CacheHitRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalQueries)
}

// FallbackRate returns the fraction of queries that used the fallback
// extractor instead of the classification service.
func (s Snapshot) FallbackRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.FallbackCount) / float64(s.TotalQueries)
}

// Snapshot returns a copy of the current aggregates.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		TotalQueries:  c.totalQueries,
		CacheHits:     c.cacheHits,
		FallbackCount: c.fallbackCount,
		IntentCounts:  make(map[extract.Intent]int64, len(c.intentCounts)),
		TierCounts:    make(map[cache.Tier]int64, len(c.tierCounts)),
		LatencyCounts: make(map[LatencyBucket]int64, len(c.latencyCounts)),
		Since:         c.since,
	}
	for k, v := range c.intentCounts {
		snap.IntentCounts[k] = v
	}
	for k, v := range c.tierCounts {
		snap.TierCounts[k] = v
	}
	for k, v := range c.latencyCounts {
		snap.LatencyCounts[k] = v
	}
	return snap
}

// Recent returns the buffered events, oldest first.
func (c *Collector) Recent() []QueryEvent {
	return c.recent.Items()
}

// Reset clears all aggregates.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalQueries = 0
	c.cacheHits = 0
	c.fallbackCount = 0
	c.intentCounts = make(map[extract.Intent]int64)
	c.tierCounts = make(map[cache.Tier]int64)
	c.latencyCounts = make(map[LatencyBucket]int64)
	c.recent.Clear()
	c.since = time.Now()
}

package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/recall/internal/cache"
	"github.com/contextlab/recall/internal/extract"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{200 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), "latency %s", tt.latency)
	}
}

func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := NewCollector(10)

	c.Record(QueryEvent{
		Intent:    extract.IntentFactual,
		FromCache: true,
		CacheTier: cache.TierExact,
		Latency:   5 * time.Millisecond,
	})
	c.Record(QueryEvent{
		Intent:       extract.IntentRelational,
		UsedFallback: true,
		Latency:      80 * time.Millisecond,
	})

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.FallbackCount)
	assert.Equal(t, int64(1), snap.IntentCounts[extract.IntentFactual])
	assert.Equal(t, int64(1), snap.IntentCounts[extract.IntentRelational])
	assert.Equal(t, int64(1), snap.TierCounts[cache.TierExact])
	assert.Equal(t, int64(1), snap.LatencyCounts[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyCounts[BucketP100])
	assert.InDelta(t, 0.5, snap.CacheHitRate(), 1e-9)
	assert.InDelta(t, 0.5, snap.FallbackRate(), 1e-9)
}

func TestCollector_EmptySnapshotRates(t *testing.T) {
	snap := NewCollector(10).Snapshot()
	assert.Zero(t, snap.CacheHitRate())
	assert.Zero(t, snap.FallbackRate())
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector(10)
	c.Record(QueryEvent{Intent: extract.IntentTask})

	snap := c.Snapshot()
	snap.IntentCounts[extract.IntentTask] = 99

	assert.Equal(t, int64(1), c.Snapshot().IntentCounts[extract.IntentTask])
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector(10)
	c.Record(QueryEvent{Intent: extract.IntentFactual})

	c.Reset()

	snap := c.Snapshot()
	assert.Zero(t, snap.TotalQueries)
	assert.Empty(t, c.Recent())
}

func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record(QueryEvent{Intent: extract.IntentConceptual})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), c.Snapshot().TotalQueries)
}

func TestCircularBuffer_FIFOOrder(t *testing.T) {
	b := NewCircularBuffer[int](3)
	b.Add(1)
	b.Add(2)

	assert.Equal(t, []int{1, 2}, b.Items())
	assert.Equal(t, 2, b.Size())
}

func TestCircularBuffer_EvictsOldestWhenFull(t *testing.T) {
	b := NewCircularBuffer[int](3)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}

	require.Equal(t, 3, b.Size())
	assert.Equal(t, []int{3, 4, 5}, b.Items())
}

func TestCircularBuffer_Clear(t *testing.T) {
	b := NewCircularBuffer[string](3)
	b.Add("x")
	b.Clear()

	assert.Zero(t, b.Size())
	assert.Empty(t, b.Items())
}

package metrics

import (
	"time"

	"github.com/jmgilman/buildcache/cacheindex"
)

// ShardInfo is a reserved field for future distributed-cache deployments.
// Sharding is a configuration hint, not a protocol this module implements
// (see the cache's Non-goals); FromIndex leaves it zero-valued.
type ShardInfo struct {
	ShardCount int
	ShardID    string
}

// CacheStatistics is the engine's public statistics() contract: the
// index's raw counters plus derived values and the detailed metrics this
// module chooses to populate (SPEC_FULL.md §12).
type CacheStatistics struct {
	EntryCount    int
	TotalSize     int64
	HitCount      int64
	MissCount     int64
	EvictionCount int64
	LastModified  time.Time
	LastGC        time.Time

	HitRate            float64
	OldestEntryAge     time.Duration
	MostRecentEntryAge time.Duration
	AverageEntrySize   int64

	OperationMetrics Snapshot
	ErrorCount       int64
	ShardInfo        ShardInfo
}

// FromIndex derives a CacheStatistics from the index's raw statistics and
// entries plus the engine's in-memory detailed metrics.
func FromIndex(stats cacheindex.Statistics, entries map[string]cacheindex.Entry, now time.Time, detailed Snapshot) CacheStatistics {
	cs := CacheStatistics{
		EntryCount:       stats.EntryCount,
		TotalSize:        stats.TotalSize,
		HitCount:         stats.HitCount,
		MissCount:        stats.MissCount,
		EvictionCount:    stats.EvictionCount,
		LastModified:     stats.LastModified,
		LastGC:           stats.LastGC,
		OperationMetrics: detailed,
		ErrorCount:       detailed.Errors,
	}

	total := stats.HitCount + stats.MissCount
	if total > 0 {
		cs.HitRate = float64(stats.HitCount) / float64(total)
	}

	if stats.EntryCount > 0 {
		cs.AverageEntrySize = stats.TotalSize / int64(stats.EntryCount)
	}

	var oldest, newest time.Time
	for _, entry := range entries {
		created := entry.Metadata.CreatedAt
		if oldest.IsZero() || created.Before(oldest) {
			oldest = created
		}
		if newest.IsZero() || created.After(newest) {
			newest = created
		}
	}
	if !oldest.IsZero() {
		cs.OldestEntryAge = now.Sub(oldest)
	}
	if !newest.IsZero() {
		cs.MostRecentEntryAge = now.Sub(newest)
	}

	return cs
}

package metrics

import (
	"testing"
	"time"

	"github.com/jmgilman/buildcache/cacheindex"
	"github.com/stretchr/testify/require"
)

func TestFromIndex_DerivesHitRateAndAges(t *testing.T) {
	now := time.Now()
	stats := cacheindex.Statistics{
		TotalSize:  300,
		EntryCount: 3,
		HitCount:   3,
		MissCount:  1,
	}
	entries := map[string]cacheindex.Entry{
		"a": {Metadata: cacheindex.EntryMetadata{CreatedAt: now.Add(-2 * time.Hour)}},
		"b": {Metadata: cacheindex.EntryMetadata{CreatedAt: now.Add(-time.Hour)}},
		"c": {Metadata: cacheindex.EntryMetadata{CreatedAt: now}},
	}

	cs := FromIndex(stats, entries, now, Snapshot{})
	require.InDelta(t, 0.75, cs.HitRate, 0.0001)
	require.Equal(t, int64(100), cs.AverageEntrySize)
	require.InDelta(t, (2 * time.Hour).Seconds(), cs.OldestEntryAge.Seconds(), 1)
	require.InDelta(t, time.Duration(0).Seconds(), cs.MostRecentEntryAge.Seconds(), 1)
}

func TestFromIndex_EmptyIndexHasZeroDerivedValues(t *testing.T) {
	cs := FromIndex(cacheindex.Statistics{}, nil, time.Now(), Snapshot{})
	require.Zero(t, cs.HitRate)
	require.Zero(t, cs.AverageEntrySize)
	require.Zero(t, cs.OldestEntryAge)
}

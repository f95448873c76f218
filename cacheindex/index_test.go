package cacheindex

import (
	"testing"
	"time"

	"github.com/jmgilman/buildcache/fs/billy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(billy.NewMemory(), "/cache", nil)
	require.NoError(t, err)
	return idx
}

func TestPut_InsertsAndReplacesWithoutDoubleCountingEntries(t *testing.T) {
	idx := newTestIndex(t)

	now := time.Now()
	err := idx.Put("fp1", ocispec.Descriptor{Size: 100}, EntryMetadata{CreatedAt: now, AccessedAt: now})
	require.NoError(t, err)
	require.Equal(t, 1, idx.Statistics().EntryCount)
	require.Equal(t, int64(100), idx.Statistics().TotalSize)

	err = idx.Put("fp1", ocispec.Descriptor{Size: 200}, EntryMetadata{CreatedAt: now, AccessedAt: now})
	require.NoError(t, err)
	require.Equal(t, 1, idx.Statistics().EntryCount)
	require.Equal(t, int64(200), idx.Statistics().TotalSize)
}

func TestPeek_DoesNotAffectStatistics(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Put("fp1", ocispec.Descriptor{Size: 10}, EntryMetadata{}))

	_, ok := idx.Peek("fp1")
	require.True(t, ok)
	_, ok = idx.Peek("missing")
	require.False(t, ok)

	stats := idx.Statistics()
	require.Zero(t, stats.HitCount)
	require.Zero(t, stats.MissCount)
}

func TestRecordAccess_BumpsHitAndMissCounters(t *testing.T) {
	idx := newTestIndex(t)
	created := time.Now().Add(-time.Hour)
	require.NoError(t, idx.Put("fp1", ocispec.Descriptor{Size: 10}, EntryMetadata{CreatedAt: created, AccessedAt: created}))

	entry, ok := idx.RecordAccess("fp1")
	require.True(t, ok)
	require.True(t, entry.Metadata.AccessedAt.After(created))
	require.EqualValues(t, 1, idx.Statistics().HitCount)

	_, ok = idx.RecordAccess("nope")
	require.False(t, ok)
	require.EqualValues(t, 1, idx.Statistics().MissCount)
}

func TestRemove_BumpsEvictionCountAndRecomputesSize(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Put("fp1", ocispec.Descriptor{Size: 10}, EntryMetadata{}))
	require.NoError(t, idx.Put("fp2", ocispec.Descriptor{Size: 20}, EntryMetadata{}))

	removed, err := idx.Remove([]string{"fp1", "does-not-exist"})
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	stats := idx.Statistics()
	require.EqualValues(t, 1, stats.EvictionCount)
	require.Equal(t, 1, stats.EntryCount)
	require.Equal(t, int64(20), stats.TotalSize)
}

func TestOpen_RecoversFromCorruptIndexFile(t *testing.T) {
	fs := billy.NewMemory()
	require.NoError(t, fs.MkdirAll("/cache", 0o755))
	require.NoError(t, fs.WriteFile("/cache/index.json", []byte("{not valid json"), 0o644))

	idx, err := Open(fs, "/cache", nil)
	require.NoError(t, err)
	require.Empty(t, idx.All())

	exists, err := fs.Exists("/cache/index.json.corrupted")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestOpen_ReloadsPersistedState(t *testing.T) {
	fs := billy.NewMemory()
	idx, err := Open(fs, "/cache", nil)
	require.NoError(t, err)
	require.NoError(t, idx.Put("fp1", ocispec.Descriptor{Size: 5}, EntryMetadata{}))

	reopened, err := Open(fs, "/cache", nil)
	require.NoError(t, err)
	entry, ok := reopened.Peek("fp1")
	require.True(t, ok)
	require.Equal(t, int64(5), entry.Descriptor.Size)
}

func TestExpiredFingerprints_HonorsTTL(t *testing.T) {
	idx := newTestIndex(t)
	now := time.Now()
	require.NoError(t, idx.Put("expired", ocispec.Descriptor{}, EntryMetadata{CreatedAt: now.Add(-2 * time.Hour), TTL: time.Hour}))
	require.NoError(t, idx.Put("fresh", ocispec.Descriptor{}, EntryMetadata{CreatedAt: now, TTL: time.Hour}))
	require.NoError(t, idx.Put("no-ttl", ocispec.Descriptor{}, EntryMetadata{CreatedAt: now.Add(-2 * time.Hour)}))

	expired := idx.ExpiredFingerprints(now)
	require.Equal(t, []string{"expired"}, expired)
}

func TestLRUOrder_OldestAccessedFirstWithCreatedAtTieBreak(t *testing.T) {
	idx := newTestIndex(t)
	base := time.Now()

	require.NoError(t, idx.Put("b", ocispec.Descriptor{}, EntryMetadata{AccessedAt: base, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, idx.Put("a", ocispec.Descriptor{}, EntryMetadata{AccessedAt: base, CreatedAt: base}))
	require.NoError(t, idx.Put("c", ocispec.Descriptor{}, EntryMetadata{AccessedAt: base.Add(time.Hour), CreatedAt: base}))

	require.Equal(t, []string{"a", "b", "c"}, idx.LRUOrder())
}

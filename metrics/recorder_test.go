package metrics

import (
	"testing"
	"time"

	"github.com/jmgilman/buildcache/cachekey"
	"github.com/stretchr/testify/require"
)

func TestRecorder_HitRateAndOperationBreakdown(t *testing.T) {
	r := NewRecorder()
	r.RecordHit(cachekey.OperationFilesystem, 100, 5*time.Millisecond)
	r.RecordHit(cachekey.OperationFilesystem, 50, 10*time.Millisecond)
	r.RecordMiss(cachekey.OperationExec, time.Millisecond)

	snap := r.Snapshot()
	require.EqualValues(t, 2, snap.Hits)
	require.EqualValues(t, 1, snap.Misses)
	require.InDelta(t, 2.0/3.0, snap.HitRate, 0.0001)
	require.EqualValues(t, 2, snap.OperationHits[cachekey.OperationFilesystem])
	require.EqualValues(t, 1, snap.OperationMisses[cachekey.OperationExec])
	require.EqualValues(t, 150, snap.BytesServed)
	require.EqualValues(t, 150, snap.ComputeAvoidedEstimate)
}

func TestRecorder_PutTracksPeaks(t *testing.T) {
	r := NewRecorder()
	r.RecordPut(cachekey.OperationImage, 100, time.Millisecond)
	r.RecordPut(cachekey.OperationImage, 200, time.Millisecond)
	r.RecordEviction(50, time.Millisecond)

	snap := r.Snapshot()
	require.EqualValues(t, 250, snap.PeakBytesStored)
	require.EqualValues(t, 2, snap.PeakEntriesStored)
	require.EqualValues(t, 250, snap.BytesStored)
	require.EqualValues(t, 1, snap.Evictions)
}

func TestLatencyStats_AverageAndP95(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	avg, p95 := latencyStats(samples)
	require.Equal(t, 50*time.Millisecond+500*time.Microsecond, avg)
	require.Equal(t, 95*time.Millisecond, p95)
}

func TestLatencyStats_Empty(t *testing.T) {
	avg, p95 := latencyStats(nil)
	require.Zero(t, avg)
	require.Zero(t, p95)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder()
	r.RecordHit(cachekey.OperationExec, 10, time.Millisecond)
	r.Reset()

	snap := r.Snapshot()
	require.Zero(t, snap.Hits)
	require.Zero(t, snap.BytesServed)
}

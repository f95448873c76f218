// Package metrics implements the cache's statistics surface: the bare
// counters the index itself tracks (see cacheindex.Statistics), plus the
// detailed per-operation-type, latency, and peak-usage metrics a cache
// engine accumulates in memory across its lifetime.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/jmgilman/buildcache/cachekey"
)

// maxLatencySamples bounds how many recent latency samples are retained
// per operation kind before older samples are trimmed.
const maxLatencySamples = 10000

// trimToSamples is how many samples survive a trim.
const trimToSamples = 5000

// Recorder accumulates detailed, in-memory cache metrics across the
// engine's lifetime: hit/miss/eviction/error counts, per-operation-type
// breakdowns, latency samples, and peak-usage watermarks. It is safe for
// concurrent use.
type Recorder struct {
	mu sync.RWMutex

	hits      int64
	misses    int64
	evictions int64
	errors    int64

	bytesStored            int64
	entriesStored          int64
	bytesServed            int64
	computeAvoidedEstimate int64

	getLatencies    []time.Duration
	putLatencies    []time.Duration
	deleteLatencies []time.Duration

	operationHits   map[cachekey.OperationType]int64
	operationPuts   map[cachekey.OperationType]int64
	operationMisses map[cachekey.OperationType]int64

	startTime        time.Time
	lastHitTime      time.Time
	lastMissTime     time.Time
	lastEvictionTime time.Time
	lastErrorTime    time.Time

	peakBytesStored   int64
	peakEntriesStored int64
	peakHitRate       float64
}

// NewRecorder creates a Recorder with its clock fields seeded to now.
func NewRecorder() *Recorder {
	now := time.Now()
	return &Recorder{
		startTime:        now,
		lastHitTime:      now,
		lastMissTime:     now,
		lastEvictionTime: now,
		lastErrorTime:    now,
		getLatencies:     make([]time.Duration, 0, maxLatencySamples),
		putLatencies:     make([]time.Duration, 0, maxLatencySamples),
		deleteLatencies:  make([]time.Duration, 0, maxLatencySamples),
		operationHits:    make(map[cachekey.OperationType]int64),
		operationPuts:    make(map[cachekey.OperationType]int64),
		operationMisses:  make(map[cachekey.OperationType]int64),
	}
}

// RecordHit records a cache hit: bytesServed is the size of the layers
// returned, avoiding re-executing the operation.
func (r *Recorder) RecordHit(operation cachekey.OperationType, bytesServed int64, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hits++
	r.bytesServed += bytesServed
	r.computeAvoidedEstimate += bytesServed
	r.lastHitTime = time.Now()
	r.operationHits[operation]++
	r.getLatencies = appendCapped(r.getLatencies, latency)

	if rate := r.hitRateLocked(); rate > r.peakHitRate {
		r.peakHitRate = rate
	}
}

// RecordMiss records a cache miss.
func (r *Recorder) RecordMiss(operation cachekey.OperationType, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.misses++
	r.lastMissTime = time.Now()
	r.operationMisses[operation]++
	r.getLatencies = appendCapped(r.getLatencies, latency)
}

// RecordPut records a successful put.
func (r *Recorder) RecordPut(operation cachekey.OperationType, bytesStored int64, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bytesStored += bytesStored
	r.entriesStored++
	r.operationPuts[operation]++
	r.putLatencies = appendCapped(r.putLatencies, latency)

	if r.bytesStored > r.peakBytesStored {
		r.peakBytesStored = r.bytesStored
	}
	if r.entriesStored > r.peakEntriesStored {
		r.peakEntriesStored = r.entriesStored
	}
}

// RecordEviction records an eviction of bytesEvicted bytes.
func (r *Recorder) RecordEviction(bytesEvicted int64, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictions++
	r.bytesStored -= bytesEvicted
	r.entriesStored--
	if r.entriesStored < 0 {
		r.entriesStored = 0
	}
	r.lastEvictionTime = time.Now()
	r.deleteLatencies = appendCapped(r.deleteLatencies, latency)
}

// RecordError records an operation error.
func (r *Recorder) RecordError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
	r.lastErrorTime = time.Now()
}

func appendCapped(samples []time.Duration, d time.Duration) []time.Duration {
	samples = append(samples, d)
	if len(samples) > maxLatencySamples {
		samples = samples[len(samples)-trimToSamples:]
	}
	return samples
}

func (r *Recorder) hitRateLocked() float64 {
	total := r.hits + r.misses
	if total == 0 {
		return 0
	}
	return float64(r.hits) / float64(total)
}

// Snapshot is a point-in-time, derived view of everything a Recorder has
// accumulated.
type Snapshot struct {
	Hits      int64
	Misses    int64
	HitRate   float64
	Evictions int64
	Errors    int64

	BytesStored            int64
	EntriesStored          int64
	BytesServed            int64
	ComputeAvoidedEstimate int64

	OperationHits   map[cachekey.OperationType]int64
	OperationPuts   map[cachekey.OperationType]int64
	OperationMisses map[cachekey.OperationType]int64

	AverageGetLatency    time.Duration
	AveragePutLatency    time.Duration
	AverageDeleteLatency time.Duration
	P95GetLatency        time.Duration
	P95PutLatency        time.Duration
	P95DeleteLatency     time.Duration

	Uptime                time.Duration
	TimeSinceLastHit      time.Duration
	TimeSinceLastMiss     time.Duration
	TimeSinceLastEviction time.Duration
	TimeSinceLastError    time.Duration

	PeakBytesStored   int64
	PeakEntriesStored int64
	PeakHitRate       float64
}

// Snapshot returns a consistent point-in-time copy of the recorder's
// state.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	avgGet, p95Get := latencyStats(r.getLatencies)
	avgPut, p95Put := latencyStats(r.putLatencies)
	avgDelete, p95Delete := latencyStats(r.deleteLatencies)

	return Snapshot{
		Hits:      r.hits,
		Misses:    r.misses,
		HitRate:   r.hitRateLocked(),
		Evictions: r.evictions,
		Errors:    r.errors,

		BytesStored:            r.bytesStored,
		EntriesStored:          r.entriesStored,
		BytesServed:            r.bytesServed,
		ComputeAvoidedEstimate: r.computeAvoidedEstimate,

		OperationHits:   copyOpCounts(r.operationHits),
		OperationPuts:   copyOpCounts(r.operationPuts),
		OperationMisses: copyOpCounts(r.operationMisses),

		AverageGetLatency:    avgGet,
		AveragePutLatency:    avgPut,
		AverageDeleteLatency: avgDelete,
		P95GetLatency:        p95Get,
		P95PutLatency:        p95Put,
		P95DeleteLatency:     p95Delete,

		Uptime:                now.Sub(r.startTime),
		TimeSinceLastHit:      now.Sub(r.lastHitTime),
		TimeSinceLastMiss:     now.Sub(r.lastMissTime),
		TimeSinceLastEviction: now.Sub(r.lastEvictionTime),
		TimeSinceLastError:    now.Sub(r.lastErrorTime),

		PeakBytesStored:   r.peakBytesStored,
		PeakEntriesStored: r.peakEntriesStored,
		PeakHitRate:       r.peakHitRate,
	}
}

func copyOpCounts(m map[cachekey.OperationType]int64) map[cachekey.OperationType]int64 {
	out := make(map[cachekey.OperationType]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// latencyStats returns the arithmetic mean and P95 of samples, without
// mutating it.
func latencyStats(samples []time.Duration) (avg, p95 time.Duration) {
	if len(samples) == 0 {
		return 0, 0
	}
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	avg = total / time.Duration(len(samples))

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * 0.95)
	p95 = sorted[idx]
	return avg, p95
}

// Reset clears all accumulated metrics, restarting the uptime clock.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.hits, r.misses, r.evictions, r.errors = 0, 0, 0, 0
	r.bytesStored, r.entriesStored, r.bytesServed, r.computeAvoidedEstimate = 0, 0, 0, 0
	r.operationHits = make(map[cachekey.OperationType]int64)
	r.operationPuts = make(map[cachekey.OperationType]int64)
	r.operationMisses = make(map[cachekey.OperationType]int64)
	r.startTime, r.lastHitTime, r.lastMissTime, r.lastEvictionTime, r.lastErrorTime = now, now, now, now, now
	r.peakBytesStored, r.peakEntriesStored, r.peakHitRate = 0, 0, 0
	r.getLatencies = r.getLatencies[:0]
	r.putLatencies = r.putLatencies[:0]
	r.deleteLatencies = r.deleteLatencies[:0]
}

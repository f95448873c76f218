// Package cacheindex implements the cache's single mutable, serialized
// aggregate: the fingerprint→entry mapping, persisted atomically to disk
// with corruption recovery, hit/miss accounting, and LRU/TTL bookkeeping.
package cacheindex

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/jmgilman/buildcache/cachekey"
	"github.com/jmgilman/buildcache/errors"
	atomicfs "github.com/jmgilman/buildcache/fs/atomic"
	"github.com/jmgilman/buildcache/fs/core"
	"github.com/jmgilman/buildcache/logging"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fileName is the index's on-disk name within its configured directory.
const fileName = "index.json"

// schemaVersion is the layout version recorded in the index file; this
// module only ever writes version 1. Loading does not check the stored
// version.
const schemaVersion = 1

// EntryMetadata is the non-descriptor half of a CacheEntry.
type EntryMetadata struct {
	CreatedAt     time.Time         `json:"createdAt"`
	AccessedAt    time.Time         `json:"accessedAt"`
	OperationHash string            `json:"operationHash"`
	Platform      cachekey.Platform `json:"platform"`
	TTL           time.Duration     `json:"ttl,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
}

// IsExpired reports whether the entry has a TTL and it has elapsed as of
// now.
func (m EntryMetadata) IsExpired(now time.Time) bool {
	if m.TTL <= 0 {
		return false
	}
	return now.After(m.CreatedAt.Add(m.TTL))
}

// Entry is a single cache index record: the manifest blob's descriptor,
// plus bookkeeping metadata.
type Entry struct {
	Descriptor ocispec.Descriptor `json:"descriptor"`
	Metadata   EntryMetadata      `json:"metadata"`
}

// Statistics is the index's own aggregate counters (see SPEC_FULL.md §3's
// index state and §4.8). Derived metrics (hit rate, ages, averages) are
// computed on top of these by the metrics package (metrics.FromIndex).
type Statistics struct {
	TotalSize     int64     `json:"totalSize"`
	EntryCount    int       `json:"entryCount"`
	HitCount      int64     `json:"hitCount"`
	MissCount     int64     `json:"missCount"`
	EvictionCount int64     `json:"evictionCount"`
	LastModified  time.Time `json:"lastModified"`
	LastGC        time.Time `json:"lastGC"`
}

// state is the full serialized index document.
type state struct {
	Version    int              `json:"version"`
	Entries    map[string]Entry `json:"entries"`
	Statistics Statistics       `json:"statistics"`
}

func newState() state {
	return state{Version: schemaVersion, Entries: make(map[string]Entry)}
}

// Index is the cache's persisted fingerprint→entry mapping. All exported
// methods are safe for concurrent use; every mutation is flushed to disk
// before the method returns, per I6.
type Index struct {
	mu     sync.RWMutex
	fs     core.FS
	dir    string
	logger *logging.Logger
	state  state
}

// Open loads (or initializes) the index rooted at dir within fs. A
// corrupt index file is quarantined with a ".corrupted" suffix and the
// index starts empty rather than failing to open — a build cache must
// never wedge the build over a damaged index.
func Open(fs core.FS, dir string, logger *logging.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	idx := &Index{fs: fs, dir: dir, logger: logger, state: newState()}
	if err := idx.load(context.Background()); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) indexPath() string {
	return path.Join(i.dir, fileName)
}

func (i *Index) corruptedPath() string {
	return path.Join(i.dir, fileName+".corrupted")
}

func (i *Index) load(ctx context.Context) error {
	exists, err := i.fs.Exists(i.indexPath())
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to check for existing index file")
	}
	if !exists {
		return nil
	}

	data, err := i.fs.ReadFile(i.indexPath())
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to read index file")
	}

	var loaded state
	if err := json.Unmarshal(data, &loaded); err != nil {
		i.logger.Warn(ctx, "index file is corrupt, quarantining and starting empty", "error", err.Error())
		_ = i.fs.Rename(i.indexPath(), i.corruptedPath())
		i.state = newState()
		return nil
	}
	if loaded.Entries == nil {
		loaded.Entries = make(map[string]Entry)
	}
	i.state = loaded
	return nil
}

func (i *Index) save() error {
	data, err := json.Marshal(i.state)
	if err != nil {
		return errors.Wrap(err, errors.CodeEncodingFailed, "failed to marshal index state")
	}
	if err := atomicfs.WriteFile(i.fs, i.indexPath(), data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to persist index")
	}
	return nil
}

func (i *Index) recomputeTotals() {
	var total int64
	for _, e := range i.state.Entries {
		total += e.Descriptor.Size
	}
	i.state.Statistics.TotalSize = total
	i.state.Statistics.EntryCount = len(i.state.Entries)
}

// Put inserts or replaces the entry for fingerprint. entryCount is bumped
// only when fingerprint was not already present, per I5 (a second put with
// an already-indexed fingerprint is the engine's concern to short-circuit;
// Put itself is idempotent at the storage layer too).
func (i *Index) Put(fingerprint string, descriptor ocispec.Descriptor, metadata EntryMetadata) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.state.Entries[fingerprint] = Entry{Descriptor: descriptor, Metadata: metadata}
	i.recomputeTotals()
	i.state.Statistics.LastModified = time.Now()
	return i.save()
}

// Peek returns a copy of the entry for fingerprint without affecting
// accessedAt, hitCount, or missCount. Internal housekeeping (eviction
// candidate scans, orphan detection) must use Peek rather than
// RecordAccess, so that scans never look like a foreground cache access.
func (i *Index) Peek(fingerprint string) (Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	entry, ok := i.state.Entries[fingerprint]
	return entry, ok
}

// RecordAccess is the engine's public get path: on a hit it bumps
// accessedAt and hitCount; on a miss it bumps missCount. Either way the
// mutation is persisted before returning.
func (i *Index) RecordAccess(fingerprint string) (Entry, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.state.Entries[fingerprint]
	if !ok {
		i.state.Statistics.MissCount++
		_ = i.save()
		return Entry{}, false
	}

	entry.Metadata.AccessedAt = time.Now()
	i.state.Entries[fingerprint] = entry
	i.state.Statistics.HitCount++
	_ = i.save()
	return entry, true
}

// Remove deletes the listed fingerprints, bumping evictionCount by the
// number actually present and removed.
func (i *Index) Remove(fingerprints []string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for _, fp := range fingerprints {
		if _, ok := i.state.Entries[fp]; ok {
			delete(i.state.Entries, fp)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	i.state.Statistics.EvictionCount += int64(removed)
	i.recomputeTotals()
	i.state.Statistics.LastModified = time.Now()
	return removed, i.save()
}

// All returns a snapshot mapping of every entry currently indexed.
func (i *Index) All() map[string]Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]Entry, len(i.state.Entries))
	for k, v := range i.state.Entries {
		out[k] = v
	}
	return out
}

// Statistics returns a copy of the index's raw counters.
func (i *Index) Statistics() Statistics {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state.Statistics
}

// RecordGC stamps lastGC as now and persists it. Called by the eviction
// worker after each sweep, hit or not, so callers can observe GC liveness.
func (i *Index) RecordGC(when time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.Statistics.LastGC = when
	return i.save()
}

// ExpiredFingerprints returns every fingerprint whose entry has a TTL that
// has elapsed as of now.
func (i *Index) ExpiredFingerprints(now time.Time) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []string
	for fp, entry := range i.state.Entries {
		if entry.Metadata.IsExpired(now) {
			out = append(out, fp)
		}
	}
	sort.Strings(out)
	return out
}

// LRUOrder returns every fingerprint ordered ascending by accessedAt,
// oldest (least-recently-used) first. Ties are broken by ascending
// createdAt, per the size-eviction tie-break rule.
func (i *Index) LRUOrder() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	fps := make([]string, 0, len(i.state.Entries))
	for fp := range i.state.Entries {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(a, b int) bool {
		ea, eb := i.state.Entries[fps[a]], i.state.Entries[fps[b]]
		if !ea.Metadata.AccessedAt.Equal(eb.Metadata.AccessedAt) {
			return ea.Metadata.AccessedAt.Before(eb.Metadata.AccessedAt)
		}
		return ea.Metadata.CreatedAt.Before(eb.Metadata.CreatedAt)
	})
	return fps
}

// Package eviction implements the cache's two eviction triggers — a
// foreground size-trigger pass run after put, and a background TTL sweep
// — both of which evict through the same manifest-enumerate-then-bulk-delete
// protocol.
package eviction

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jmgilman/buildcache/blobstore"
	"github.com/jmgilman/buildcache/cacheindex"
	"github.com/jmgilman/buildcache/cachekey"
	"github.com/jmgilman/buildcache/config"
	"github.com/jmgilman/buildcache/errors"
	"github.com/jmgilman/buildcache/logging"
	"github.com/jmgilman/buildcache/manifest"
	"github.com/jmgilman/buildcache/metrics"
)

// evictOne fetches fingerprint's manifest to enumerate its layer digests,
// bulk-deletes the manifest blob and every layer from store, and removes
// the fingerprint from idx. Errors from any step are swallowed (per §7,
// eviction is best-effort) after being logged; the caller only learns how
// many bytes were actually freed.
func evictOne(ctx context.Context, idx *cacheindex.Index, store blobstore.Store, fingerprint string, entry cacheindex.Entry, logger *logging.Logger, recorder *metrics.Recorder) int64 {
	manifestDigest, err := manifest.LayerDigest(entry.Descriptor)
	if err != nil {
		logger.Warn(ctx, "eviction: cannot parse manifest digest, dropping index entry only", "fingerprint", fingerprint, "error", err.Error())
		_, _ = idx.Remove([]string{fingerprint})
		return 0
	}

	digests := []cachekey.Digest{manifestDigest}
	if m, err := fetchManifest(ctx, store, manifestDigest); err == nil {
		for _, layer := range m.Layers {
			if d, err := manifest.LayerDigest(layer.Descriptor); err == nil {
				digests = append(digests, d)
			}
		}
	} else {
		logger.Warn(ctx, "eviction: manifest unreadable, deleting manifest blob only", "fingerprint", fingerprint, "error", err.Error())
	}

	_, bytesFreed, err := store.Delete(ctx, digests)
	if err != nil {
		logger.Warn(ctx, "eviction: bulk blob delete failed", "fingerprint", fingerprint, "error", err.Error())
	}

	if _, err := idx.Remove([]string{fingerprint}); err != nil {
		logger.Warn(ctx, "eviction: failed to remove index entry", "fingerprint", fingerprint, "error", err.Error())
	}

	if recorder != nil {
		recorder.RecordEviction(entry.Descriptor.Size, 0)
	}
	return bytesFreed
}

func fetchManifest(ctx context.Context, store blobstore.Store, digest cachekey.Digest) (*manifest.Manifest, error) {
	rc, err := store.Get(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to fetch manifest blob")
	}
	if rc == nil {
		return nil, errors.New(errors.CodeManifestUnreadable, "manifest blob absent from blob store")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to read manifest blob")
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decode manifest blob")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Evict evicts exactly the listed fingerprints through the manifest/blob
// bulk-delete protocol, swallowing per-entry errors (§4.6's evict
// contract). Fingerprints absent from idx are silently skipped.
func Evict(ctx context.Context, idx *cacheindex.Index, store blobstore.Store, fingerprints []string, logger *logging.Logger, recorder *metrics.Recorder) {
	if logger == nil {
		logger = logging.NewNop()
	}
	for _, fingerprint := range fingerprints {
		entry, ok := idx.Peek(fingerprint)
		if !ok {
			continue
		}
		freed := evictOne(ctx, idx, store, fingerprint, entry, logger, recorder)
		logging.Eviction(ctx, logger, fingerprint, freed, "manual")
	}
}

// RunSizeTrigger evicts the least-recently-used entries until idx's total
// size is at or below target. Entries are evicted oldest-accessedAt
// first, ties broken by older createdAt (cacheindex.Index.LRUOrder
// already orders this way). Other configured eviction policies
// (lfu/fifo/ttl/arc) are recognized values but never change this
// behavior — the reference eviction pass is always LRU (SPEC_FULL.md §9).
func RunSizeTrigger(ctx context.Context, idx *cacheindex.Index, store blobstore.Store, target int64, logger *logging.Logger, recorder *metrics.Recorder) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if idx.Statistics().TotalSize <= target {
		return
	}

	for _, fingerprint := range idx.LRUOrder() {
		if idx.Statistics().TotalSize <= target {
			return
		}
		entry, ok := idx.Peek(fingerprint)
		if !ok {
			continue
		}
		freed := evictOne(ctx, idx, store, fingerprint, entry, logger, recorder)
		logging.Eviction(ctx, logger, fingerprint, freed, "size")
	}
}

// RunTTLSweep evicts every entry whose TTL has elapsed as of now, then
// reapplies the size trigger (per SPEC_FULL.md §4.7).
func RunTTLSweep(ctx context.Context, idx *cacheindex.Index, store blobstore.Store, now time.Time, cfg config.Config, logger *logging.Logger, recorder *metrics.Recorder) {
	if logger == nil {
		logger = logging.NewNop()
	}

	for _, fingerprint := range idx.ExpiredFingerprints(now) {
		entry, ok := idx.Peek(fingerprint)
		if !ok {
			continue
		}
		freed := evictOne(ctx, idx, store, fingerprint, entry, logger, recorder)
		logging.Eviction(ctx, logger, fingerprint, freed, "ttl")
	}

	if err := idx.RecordGC(now); err != nil {
		logger.Warn(ctx, "eviction: failed to record GC timestamp", "error", err.Error())
	}

	RunSizeTrigger(ctx, idx, store, cfg.EvictionTarget(), logger, recorder)
}

// Worker runs the background GC loop: it sleeps gcInterval, then performs
// a TTL sweep followed by a size check, checking for cancellation at the
// head of each iteration. It terminates when ctx is cancelled.
func Worker(ctx context.Context, idx *cacheindex.Index, store blobstore.Store, cfg config.Config, logger *logging.Logger, recorder *metrics.Recorder) {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RunTTLSweep(ctx, idx, store, time.Now(), cfg, logger, recorder)
		}
	}
}

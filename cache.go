package buildcache

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jmgilman/buildcache/blobstore"
	"github.com/jmgilman/buildcache/cacheindex"
	"github.com/jmgilman/buildcache/cachekey"
	"github.com/jmgilman/buildcache/compression"
	"github.com/jmgilman/buildcache/config"
	"github.com/jmgilman/buildcache/errors"
	"github.com/jmgilman/buildcache/eviction"
	"github.com/jmgilman/buildcache/fs/core"
	"github.com/jmgilman/buildcache/logging"
	"github.com/jmgilman/buildcache/manifest"
	"github.com/jmgilman/buildcache/metrics"
	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/singleflight"
)

// BuildCache is the public contract described in SPEC_FULL.md §4.6: a
// get/put/has/evict/statistics interface over a fingerprinted,
// manifest-structured, content-addressed store. It orchestrates
// cachekey, compression, blobstore, manifest, cacheindex, eviction, and
// metrics. The zero value is not usable; construct with New.
type BuildCache struct {
	cfg    config.Config
	store  blobstore.Store
	index  *cacheindex.Index
	logger *logging.Logger

	recorder *metrics.Recorder
	writes   singleflight.Group

	cancel context.CancelFunc
	done   chan struct{}
}

// New opens (or initializes) the index under cfg.IndexPath, applies
// cfg.SetDefaults, and starts the background GC worker. Callers MUST call
// Close to stop the worker when the cache is no longer needed.
func New(ctx context.Context, cfg config.Config, fsys core.FS, store blobstore.Store, logger *logging.Logger) (*BuildCache, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "invalid cache configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	index, err := cacheindex.Open(fsys, cfg.IndexPath, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to open cache index")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	bc := &BuildCache{
		cfg:      cfg,
		store:    store,
		index:    index,
		logger:   logger,
		recorder: metrics.NewRecorder(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(bc.done)
		eviction.Worker(workerCtx, bc.index, bc.store, bc.cfg, bc.logger, bc.recorder)
	}()

	return bc, nil
}

// Close stops the background GC worker and waits for it to exit.
func (c *BuildCache) Close() {
	c.cancel()
	<-c.done
}

func (c *BuildCache) fingerprint(key cachekey.CacheKey) (string, error) {
	return cachekey.Fingerprint(key, c.cfg.CacheKeyVersion)
}

// Get looks up (key, operation)'s fingerprint in the index, fetches and
// decodes its manifest and layers, and returns the reconstructed result.
// It never fails to the caller: any internal error, or an orphaned index
// entry whose manifest has vanished, produces a nil result and a logged
// diagnostic.
func (c *BuildCache) Get(ctx context.Context, key cachekey.CacheKey, operation cachekey.OperationType) *CachedResult {
	start := time.Now()
	fp, err := c.fingerprint(key)
	if err != nil {
		c.logger.Error(ctx, "get: failed to compute fingerprint", "error", err.Error())
		c.recorder.RecordError()
		return nil
	}
	log := c.logger.WithOperation(string(operation)).WithFingerprint(fp)

	entry, hit := c.index.RecordAccess(fp)
	if !hit {
		logging.Miss(ctx, c.logger, string(operation), fp, "not indexed")
		c.recorder.RecordMiss(operation, time.Since(start))
		return nil
	}

	manifestDigest, err := manifest.LayerDigest(entry.Descriptor)
	if err != nil {
		log.Warn(ctx, "get: index entry has unparseable manifest digest, dropping", "error", err.Error())
		_, _ = c.index.Remove([]string{fp})
		c.recorder.RecordMiss(operation, time.Since(start))
		return nil
	}

	m, err := c.fetchManifest(ctx, manifestDigest)
	if err != nil {
		log.Warn(ctx, "get: manifest unreadable, collapsing orphaned entry", "error", err.Error())
		_, _ = c.index.Remove([]string{fp})
		c.recorder.RecordMiss(operation, time.Since(start))
		return nil
	}

	result, err := c.assembleResult(ctx, m)
	if err != nil {
		log.Warn(ctx, "get: failed to assemble cached result", "error", err.Error())
		if errors.GetCode(err) == errors.CodeDigestMismatch {
			eviction.Evict(ctx, c.index, c.store, []string{fp}, c.logger, c.recorder)
		}
		c.recorder.RecordMiss(operation, time.Since(start))
		return nil
	}

	logging.Hit(ctx, c.logger, string(operation), fp)
	c.recorder.RecordHit(operation, entry.Descriptor.Size, time.Since(start))
	return result
}

func (c *BuildCache) fetchManifest(ctx context.Context, d cachekey.Digest) (*manifest.Manifest, error) {
	rc, err := c.store.Get(ctx, d)
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

func (c *BuildCache) assembleResult(ctx context.Context, m *manifest.Manifest) (*CachedResult, error) {
	result := &CachedResult{}
	for _, layer := range m.Layers {
		payload, err := c.fetchLayer(ctx, layer.Descriptor)
		if err != nil {
			return nil, err
		}
		switch layer.Type {
		case manifest.LayerSnapshot:
			if err := json.Unmarshal(payload, &result.Snapshot); err != nil {
				return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decode snapshot layer")
			}
		case manifest.LayerEnvironment:
			if err := json.Unmarshal(payload, &result.EnvironmentChanges); err != nil {
				return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decode environment layer")
			}
		case manifest.LayerMetadata:
			if err := json.Unmarshal(payload, &result.MetadataChanges); err != nil {
				return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decode metadata layer")
			}
		}
	}
	return result, nil
}

func (c *BuildCache) fetchLayer(ctx context.Context, descriptor ocispec.Descriptor) ([]byte, error) {
	layerDigest, err := manifest.LayerDigest(descriptor)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to parse layer digest")
	}
	rc, err := c.store.Get(ctx, layerDigest)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to fetch layer blob")
	}
	if rc == nil {
		return nil, errors.Newf(errors.CodeManifestUnreadable, "layer blob %q absent from blob store", layerDigest)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to read layer blob")
	}

	algorithm := manifest.LayerAlgorithm(descriptor)
	if algorithm == "" {
		algorithm = compression.None
	}
	decompressed, err := compression.Decompress(data, algorithm)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decompress layer blob")
	}

	if c.cfg.VerifyIntegrity {
		recomputed, err := cachekey.SHA256.FromBytes(data)
		if err != nil || !recomputed.Equal(layerDigest) {
			return nil, errors.Newf(errors.CodeDigestMismatch, "layer blob %q failed integrity verification", layerDigest)
		}
	}

	return decompressed, nil
}

// Has reports whether key's fingerprint is present in the index. It does
// not touch the blob store and does not affect hit/miss accounting.
func (c *BuildCache) Has(key cachekey.CacheKey) bool {
	fp, err := c.fingerprint(key)
	if err != nil {
		return false
	}
	_, ok := c.index.Peek(fp)
	return ok
}

// Put memoizes result under (key, operation). It is idempotent: a second
// put for an already-indexed fingerprint is a no-op. Put never fails to
// the caller; any error cancels the ingest session and leaves the cache
// state unchanged.
func (c *BuildCache) Put(ctx context.Context, result CachedResult, key cachekey.CacheKey, operation cachekey.OperationType) {
	start := time.Now()
	fp, err := c.fingerprint(key)
	if err != nil {
		c.logger.Error(ctx, "put: failed to compute fingerprint", "error", err.Error())
		c.recorder.RecordError()
		return
	}

	if _, ok := c.index.Peek(fp); ok {
		return
	}

	_, _, _ = c.writes.Do(fp, func() (any, error) {
		if _, ok := c.index.Peek(fp); ok {
			return nil, nil
		}
		c.doPut(ctx, fp, result, key, operation, start)
		return nil, nil
	})
}

func (c *BuildCache) doPut(ctx context.Context, fp string, result CachedResult, key cachekey.CacheKey, operation cachekey.OperationType, start time.Time) {
	log := c.logger.WithOperation(string(operation)).WithFingerprint(fp)

	sessionID, err := c.store.NewIngestSession(ctx)
	if err != nil {
		log.Warn(ctx, "put: failed to open ingest session", "error", err.Error())
		c.recorder.RecordError()
		return
	}

	layers, totalSize, err := c.writeLayers(ctx, sessionID, result)
	if err != nil {
		log.Warn(ctx, "put: failed to write result layers", "error", err.Error())
		_ = c.store.CancelIngestSession(ctx, sessionID)
		c.recorder.RecordError()
		return
	}

	now := time.Now()
	m := manifest.Build(manifest.BuildParams{
		Key:           key,
		OperationType: operation,
		BuildVersion:  c.cfg.CacheKeyVersion,
		KeyVersion:    c.cfg.CacheKeyVersion,
		CreatedAt:     now,
	}, layers)

	manifestSize, manifestDigest, err := c.store.Create(ctx, sessionID, m)
	if err != nil {
		log.Warn(ctx, "put: failed to write manifest blob", "error", err.Error())
		_ = c.store.CancelIngestSession(ctx, sessionID)
		c.recorder.RecordError()
		return
	}

	if _, err := c.store.CompleteIngestSession(ctx, sessionID); err != nil {
		log.Warn(ctx, "put: failed to commit ingest session", "error", err.Error())
		_ = c.store.CancelIngestSession(ctx, sessionID)
		c.recorder.RecordError()
		return
	}

	descriptor := ocispec.Descriptor{
		MediaType: manifest.MediaType,
		Digest:    digest.Digest(manifestDigest.String()),
		Size:      manifestSize,
	}
	meta := cacheindex.EntryMetadata{
		CreatedAt:     now,
		AccessedAt:    now,
		OperationHash: key.OperationDigest.String(),
		Platform:      key.Platform,
		TTL:           c.cfg.DefaultTTL,
	}
	if err := c.index.Put(fp, descriptor, meta); err != nil {
		log.Warn(ctx, "put: failed to record index entry", "error", err.Error())
		c.recorder.RecordError()
		return
	}

	c.recorder.RecordPut(operation, totalSize, time.Since(start))

	if c.index.Statistics().TotalSize > c.cfg.MaxSizeBytes {
		go eviction.RunSizeTrigger(context.Background(), c.index, c.store, c.cfg.EvictionTarget(), c.logger, c.recorder)
	}
}

// writeLayers serializes, compresses, and writes each non-empty result
// component as a blob within sessionID, returning the assembled layer
// list (snapshot first) and the total compressed bytes written.
func (c *BuildCache) writeLayers(ctx context.Context, sessionID string, result CachedResult) ([]manifest.Layer, int64, error) {
	var layers []manifest.Layer
	var total int64

	snapshotLayer, size, err := c.writeComponent(ctx, sessionID, manifest.LayerSnapshot, result.Snapshot)
	if err != nil {
		return nil, 0, err
	}
	layers = append(layers, snapshotLayer)
	total += size

	if len(result.EnvironmentChanges) > 0 {
		layer, size, err := c.writeComponent(ctx, sessionID, manifest.LayerEnvironment, result.EnvironmentChanges)
		if err != nil {
			return nil, 0, err
		}
		layers = append(layers, layer)
		total += size
	}

	if len(result.MetadataChanges) > 0 {
		layer, size, err := c.writeComponent(ctx, sessionID, manifest.LayerMetadata, result.MetadataChanges)
		if err != nil {
			return nil, 0, err
		}
		layers = append(layers, layer)
		total += size
	}

	return layers, total, nil
}

func (c *BuildCache) writeComponent(ctx context.Context, sessionID string, layerType manifest.LayerType, v any) (manifest.Layer, int64, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return manifest.Layer{}, 0, errors.Wrap(err, errors.CodeEncodingFailed, "failed to encode layer payload")
	}

	compressed, algorithm, err := compression.Compress(raw, compression.Config{
		Algorithm: c.cfg.Compression.Algorithm,
		Level:     c.cfg.Compression.Level,
		MinSize:   c.cfg.Compression.MinSize,
	})
	if err != nil {
		return manifest.Layer{}, 0, errors.Wrap(err, errors.CodeEncodingFailed, "failed to compress layer payload")
	}

	size, blobDigest, err := c.store.Write(ctx, sessionID, compressed)
	if err != nil {
		return manifest.Layer{}, 0, errors.Wrap(err, errors.CodeStorageFailed, "failed to write layer blob")
	}

	return manifest.NewLayerDescriptor(layerType, blobDigest, size, algorithm, int64(len(raw))), size, nil
}

// Evict removes the listed keys from the cache, deleting their manifest
// and layer blobs and their index entries. Per-key errors are swallowed.
func (c *BuildCache) Evict(ctx context.Context, keys []cachekey.CacheKey) {
	fingerprints := make([]string, 0, len(keys))
	for _, key := range keys {
		fp, err := c.fingerprint(key)
		if err != nil {
			continue
		}
		fingerprints = append(fingerprints, fp)
	}
	eviction.Evict(ctx, c.index, c.store, fingerprints, c.logger, c.recorder)
}

// Statistics returns the cache's current, derived statistics.
func (c *BuildCache) Statistics() metrics.CacheStatistics {
	return metrics.FromIndex(c.index.Statistics(), c.index.All(), time.Now(), c.recorder.Snapshot())
}

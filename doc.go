// Package buildcache implements a content-addressable build cache: given a
// deterministic operation and its inputs, it memoizes the operation's
// result (a filesystem snapshot plus environment and metadata changes) so
// that repeated builds can skip re-execution when nothing has changed.
//
// The cache is a thin orchestrator over seven collaborating packages:
// cachekey (fingerprinting), compression (layer codecs), blobstore (the
// content-addressed blob store client), manifest (the OCI-style manifest
// layout), cacheindex (the persisted fingerprint index), eviction
// (size/TTL garbage collection), and metrics (statistics).
package buildcache

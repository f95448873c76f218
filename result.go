package buildcache

import "github.com/jmgilman/buildcache/cachekey"

// SnapshotRef is a Snapshot's reference as the cache knows it: the
// snapshot content is opaque to the cache (it is produced and interpreted
// by the executor the cache serves), so the cache only ever stores and
// compares its digest and size.
type SnapshotRef struct {
	Digest cachekey.Digest `json:"digest"`
	Size   int64           `json:"size"`
}

// CachedResult is the memoized output of a single build operation. Any of
// the three components may be empty; Snapshot is the only one guaranteed
// present on a successful get (it is always written by put).
type CachedResult struct {
	Snapshot           SnapshotRef         `json:"snapshot"`
	EnvironmentChanges map[string][]string `json:"environmentChanges,omitempty"`
	MetadataChanges    map[string]string   `json:"metadataChanges,omitempty"`
}

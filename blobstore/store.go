// Package blobstore implements the cache's client of an external
// content-addressed blob store: the ingest-session protocol described in
// the cache's component design, plus a filesystem-backed implementation
// that the engine uses when no other blob store is supplied.
package blobstore

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jmgilman/buildcache/cachekey"
)

// Store is the cache's view of an external content-addressed blob store.
// All operations are safe for concurrent use. Ingest is all-or-nothing per
// session: callers MUST call either CompleteIngestSession or
// CancelIngestSession for every session opened with NewIngestSession, and
// MUST NOT treat any blob as durable until CompleteIngestSession returns.
type Store interface {
	// Get fetches a blob by digest. A nil reader and nil error together mean
	// the digest is absent; callers MUST check for a nil reader before use.
	Get(ctx context.Context, digest cachekey.Digest) (io.ReadCloser, error)

	// Delete best-effort removes the named blobs and reports which were
	// actually present and removed, and how many bytes were freed.
	// Deleting an absent digest is not an error.
	Delete(ctx context.Context, digests []cachekey.Digest) (deleted []cachekey.Digest, bytesFreed int64, err error)

	// NewIngestSession opens a scratch area for a batch of blob writes and
	// returns an opaque session ID.
	NewIngestSession(ctx context.Context) (sessionID string, err error)

	// Write hashes and stores data within sessionID's scratch area, without
	// making it visible outside the session.
	Write(ctx context.Context, sessionID string, data []byte) (size int64, digest cachekey.Digest, err error)

	// Create JSON-serializes v and writes it the same way Write would.
	Create(ctx context.Context, sessionID string, v any) (size int64, digest cachekey.Digest, err error)

	// CompleteIngestSession commits every blob written within sessionID
	// atomically into the durable blob namespace and returns their digests.
	CompleteIngestSession(ctx context.Context, sessionID string) (digests []cachekey.Digest, err error)

	// CancelIngestSession discards sessionID and all of its scratch files.
	// It is safe to call on an already-completed or already-cancelled
	// session.
	CancelIngestSession(ctx context.Context, sessionID string) error
}

// marshalJSON is a seam so Create can be tested with non-standard encoders
// later without changing the interface; today it is exactly json.Marshal.
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

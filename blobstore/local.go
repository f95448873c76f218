package blobstore

import (
	"context"
	"io"
	"os"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/jmgilman/buildcache/cachekey"
	"github.com/jmgilman/buildcache/errors"
	"github.com/jmgilman/buildcache/fs/core"
)

// LocalStore is a Store backed by a core.FS, laying blobs out in a
// content-addressed directory tree ("blobs/<algorithm>/<hex>") and staging
// in-flight writes under a per-session scratch directory
// ("ingest/<session-id>/") until the session is committed.
type LocalStore struct {
	fs   core.FS
	root string

	mu       sync.Mutex
	sessions map[string]*session
}

type pendingBlob struct {
	scratchPath string
	digest      cachekey.Digest
	size        int64
}

type session struct {
	dir    string
	blobs  []pendingBlob
	closed bool
}

// NewLocalStore creates a LocalStore rooted at root within fs. The root and
// its "blobs"/"ingest" subdirectories are created if absent.
func NewLocalStore(fs core.FS, root string) (*LocalStore, error) {
	if fs == nil {
		return nil, errors.New(errors.CodeInvalidInput, "filesystem cannot be nil")
	}
	if root == "" {
		return nil, errors.New(errors.CodeInvalidInput, "blob store root cannot be empty")
	}
	if err := fs.MkdirAll(path.Join(root, "blobs"), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to create blob store root")
	}
	if err := fs.MkdirAll(path.Join(root, "ingest"), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to create blob store ingest area")
	}
	return &LocalStore{fs: fs, root: root, sessions: make(map[string]*session)}, nil
}

func (s *LocalStore) blobPath(digest cachekey.Digest) string {
	return path.Join(s.root, "blobs", string(digest.Algorithm()), digest.Hex())
}

// Get implements Store.
func (s *LocalStore) Get(ctx context.Context, digest cachekey.Digest) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.blobPath(digest)
	exists, err := s.fs.Exists(p)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeStorageFailed, "failed to check blob %q", digest)
	}
	if !exists {
		return nil, nil
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeStorageFailed, "failed to open blob %q", digest)
	}
	return f.(io.ReadCloser), nil
}

// Delete implements Store.
func (s *LocalStore) Delete(ctx context.Context, digests []cachekey.Digest) ([]cachekey.Digest, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var deleted []cachekey.Digest
	var freed int64
	for _, d := range digests {
		p := s.blobPath(d)
		info, err := s.fs.Stat(p)
		if err != nil {
			continue // absent: not an error, nothing to free
		}
		if err := s.fs.Remove(p); err != nil {
			continue // best-effort; a lingering blob is not fatal
		}
		deleted = append(deleted, d)
		freed += info.Size()
	}
	return deleted, freed, nil
}

// NewIngestSession implements Store.
func (s *LocalStore) NewIngestSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	dir := path.Join(s.root, "ingest", id)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, errors.CodeStorageFailed, "failed to create ingest session %q", id)
	}
	s.mu.Lock()
	s.sessions[id] = &session{dir: dir}
	s.mu.Unlock()
	return id, nil
}

func (s *LocalStore) getSession(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.closed {
		return nil, errors.Newf(errors.CodeInvalidInput, "unknown or closed ingest session: %s", sessionID)
	}
	return sess, nil
}

// Write implements Store.
func (s *LocalStore) Write(ctx context.Context, sessionID string, data []byte) (int64, cachekey.Digest, error) {
	if err := ctx.Err(); err != nil {
		return 0, cachekey.Digest{}, err
	}
	sess, err := s.getSession(sessionID)
	if err != nil {
		return 0, cachekey.Digest{}, err
	}

	digest, err := cachekey.SHA256.FromBytes(data)
	if err != nil {
		return 0, cachekey.Digest{}, errors.Wrap(err, errors.CodeEncodingFailed, "failed to compute blob digest")
	}

	scratchPath := path.Join(sess.dir, digest.Hex())
	f, err := s.fs.OpenFile(scratchPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, cachekey.Digest{}, errors.Wrapf(err, errors.CodeStorageFailed, "failed to stage blob %q", digest)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return 0, cachekey.Digest{}, errors.Wrapf(err, errors.CodeStorageFailed, "failed to write blob %q", digest)
	}
	if err := f.Close(); err != nil {
		return 0, cachekey.Digest{}, errors.Wrapf(err, errors.CodeStorageFailed, "failed to finalize blob %q", digest)
	}

	s.mu.Lock()
	sess.blobs = append(sess.blobs, pendingBlob{scratchPath: scratchPath, digest: digest, size: int64(len(data))})
	s.mu.Unlock()

	return int64(len(data)), digest, nil
}

// Create implements Store.
func (s *LocalStore) Create(ctx context.Context, sessionID string, v any) (int64, cachekey.Digest, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return 0, cachekey.Digest{}, errors.Wrap(err, errors.CodeEncodingFailed, "failed to marshal object for ingest")
	}
	return s.Write(ctx, sessionID, data)
}

// CompleteIngestSession implements Store.
func (s *LocalStore) CompleteIngestSession(ctx context.Context, sessionID string) ([]cachekey.Digest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	digests := make([]cachekey.Digest, 0, len(sess.blobs))
	for _, blob := range sess.blobs {
		target := s.blobPath(blob.digest)
		exists, err := s.fs.Exists(target)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeStorageFailed, "failed to check existing blob %q", blob.digest)
		}
		if exists {
			// Content-addressed: identical bytes are already durable under
			// this digest from a previous put. Drop the scratch copy.
			_ = s.fs.Remove(blob.scratchPath)
			digests = append(digests, blob.digest)
			continue
		}
		if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.CodeStorageFailed, "failed to create blob directory for %q", blob.digest)
		}
		if err := s.fs.Rename(blob.scratchPath, target); err != nil {
			return nil, errors.Wrapf(err, errors.CodeStorageFailed, "failed to commit blob %q", blob.digest)
		}
		digests = append(digests, blob.digest)
	}

	s.closeSession(sessionID)
	return digests, nil
}

// CancelIngestSession implements Store.
func (s *LocalStore) CancelIngestSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	_ = s.fs.RemoveAll(sess.dir)
	s.closeSession(sessionID)
	return nil
}

func (s *LocalStore) closeSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.closed = true
		delete(s.sessions, sessionID)
	}
	_ = s.fs.RemoveAll(path.Join(s.root, "ingest", sessionID))
}

var _ Store = (*LocalStore)(nil)

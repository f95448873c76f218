// Package atomic provides all-or-nothing file writes over a core.FS: data is
// written to a sibling temporary file, fsynced, and renamed into place, so a
// reader never observes a partially written file.
package atomic

import (
	"io/fs"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/jmgilman/buildcache/errors"
	"github.com/jmgilman/buildcache/fs/core"
)

var tempSeq uint64
var tempSeqMu sync.Mutex

func nextTempName(target string) string {
	tempSeqMu.Lock()
	tempSeq++
	seq := tempSeq
	tempSeqMu.Unlock()
	dir, base := path.Split(target)
	return path.Join(dir, "."+base+".tmp."+strconv.FormatInt(time.Now().UnixNano(), 36)+"."+strconv.FormatUint(seq, 36))
}

// WriteFile writes data to target atomically: it writes to a temporary
// sibling file, syncs it to stable storage if the filesystem supports that,
// and renames it over target.
func WriteFile(fsys core.FS, target string, data []byte, perm fs.FileMode) error {
	dir := path.Dir(target)
	if dir != "." && dir != "/" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.CodeStorageFailed, "failed to create directory %q", dir)
		}
	}

	tmp := nextTempName(target)
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, errors.CodeStorageFailed, "failed to create temp file %q", tmp)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return errors.Wrapf(err, errors.CodeStorageFailed, "failed to write temp file %q", tmp)
	}

	if syncer, ok := f.(core.Syncer); ok {
		if err := syncer.Sync(); err != nil {
			_ = f.Close()
			_ = fsys.Remove(tmp)
			return errors.Wrapf(err, errors.CodeStorageFailed, "failed to sync temp file %q", tmp)
		}
	}

	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return errors.Wrapf(err, errors.CodeStorageFailed, "failed to close temp file %q", tmp)
	}

	if err := fsys.Rename(tmp, target); err != nil {
		_ = fsys.Remove(tmp)
		return errors.Wrapf(err, errors.CodeStorageFailed, "failed to rename temp file into place at %q", target)
	}

	return nil
}

// Package compression implements the layer-blob codec used when writing and
// reading cache entries: stored-uncompressed, gzip and zstd encoders and
// decoders, plus recognition (without support) of lz4-tagged blobs written
// by a different peer in a mixed fleet.
package compression

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/jmgilman/buildcache/errors"
	"github.com/klauspost/compress/zstd"
)

// Algorithm identifies the compression codec a blob was written with. It is
// recorded verbatim in the manifest layer annotation so a reader knows how
// to decode the bytes without guessing.
type Algorithm string

const (
	// None means the blob is stored as-is.
	None Algorithm = "none"
	Gzip Algorithm = "gzip"
	Zstd Algorithm = "zstd"

	// LZ4 is a recognized algorithm tag this cache never writes itself (no
	// lz4 library is wired into the dependency stack) but will faithfully
	// carry through and refuse to decode if found in a manifest written by
	// a different peer. See Decompress.
	LZ4 Algorithm = "lz4"
)

// Config controls how a layer is compressed when written.
type Config struct {
	// Algorithm is the codec to use. The zero value behaves as None.
	Algorithm Algorithm
	// Level is the codec-specific compression level. Zero selects each
	// codec's default.
	Level int
	// MinSize is the smallest payload, in bytes, worth compressing. Payloads
	// below this threshold are stored uncompressed (Algorithm == None)
	// regardless of the configured Algorithm, since the compression
	// overhead would exceed the saving.
	MinSize int64
}

// Compress encodes data per cfg, returning the encoded bytes and the
// algorithm actually used (which may be None even when cfg.Algorithm is not,
// if data is smaller than cfg.MinSize).
func Compress(data []byte, cfg Config) ([]byte, Algorithm, error) {
	algo := cfg.Algorithm
	if algo == "" {
		algo = None
	}
	if algo == None || int64(len(data)) < cfg.MinSize {
		return data, None, nil
	}

	switch algo {
	case Gzip:
		var buf bytes.Buffer
		level := cfg.Level
		if level == 0 {
			level = gzip.DefaultCompression
		}
		w, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to create gzip writer")
		}
		if _, err := w.Write(data); err != nil {
			return nil, "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to write gzip payload")
		}
		if err := w.Close(); err != nil {
			return nil, "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to finalize gzip payload")
		}
		return buf.Bytes(), Gzip, nil

	case Zstd:
		var buf bytes.Buffer
		w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(cfg.Level)))
		if err != nil {
			return nil, "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to create zstd writer")
		}
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to write zstd payload")
		}
		if err := w.Close(); err != nil {
			return nil, "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to finalize zstd payload")
		}
		return buf.Bytes(), Zstd, nil

	case LZ4:
		// No lz4 encoder is wired into this build; a peer that wants lz4
		// output must write it itself. Refusing here keeps put's
		// best-effort contract rather than producing a mislabeled blob.
		return nil, "", errors.Newf(errors.CodeInvalidInput, "lz4 compression is not supported for writing")

	default:
		return nil, "", errors.Newf(errors.CodeInvalidInput, "unrecognized compression algorithm: %s", algo)
	}
}

// Decompress decodes data that was encoded with algorithm.
//
// lz4 is recognized as a valid manifest annotation value (it round-trips
// through validation) but is refused here: decoding it would require a
// dependency this cache does not carry, so a reader that encounters an
// lz4-tagged layer from another peer treats it the same as any other
// unreadable manifest — a classified, non-fatal error the caller converts
// into a cache miss.
func Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case "", None:
		return data, nil

	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to open gzip reader")
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decompress gzip payload")
		}
		return out, nil

	case Zstd:
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to open zstd reader")
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeManifestUnreadable, "failed to decompress zstd payload")
		}
		return out, nil

	case LZ4:
		return nil, errors.Newf(errors.CodeManifestUnreadable, "lz4-compressed layer cannot be decoded by this build")

	default:
		return nil, errors.Newf(errors.CodeManifestUnreadable, "unrecognized compression algorithm: %s", algorithm)
	}
}

// Recognized reports whether algorithm is a name this codec understands,
// regardless of whether it can actually decode it (see LZ4).
func Recognized(algorithm Algorithm) bool {
	switch algorithm {
	case None, Gzip, Zstd, LZ4:
		return true
	default:
		return false
	}
}

// Package cachekey implements the cache's identity model: content digests,
// target platforms, and the cache key that a fingerprint is derived from.
package cachekey

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"

	"github.com/jmgilman/buildcache/errors"
	digest "github.com/opencontainers/go-digest"
)

// Algorithm identifies the hash function used to produce a Digest.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// hexSize returns the expected length, in hex characters, of a digest
// produced by a, or 0 if a is not a supported algorithm.
func (a Algorithm) hexSize() int {
	switch a {
	case SHA256:
		return 64
	case SHA384:
		return 96
	case SHA512:
		return 128
	default:
		return 0
	}
}

// Available reports whether a is one of the algorithms this package can
// validate and compute.
func (a Algorithm) Available() bool {
	return a.hexSize() != 0
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	default:
		return nil
	}
}

// FromBytes computes the digest of data using algorithm a.
func (a Algorithm) FromBytes(data []byte) (Digest, error) {
	h := a.newHash()
	if h == nil {
		return Digest{}, errors.Newf(errors.CodeInvalidInput, "unsupported digest algorithm: %s", a)
	}
	h.Write(data)
	return Digest{alg: a, hex: strings.ToLower(encodeHex(h.Sum(nil)))}, nil
}

// Digest is a content digest: an algorithm tag paired with the hex-encoded
// hash value of fixed length for that algorithm. Its string form is
// "<algorithm>:<hex>", matching the OCI digest convention.
type Digest struct {
	alg Algorithm
	hex string
}

// NewDigest constructs a Digest from raw hash bytes, validating that len(raw)
// matches the fixed size for alg.
func NewDigest(alg Algorithm, raw []byte) (Digest, error) {
	if !alg.Available() {
		return Digest{}, errors.Newf(errors.CodeInvalidInput, "unsupported digest algorithm: %s", alg)
	}
	hex := encodeHex(raw)
	if len(hex) != alg.hexSize() {
		return Digest{}, errors.Newf(errors.CodeInvalidInput,
			"digest length mismatch for %s: got %d hex characters, want %d", alg, len(hex), alg.hexSize())
	}
	return Digest{alg: alg, hex: hex}, nil
}

// ParseDigest parses a digest string of the form "<algorithm>:<hex>".
//
// Validation of the algorithm/hex shape is delegated to go-digest; this
// package additionally restricts the accepted algorithm set to the three
// fixed-length hashes the cache fingerprint recognizes.
func ParseDigest(s string) (Digest, error) {
	d := digest.Digest(s)
	if err := d.Validate(); err != nil {
		return Digest{}, errors.Wrapf(err, errors.CodeInvalidInput, "invalid digest %q", s)
	}
	alg := Algorithm(d.Algorithm().String())
	if !alg.Available() {
		return Digest{}, errors.Newf(errors.CodeInvalidInput, "unsupported digest algorithm: %s", d.Algorithm())
	}
	return Digest{alg: alg, hex: d.Encoded()}, nil
}

// Algorithm returns the digest's algorithm tag.
func (d Digest) Algorithm() Algorithm { return d.alg }

// Hex returns the lowercase hex-encoded hash value.
func (d Digest) Hex() string { return d.hex }

// IsZero reports whether d is the zero Digest.
func (d Digest) IsZero() bool { return d.alg == "" && d.hex == "" }

// String renders d as "<algorithm>:<hex>".
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return string(d.alg) + ":" + d.hex
}

// Bytes returns the raw (decoded) digest bytes.
func (d Digest) Bytes() []byte {
	b, _ := decodeHex(d.hex)
	return b
}

// Equal reports whether d and other identify the same content.
func (d Digest) Equal(other Digest) bool {
	return d.alg == other.alg && d.hex == other.hex
}

// MarshalText implements encoding.TextMarshaler so Digest can be used
// directly as a JSON/text value.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

const hexDigits = "0123456789abcdef"

func encodeHex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New(errors.CodeInvalidInput, "odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexVal(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexVal(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexVal(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, errors.Newf(errors.CodeInvalidInput, "invalid hex character: %q", b)
	}
}

package cachekey

import (
	"sort"
	"unicode/utf8"

	"github.com/jmgilman/buildcache/errors"
)

// CacheKey is the triple a fingerprint is derived from: the digest of the
// operation being cached, the digests of its inputs, and the target
// platform. Input order is not significant; Fingerprint sorts them.
type CacheKey struct {
	OperationDigest Digest
	InputDigests    []Digest
	Platform        Platform
}

// sortedInputs returns a copy of k.InputDigests sorted by string form, so
// permutations of the same multiset of inputs compare and hash identically.
func (k CacheKey) sortedInputs() []Digest {
	sorted := append([]Digest(nil), k.InputDigests...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}

// Fingerprint derives the stable identity of a CacheKey under the given
// cache-key version. It is deterministic and insensitive to input-digest
// ordering, and sensitive to any change in the operation digest, any input
// digest, the platform tuple, or keyVersion.
//
// The only failure mode is a key-version that cannot be rendered as UTF-8;
// this never happens in normal operation since keyVersion is a
// program-configured constant, but the signature stays honest about it.
func Fingerprint(key CacheKey, keyVersion string) (string, error) {
	if !utf8.ValidString(keyVersion) {
		return "", errors.New(errors.CodeEncodingFailed, "cache key version is not valid UTF-8")
	}

	platformJSON, err := canonicalPlatformJSON(key.Platform)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeEncodingFailed, "failed to canonicalize platform for fingerprinting")
	}

	h := SHA256.newHash()
	h.Write([]byte(keyVersion))
	h.Write(key.OperationDigest.Bytes())
	for _, d := range key.sortedInputs() {
		h.Write(d.Bytes())
	}
	h.Write(platformJSON)

	return "sha256:" + encodeHex(h.Sum(nil)), nil
}

package manifest

import (
	"strconv"

	"github.com/jmgilman/buildcache/cachekey"
	digest "github.com/opencontainers/go-digest"
)

// ociDigest renders a cachekey.Digest as the digest.Digest type the OCI
// descriptor shape expects.
func ociDigest(d cachekey.Digest) digest.Digest {
	return digest.Digest(d.String())
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

package compression

import (
	"strings"
	"testing"

	"github.com/jmgilman/buildcache/errors"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompress_RoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200))

	for _, algo := range []Algorithm{None, Gzip, Zstd} {
		t.Run(string(algo), func(t *testing.T) {
			out, used, err := Compress(payload, Config{Algorithm: algo})
			require.NoError(t, err)
			require.Equal(t, algo, used)

			back, err := Decompress(out, used)
			require.NoError(t, err)
			require.Equal(t, payload, back)
		})
	}
}

func TestCompress_BelowMinSizeStoresUncompressed(t *testing.T) {
	payload := []byte("tiny")
	out, used, err := Compress(payload, Config{Algorithm: Zstd, MinSize: 1024})
	require.NoError(t, err)
	require.Equal(t, None, used)
	require.Equal(t, payload, out)
}

func TestCompress_LZ4Refused(t *testing.T) {
	_, _, err := Compress([]byte("data"), Config{Algorithm: LZ4})
	require.Error(t, err)
	require.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestDecompress_LZ4Refused(t *testing.T) {
	_, err := Decompress([]byte("data"), LZ4)
	require.Error(t, err)
	require.Equal(t, errors.CodeManifestUnreadable, errors.GetCode(err))
}

func TestRecognized(t *testing.T) {
	require.True(t, Recognized(LZ4))
	require.True(t, Recognized(None))
	require.False(t, Recognized(Algorithm("brotli")))
}

func TestDecompress_UnknownAlgorithm(t *testing.T) {
	_, err := Decompress([]byte("data"), Algorithm("brotli"))
	require.Error(t, err)
}

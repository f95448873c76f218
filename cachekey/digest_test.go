package cachekey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDigest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid sha256",
			input: "sha256:" + repeatHex("a", 64),
		},
		{
			name:  "valid sha512",
			input: "sha512:" + repeatHex("b", 128),
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing algorithm separator",
			input:   "deadbeef",
			wantErr: true,
		},
		{
			name:    "unsupported algorithm",
			input:   "sha1:" + repeatHex("a", 40),
			wantErr: true,
		},
		{
			name:    "wrong length for algorithm",
			input:   "sha256:" + repeatHex("a", 10),
			wantErr: true,
		},
		{
			name:    "non-hex characters",
			input:   "sha256:" + repeatHex("z", 64),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDigest(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.input, d.String())
		})
	}
}

func TestDigest_FromBytes_RoundTrip(t *testing.T) {
	d, err := SHA256.FromBytes([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, SHA256, d.Algorithm())
	require.Len(t, d.Hex(), 64)

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	require.True(t, d.Equal(parsed))
}

func TestDigest_Equal(t *testing.T) {
	a, err := SHA256.FromBytes([]byte("x"))
	require.NoError(t, err)
	b, err := SHA256.FromBytes([]byte("x"))
	require.NoError(t, err)
	c, err := SHA256.FromBytes([]byte("y"))
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestDigest_TextMarshaling(t *testing.T) {
	d, err := SHA256.FromBytes([]byte("marshal me"))
	require.NoError(t, err)

	text, err := d.MarshalText()
	require.NoError(t, err)

	var roundTripped Digest
	require.NoError(t, roundTripped.UnmarshalText(text))
	require.True(t, d.Equal(roundTripped))
}

func TestNewDigest_LengthMismatch(t *testing.T) {
	_, err := NewDigest(SHA256, []byte{0x01, 0x02})
	require.Error(t, err)
}

func repeatHex(ch string, n int) string {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ch[0])
	}
	return string(out)
}

package lzf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("quicklist-node-payload-", 64))

	for _, kind := range []Kind{None, LZ4, S2, Zstd} {
		t.Run(kind.String(), func(t *testing.T) {
			codec, err := New(kind)
			require.NoError(t, err)

			compressed, err := codec.Compress(data)
			require.NoError(t, err)

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, data, decompressed)
		})
	}
}

func TestCodecs_EmptyInput(t *testing.T) {
	for _, kind := range []Kind{None, LZ4, S2, Zstd} {
		codec, err := New(kind)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)

		_, err = codec.Decompress(compressed)
		require.NoError(t, err)
	}
}

func TestNotSmallerEnough(t *testing.T) {
	require.True(t, NotSmallerEnough(100, 108))
	require.True(t, NotSmallerEnough(100, 120))
	require.False(t, NotSmallerEnough(100, 107))
	require.False(t, NotSmallerEnough(100, 10))
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(Kind(255))
	require.Error(t, err)
}

package varint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUvarint_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 12, 13, 127, 128, 255, 16384, 1 << 40, ^uint64(0)}

	for _, v := range values {
		buf := PutUvarint(nil, v)
		require.Equal(t, UvarintLen(v), len(buf))

		got, n, ok := Uvarint(buf)
		require.True(t, ok)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestVarint_RoundTrip_SignedRange(t *testing.T) {
	values := []int64{-1 << 63, -1 << 32, -1 << 16, -256, -1, 0, 1, 12, 13, 255, 1 << 16, 1 << 32, 1<<63 - 1}

	for _, v := range values {
		buf := PutVarint(nil, v)
		got, n, ok := Varint(buf)
		require.True(t, ok)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestUvarint_Truncated(t *testing.T) {
	buf := PutUvarint(nil, 1<<40)
	_, _, ok := Uvarint(buf[:len(buf)-1])
	require.False(t, ok)
}

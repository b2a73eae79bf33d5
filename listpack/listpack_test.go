package listpack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/alloc"
)

func TestAppendAndGet(t *testing.T) {
	a := alloc.New()
	l := New(a, 0)

	l.Append([]byte("hello"))
	l.Append([]byte("42"))
	l.Append([]byte("world"))

	_, s, isInt, ok := l.Get(0)
	require.True(t, ok)
	require.False(t, isInt)
	require.Equal(t, "hello", string(s))

	iv, _, isInt, ok := l.Get(1)
	require.True(t, ok)
	require.True(t, isInt)
	require.EqualValues(t, 42, iv)

	require.Equal(t, 3, l.Length())
	require.NoError(t, l.ValidateIntegrity(true))
}

func TestIntegerRoundTrip_BoundaryValues(t *testing.T) {
	a := alloc.New()
	l := New(a, 0)

	values := []int64{-1 << 63, -1 << 32, -1 << 16, -256, -1, 0, 1, 12, 13, 255, 1 << 16, 1 << 32, 1<<63 - 1}
	for _, v := range values {
		l.Append([]byte(itoa(v)))
	}

	for i, v := range values {
		iv, _, isInt, ok := l.Get(i)
		require.True(t, ok)
		require.True(t, isInt, "value %d", v)
		require.Equal(t, v, iv)
	}

	require.NoError(t, l.ValidateIntegrity(true))
}

func itoa(v int64) string {
	neg := v < 0

	u := uint64(v)
	if neg {
		u = uint64(-v)
	}

	var buf [20]byte
	i := len(buf)

	if u == 0 {
		i--
		buf[i] = '0'
	}

	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}

func TestInsertBeforeAfterReplace(t *testing.T) {
	a := alloc.New()
	l := New(a, 0)

	l.Append([]byte("a"))
	l.Append([]byte("c"))

	require.NoError(t, l.Insert(1, Before, []byte("b")))
	_, s, _, _ := l.Get(1)
	require.Equal(t, "b", string(s))

	require.NoError(t, l.Insert(0, After, []byte("a2")))
	_, s, _, _ = l.Get(1)
	require.Equal(t, "a2", string(s))

	require.NoError(t, l.Insert(0, Replace, []byte("A")))
	_, s, _, _ = l.Get(0)
	require.Equal(t, "A", string(s))

	require.NoError(t, l.ValidateIntegrity(true))
}

func TestDelete_IsLocalNoCascade(t *testing.T) {
	a := alloc.New()
	l := New(a, 0)

	for _, s := range []string{"a", "b", "c", "d"} {
		l.Append([]byte(s))
	}

	require.NoError(t, l.Delete(1))
	require.Equal(t, 3, l.Length())

	_, s, _, _ := l.Get(1)
	require.Equal(t, "c", string(s))

	require.NoError(t, l.ValidateIntegrity(true))
}

func TestSeek_ScansFromNearerEnd(t *testing.T) {
	a := alloc.New()
	l := New(a, 0)

	for i := 0; i < 10; i++ {
		l.Append([]byte(itoa(int64(i))))
	}

	for i := 0; i < 10; i++ {
		iv, _, isInt, ok := l.Seek(i)
		require.True(t, ok)
		require.True(t, isInt)
		require.EqualValues(t, i, iv)
	}
}

func TestValidateIntegrity_DetectsTrailerCorruption(t *testing.T) {
	a := alloc.New()
	l := New(a, 0)
	l.Append([]byte("hello"))

	l.buf[len(l.buf)-2] ^= 0xFF // corrupt the reverse-length trailer

	require.Error(t, l.ValidateIntegrity(true))
}

func TestShrinkToFit(t *testing.T) {
	a := alloc.New()
	l := New(a, 256)
	l.Append([]byte("x"))

	l.ShrinkToFit()
	require.Equal(t, int(l.totalBytes()), len(l.buf))
}

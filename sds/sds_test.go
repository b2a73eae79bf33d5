package sds

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/alloc"
)

func TestMake_ChoosesNarrowestHeader(t *testing.T) {
	a := alloc.New()

	short := Make(a, []byte("hi"))
	require.Equal(t, w5, short.w)
	require.Equal(t, 2, short.Len())
	require.Equal(t, 0, short.Avail())

	long := Make(a, make([]byte, 100))
	require.Equal(t, w8, long.w)
	require.Equal(t, 100, long.Len())
}

func TestBinarySafeRoundTrip(t *testing.T) {
	a := alloc.New()

	data := []byte("abc\x00def")
	s := Make(a, data)

	require.Equal(t, data, s.Bytes())
	require.Equal(t, len(data), s.Len())
}

func TestAppend_GrowsAndPreservesContent(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("hello"))
	s.Append([]byte(" world"))

	require.Equal(t, "hello world", string(s.Bytes()))
	require.Equal(t, 11, s.Len())
}

func TestAppend_NeverDowngradesHeaderBelowW8(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("short"))
	require.Equal(t, w5, s.w)

	s.Append([]byte("!"))
	require.NotEqual(t, w5, s.w, "appending must widen past the capacity-less 5-bit header")
	require.Equal(t, "short!", string(s.Bytes()))
}

func TestMakeRoomFor_DoublesBelowOneMiB(t *testing.T) {
	a := alloc.New()

	s := makeWithCap(a, []byte("x"), 10)
	s.MakeRoomFor(20)

	require.GreaterOrEqual(t, s.Avail(), 41)
}

func TestAppendInt64(t *testing.T) {
	a := alloc.New()

	s := Make(a, nil)
	s.AppendInt64(-42)

	require.Equal(t, "-42", string(s.Bytes()))
}

func TestTrim(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("  padded  "))
	s.Trim(" ")

	require.Equal(t, "padded", string(s.Bytes()))
}

func TestRange(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("hello world"))
	s.Range(0, 4)

	require.Equal(t, "hello", string(s.Bytes()))
}

func TestRange_NegativeIndices(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("hello world"))
	s.Range(-5, -1)

	require.Equal(t, "world", string(s.Bytes()))
}

func TestCompare(t *testing.T) {
	a := alloc.New()

	require.Equal(t, -1, Make(a, []byte("abc")).Compare(Make(a, []byte("abd"))))
	require.Equal(t, 0, Make(a, []byte("abc")).Compare(Make(a, []byte("abc"))))
}

func TestSplit(t *testing.T) {
	a := alloc.New()

	parts := Make(a, []byte("a,b,c")).Split(",")
	require.Len(t, parts, 3)
	require.Equal(t, "b", string(parts[1].Bytes()))
}

func TestToLowerToUpper(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("MixedCase"))
	s.ToLower()
	require.Equal(t, "mixedcase", string(s.Bytes()))

	s.ToUpper()
	require.Equal(t, "MIXEDCASE", string(s.Bytes()))
}

func TestCatRepr_EscapesControlBytes(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("a\nb\x00c"))
	require.Equal(t, `"a\nb\x00c"`, s.CatRepr())
}

func TestShrinkToFit_IsIdempotent(t *testing.T) {
	a := alloc.New()

	s := makeWithCap(a, []byte("hi"), 64)
	require.Positive(t, s.Avail())

	s.ShrinkToFit()
	require.Equal(t, 0, s.Avail())

	before := s.buf
	s.ShrinkToFit()
	require.Equal(t, before, s.buf, "second call must be a no-op")
}

func TestDup_IsIndependentCopy(t *testing.T) {
	a := alloc.New()

	s := Make(a, []byte("original"))
	d := s.Dup()

	d.Append([]byte("-copy"))

	require.Equal(t, "original", string(s.Bytes()))
	require.Equal(t, "original-copy", string(d.Bytes()))
}

package intset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/alloc"
)

func TestAdd_KeepsSortedOrder(t *testing.T) {
	a := alloc.New()
	s := New(a)

	for _, v := range []int64{5, 1, 3, 2, 4} {
		s.Add(v)
	}

	require.Equal(t, []int64{1, 2, 3, 4, 5}, s.Values())
}

func TestAdd_Duplicate_IsNoop(t *testing.T) {
	a := alloc.New()
	s := New(a)

	s.Add(1)
	s.Add(1)

	require.Equal(t, 1, s.Len())
}

func TestAdd_PromotesEncoding(t *testing.T) {
	a := alloc.New()
	s := New(a)

	s.Add(1)
	s.Add(2)
	require.EqualValues(t, 2, s.encoding())

	s.Add(1 << 20) // needs 32-bit
	require.EqualValues(t, 4, s.encoding())
	require.Equal(t, []int64{1, 2, 1 << 20}, s.Values())

	s.Add(int64(1) << 40) // needs 64-bit
	require.EqualValues(t, 8, s.encoding())
	require.Equal(t, []int64{1, 2, 1 << 20, 1 << 40}, s.Values())
}

func TestRemove_NeverNarrowsEncoding(t *testing.T) {
	a := alloc.New()
	s := New(a)

	s.Add(1)
	s.Add(int64(1) << 40)
	require.EqualValues(t, 8, s.encoding())

	s.Remove(int64(1) << 40)
	require.EqualValues(t, 8, s.encoding(), "promote-only: encoding must not shrink")
	require.Equal(t, []int64{1}, s.Values())
}

func TestContains(t *testing.T) {
	a := alloc.New()
	s := New(a)

	s.Add(10)
	s.Add(20)

	require.True(t, s.Contains(10))
	require.False(t, s.Contains(15))
	require.False(t, s.Contains(1<<40))
}

func TestRemove_Absent_ReturnsFalse(t *testing.T) {
	a := alloc.New()
	s := New(a)
	s.Add(1)

	require.False(t, s.Remove(99))
	require.Equal(t, 1, s.Len())
}

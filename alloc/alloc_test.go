package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlloc_AccountsRoundedBytes(t *testing.T) {
	a := New()

	b := a.Alloc(10)
	require.Len(t, b, 10)
	require.EqualValues(t, 16, a.UsedBytes())
	require.EqualValues(t, 16, a.PeakBytes())

	a.Free(b)
	require.EqualValues(t, 0, a.UsedBytes())
	require.EqualValues(t, 16, a.PeakBytes(), "peak does not decrease")
}

func TestTryAlloc_RespectsLimit(t *testing.T) {
	a := New()
	a.SetLimit(16)

	b1 := a.TryAlloc(10) // rounds to 16
	require.NotNil(t, b1)

	b2 := a.TryAlloc(1) // would push used to 24 > limit
	require.Nil(t, b2)
}

func TestAlloc_InvokesOOMHandler(t *testing.T) {
	a := New()
	a.SetLimit(8)

	var gotRequested int
	a.SetOOMHandler(func(requested int) { gotRequested = requested })

	got := a.Alloc(100)
	require.Nil(t, got)
	require.Equal(t, 100, gotRequested)
}

func TestAlloc_DefaultOOMHandlerPanics(t *testing.T) {
	a := New()
	a.SetLimit(1)

	require.Panics(t, func() {
		a.Alloc(100)
	})
}

func TestRealloc_AdjustsAccounting(t *testing.T) {
	a := New()

	b := a.Alloc(10)
	require.EqualValues(t, 16, a.UsedBytes())

	b = a.Realloc(b, 100)
	require.Len(t, b, 100)
	require.EqualValues(t, 104, a.UsedBytes())

	a.Free(b)
	require.EqualValues(t, 0, a.UsedBytes())
}

func TestUsableSize(t *testing.T) {
	a := New()
	b := a.Alloc(10)
	require.Equal(t, 16, a.UsableSize(b))
}

package shared

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/object"
)

func TestNew_PopulatesOKAndNullBulkFrozen(t *testing.T) {
	r := New(alloc.New(), object.DefaultThresholds())

	require.Equal(t, "OK", string(object.StringBytes(r.OK())))
	require.EqualValues(t, object.RefcountShared, r.OK().Refcount())

	require.Equal(t, "", string(object.StringBytes(r.NullBulk())))
	require.EqualValues(t, object.RefcountShared, r.NullBulk().Refcount())
}

func TestSmallInt_CachesWithinRangeAndMissesOutside(t *testing.T) {
	thresholds := object.DefaultThresholds()
	thresholds.SharedIntMax = 100
	r := New(alloc.New(), thresholds)

	h, ok := r.SmallInt(42)
	require.True(t, ok)
	require.Equal(t, "42", string(object.StringBytes(h)))
	require.EqualValues(t, object.RefcountShared, h.Refcount())

	_, ok = r.SmallInt(100)
	require.False(t, ok)

	_, ok = r.SmallInt(-1)
	require.False(t, ok)
}

func TestSmallInt_DecrefIsNoOpOnSharedHeader(t *testing.T) {
	r := New(alloc.New(), object.DefaultThresholds())

	h, ok := r.SmallInt(7)
	require.True(t, ok)

	h.DecRef()
	h.DecRef()
	require.EqualValues(t, object.RefcountShared, h.Refcount())

	// Fetching again must return the same still-usable header.
	again, ok := r.SmallInt(7)
	require.True(t, ok)
	require.Equal(t, "7", string(object.StringBytes(again)))
}

func TestBulkHeader_BuildsOnceAndCaches(t *testing.T) {
	r := New(alloc.New(), object.DefaultThresholds())

	h1 := r.BulkHeader(512)
	h2 := r.BulkHeader(512)
	require.Same(t, h1, h2)
	require.Equal(t, "512", string(object.StringBytes(h1)))
}

func TestErrPrefix_BuildsOnceAndCaches(t *testing.T) {
	r := New(alloc.New(), object.DefaultThresholds())

	h1 := r.ErrPrefix("WRONGTYPE")
	h2 := r.ErrPrefix("WRONGTYPE")
	require.Same(t, h1, h2)
	require.NotSame(t, h1, r.ErrPrefix("ERR"))
}

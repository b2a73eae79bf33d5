package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_BuildsUsableContext(t *testing.T) {
	c := New()

	require.NotNil(t, c.Alloc)
	require.NotNil(t, c.Rand)
	require.NotNil(t, c.Shared)
	require.True(t, c.ResizeEnabled())

	_, ok := c.Shared.SmallInt(5)
	require.True(t, ok)
}

func TestWithResizeDisabled_PropagatesToNewHashtables(t *testing.T) {
	c := New(WithResizeDisabled())
	require.False(t, c.ResizeEnabled())

	tbl := c.NewHashtable()
	require.NotNil(t, tbl)
}

func TestWithAllocLimit_EnforcesCeiling(t *testing.T) {
	c := New(WithAllocLimit(64))

	got := c.Alloc.TryAlloc(1 << 20)
	require.Nil(t, got)
}

func TestSetResizeEnabled_TogglesAtRuntime(t *testing.T) {
	c := New()
	require.True(t, c.ResizeEnabled())

	c.SetResizeEnabled(false)
	require.False(t, c.ResizeEnabled())
}

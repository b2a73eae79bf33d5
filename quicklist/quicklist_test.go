package quicklist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/alloc"
)

func values(l *List) []string {
	out := make([]string, 0, l.Len())

	for i := 0; i < l.Len(); i++ {
		iv, s, isInt, ok := l.Get(i)
		if !ok {
			panic("quicklist: Get failed during test enumeration")
		}

		if isInt {
			out = append(out, fmt.Sprintf("%d", iv))
		} else {
			out = append(out, string(s))
		}
	}

	return out
}

func TestPush_AppendsInOrder(t *testing.T) {
	l, err := New(alloc.New())
	require.NoError(t, err)

	l.Push([]byte("a"))
	l.Push([]byte("b"))
	l.Push([]byte("c"))

	require.Equal(t, []string{"a", "b", "c"}, values(l))
	require.Equal(t, 3, l.Len())
}

func TestPush_SplitsAcrossNodesUnderFillBudget(t *testing.T) {
	// fill 4 caps each node at 4 entries, forcing multiple nodes.
	l, err := New(alloc.New(), WithFill(4))
	require.NoError(t, err)

	for i := 0; i < 17; i++ {
		l.Push([]byte(fmt.Sprintf("entry-%02d", i)))
	}

	require.Equal(t, 17, l.Len())
	require.Greater(t, l.NodeCount(), 1)

	for i := 0; i < 17; i++ {
		iv, s, isInt, ok := l.Get(i)
		require.True(t, ok)
		require.False(t, isInt)
		require.Equal(t, fmt.Sprintf("entry-%02d", i), string(s))
		_ = iv
	}
}

func TestPushHead_Prepends(t *testing.T) {
	l, err := New(alloc.New())
	require.NoError(t, err)

	l.Push([]byte("middle"))
	l.PushHead([]byte("first"))

	require.Equal(t, []string{"first", "middle"}, values(l))
}

func TestInsert_AtMiddleSplitsNode(t *testing.T) {
	l, err := New(alloc.New(), WithFill(3))
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		l.Push([]byte(fmt.Sprintf("%d", i)))
	}

	require.NoError(t, l.Insert(4, []byte("X")))

	got := values(l)
	require.Equal(t, []string{"0", "1", "2", "3", "X", "4", "5", "6", "7", "8"}, got)
	require.Equal(t, 10, l.Len())
}

func TestInsert_SplitDoesNotMergeWithFullNeighbours(t *testing.T) {
	// Three nodes, each already at the fill cap. Splitting the middle
	// one must not fold either half back into a full neighbour.
	l, err := New(alloc.New(), WithFill(4))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		l.Push([]byte(fmt.Sprintf("%02d", i)))
	}
	require.Equal(t, 3, l.NodeCount())

	require.NoError(t, l.Insert(6, []byte("X")))

	require.Equal(t, 13, l.Len())
	require.Greater(t, l.NodeCount(), 3)

	got := values(l)
	want := []string{"00", "01", "02", "03", "04", "05", "X", "06", "07", "08", "09", "10", "11"}
	require.Equal(t, want, got)
}

func TestInsert_AtHeadAndTail(t *testing.T) {
	l, err := New(alloc.New())
	require.NoError(t, err)

	l.Push([]byte("b"))
	require.NoError(t, l.Insert(0, []byte("a")))
	require.NoError(t, l.Insert(2, []byte("c")))

	require.Equal(t, []string{"a", "b", "c"}, values(l))
}

func TestDeleteRange_RemovesWholeNodesAndPartials(t *testing.T) {
	l, err := New(alloc.New(), WithFill(3))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		l.Push([]byte(fmt.Sprintf("%d", i)))
	}

	require.NoError(t, l.DeleteRange(2, 5))

	require.Equal(t, []string{"0", "1", "7", "8", "9"}, values(l))
	require.Equal(t, 5, l.Len())
}

func TestDeleteRange_EntireList(t *testing.T) {
	l, err := New(alloc.New(), WithFill(2))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		l.Push([]byte(fmt.Sprintf("%d", i)))
	}

	require.NoError(t, l.DeleteRange(0, 6))

	require.Equal(t, 0, l.Len())
	require.Equal(t, 0, l.NodeCount())
}

func TestCompression_RoundTripsThroughNoOpAndRealCodec(t *testing.T) {
	l, err := New(alloc.New(), WithFill(2), WithCompress(1))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		l.Push([]byte(fmt.Sprintf("value-%02d", i)))
	}

	// Interior nodes should have been compressed by rebalanceCompression;
	// reading every entry back forces transparent decompression.
	for i := 0; i < 12; i++ {
		_, s, _, ok := l.Get(i)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("value-%02d", i), string(s))
	}
}

func TestBookmark_AdvancesPastDeletedNode(t *testing.T) {
	l, err := New(alloc.New(), WithFill(2))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		l.Push([]byte(fmt.Sprintf("%d", i)))
	}

	require.NoError(t, l.Bookmark("cursor", 2))
	bm := l.BookmarkNode("cursor")
	require.NotNil(t, bm)

	require.NoError(t, l.DeleteRange(2, 2))

	require.NotNil(t, l.BookmarkNode("cursor"))
}

func TestLocate_OutOfRange(t *testing.T) {
	l, err := New(alloc.New())
	require.NoError(t, err)

	l.Push([]byte("only"))

	_, _, _, ok := l.Get(5)
	require.False(t, ok)
}

package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/korand"
	"github.com/corekv/corekv/skiplist"
)

func TestLegal_EnforcesPerTypeEncodings(t *testing.T) {
	require.True(t, Legal(TypeString, EncodingInt))
	require.False(t, Legal(TypeString, EncodingQuicklist))
	require.True(t, Legal(TypeList, EncodingQuicklist))
	require.False(t, Legal(TypeSet, EncodingZiplist))
}

func TestNewHeader_PanicsOnIllegalEncoding(t *testing.T) {
	require.Panics(t, func() {
		newHeader(TypeString, EncodingQuicklist, nil)
	})
}

func TestClock_LRUAndLFURoundTrip(t *testing.T) {
	lru := NewLRUClock(0x00ABCDEF)
	require.Equal(t, uint32(0x00ABCDEF)&clockMask, lru.LRUTime())

	lfu := NewLFUClock(1234, 7)
	at, cnt := lfu.LFUFields()
	require.Equal(t, uint16(1234), at)
	require.Equal(t, uint8(7), cnt)
}

func TestRefcount_IncDecAndDestructorOnZero(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("a string long enough to need the RAW encoding for sure"), DefaultThresholds())
	require.Equal(t, EncodingRaw, h.Encoding)
	require.Greater(t, a.UsedBytes(), int64(0))

	h.IncRef()
	require.EqualValues(t, 2, h.Refcount())

	h.DecRef()
	require.EqualValues(t, 1, h.Refcount())
	require.Greater(t, a.UsedBytes(), int64(0), "body must still be live at refcount 1")

	h.DecRef()
	require.EqualValues(t, 0, h.Refcount())
	require.Zero(t, a.UsedBytes(), "destructor must release the backing buffer")
}

func TestRefcount_SharedAndStackAreNoOps(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("x"), DefaultThresholds())
	h.Freeze()

	h.DecRef()
	h.DecRef()
	require.EqualValues(t, RefcountShared, h.Refcount())

	h.IncRef()
	require.EqualValues(t, RefcountShared, h.Refcount())
}

func TestRefcount_PanicsOnDecrefBelowZero(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("x"), DefaultThresholds())
	h.DecRef()

	require.Panics(t, func() { h.DecRef() })
}

func TestNewString_ChoosesNarrowestEncoding(t *testing.T) {
	a := alloc.New()
	thresholds := DefaultThresholds()

	intHeader := NewString(a, []byte("12345"), thresholds)
	require.Equal(t, EncodingInt, intHeader.Encoding)
	require.Equal(t, "12345", string(StringBytes(intHeader)))

	// Leading zero breaks the canonical round trip, so it must not be
	// folded to INT even though it parses as one.
	notCanonical := NewString(a, []byte("0123"), thresholds)
	require.NotEqual(t, EncodingInt, notCanonical.Encoding)

	embHeader := NewString(a, []byte("short string"), thresholds)
	require.Equal(t, EncodingEmbstr, embHeader.Encoding)

	long := make([]byte, thresholds.EmbstrMaxLen+1)
	for i := range long {
		long[i] = 'x'
	}

	rawHeader := NewString(a, long, thresholds)
	require.Equal(t, EncodingRaw, rawHeader.Encoding)
}

func TestStringAppend_PromotesToRaw(t *testing.T) {
	a := alloc.New()
	thresholds := DefaultThresholds()

	h := NewString(a, []byte("42"), thresholds)
	require.Equal(t, EncodingInt, h.Encoding)

	StringAppend(a, h, []byte("x"))
	require.Equal(t, EncodingRaw, h.Encoding)
	require.Equal(t, "42x", string(StringBytes(h)))
}

func TestSetAdd_PromotesToHashtableOnNonInteger(t *testing.T) {
	a := alloc.New()
	h := NewSet(a)
	thresholds := DefaultThresholds()

	SetAdd(a, h, []byte("1"), thresholds)
	SetAdd(a, h, []byte("2"), thresholds)
	require.Equal(t, EncodingIntset, h.Encoding)

	SetAdd(a, h, []byte("not-an-int"), thresholds)
	require.Equal(t, EncodingHashtable, h.Encoding)
	require.Equal(t, 3, SetCard(h))
	require.True(t, SetContains(h, []byte("1")))
	require.True(t, SetContains(h, []byte("not-an-int")))
}

func TestSetAdd_PromotesOnCapExceeded(t *testing.T) {
	a := alloc.New()
	h := NewSet(a)
	thresholds := DefaultThresholds()
	thresholds.SetIntsetMax = 2

	SetAdd(a, h, []byte("1"), thresholds)
	SetAdd(a, h, []byte("2"), thresholds)
	require.Equal(t, EncodingIntset, h.Encoding)

	SetAdd(a, h, []byte("3"), thresholds)
	require.Equal(t, EncodingHashtable, h.Encoding)
	require.Equal(t, 3, SetCard(h))
}

func TestHashSet_PromotesOnEntryCountAndReadsBothEncodings(t *testing.T) {
	a := alloc.New()
	h := NewHash(a)
	thresholds := DefaultThresholds()
	thresholds.HashZiplistMaxEntries = 2

	HashSet(a, h, []byte("f1"), []byte("v1"), thresholds)
	HashSet(a, h, []byte("f2"), []byte("v2"), thresholds)
	require.Equal(t, EncodingZiplist, h.Encoding)

	HashSet(a, h, []byte("f3"), []byte("v3"), thresholds)
	require.Equal(t, EncodingHashtable, h.Encoding)
	require.Equal(t, 3, HashLen(h))

	v, ok := HashGet(h, []byte("f1"))
	require.True(t, ok)
	require.Equal(t, "v1", string(v))

	// Overwrite via HashSet must replace, not duplicate.
	HashSet(a, h, []byte("f1"), []byte("v1-updated"), thresholds)
	require.Equal(t, 3, HashLen(h))

	v, ok = HashGet(h, []byte("f1"))
	require.True(t, ok)
	require.Equal(t, "v1-updated", string(v))
}

func TestZSetAdd_PromotesToSkiplistAndRanges(t *testing.T) {
	a := alloc.New()
	h := NewZSet(a)
	thresholds := DefaultThresholds()
	thresholds.ZSetZiplistMaxEntries = 2

	ZSetAdd(a, h, []byte("alice"), 1.0, thresholds)
	ZSetAdd(a, h, []byte("bob"), 2.0, thresholds)
	require.Equal(t, EncodingZiplist, h.Encoding)

	ZSetAdd(a, h, []byte("carol"), 3.0, thresholds)
	require.Equal(t, EncodingSkiplist, h.Encoding)
	require.Equal(t, 3, ZSetLen(h))

	score, ok := ZSetScore(h, []byte("bob"))
	require.True(t, ok)
	require.Equal(t, 2.0, score)

	// Updating an existing member's score must not create a duplicate entry.
	ZSetAdd(a, h, []byte("bob"), 10.0, thresholds)
	require.Equal(t, 3, ZSetLen(h))

	var members []string
	ZSetRangeByScore(h, skiplist.ScoreRange{Min: 0, Max: 100}, func(member string, score float64) bool {
		members = append(members, member)
		return true
	})
	require.Equal(t, []string{"alice", "carol", "bob"}, members)
}

func TestNewList_AppendsAndReports(t *testing.T) {
	a := alloc.New()
	h, err := NewList(a)
	require.NoError(t, err)
	require.Equal(t, EncodingQuicklist, h.Encoding)

	require.NoError(t, ListPush(a, h, []byte("one")))
	require.NoError(t, ListPush(a, h, []byte("two")))
	require.Equal(t, 2, ListLen(h))
}

func TestConvertLegacyList_MigratesValuesToQuicklist(t *testing.T) {
	a := alloc.New()
	h := LoadLegacyLinkedList([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.Equal(t, EncodingLinkedList, h.Encoding)
	require.Equal(t, 3, ListLen(h))

	require.NoError(t, ConvertLegacyList(a, h))
	require.Equal(t, EncodingQuicklist, h.Encoding)
	require.Equal(t, 3, ListLen(h))
}

func TestNewStream_AppendsThroughHeader(t *testing.T) {
	a := alloc.New()
	h := NewStream(a)
	require.Equal(t, EncodingStreamRadix, h.Encoding)

	s := StreamBody(h)
	_, err := s.Append(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
}

func TestTouch_AdvancesLRUClock(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("x"), DefaultThresholds())
	rng := korand.New()

	require.Zero(t, h.Clock.LRUTime())
	h.Touch(rng, 12345)
	require.Equal(t, uint32(12345), h.Clock.LRUTime())
}

func TestTouch_AdvancesLFUCounterUnderLFUMode(t *testing.T) {
	SetClockMode(ClockLFU)
	defer SetClockMode(ClockLRU)

	a := alloc.New()
	h := NewString(a, []byte("x"), DefaultThresholds())
	rng := korand.New()

	for i := 0; i < 20; i++ {
		h.Touch(rng, uint32(i))
	}

	at, counter := h.Clock.LFUFields()
	require.Equal(t, uint16(19), at)
	require.Positive(t, counter)
}

func TestTouch_NoOpOnSharedHeader(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("x"), DefaultThresholds())
	h.Freeze()
	rng := korand.New()

	h.Touch(rng, 999)
	require.Zero(t, h.Clock.LRUTime())
}

func TestSizeOf_SharedHeaderIsZero(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("abc"), DefaultThresholds())
	h.Freeze()
	require.Zero(t, SizeOf(h, DefaultSizeSamples))
}

func TestSizeOf_NonSharedIsPositive(t *testing.T) {
	a := alloc.New()
	h := NewString(a, []byte("a somewhat longer string body"), DefaultThresholds())
	require.Positive(t, SizeOf(h, DefaultSizeSamples))
}

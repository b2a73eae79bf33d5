package object

import (
	"strconv"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/hashtable"
	"github.com/corekv/corekv/intset"
)

// NewSet builds an empty SET header in the narrowest encoding, INTSET.
func NewSet(a *alloc.Allocator) *Header {
	return newHeader(TypeSet, EncodingIntset, intset.New(a))
}

// SetAdd adds member to h's set, promoting INTSET to HASHTABLE per
// spec.md §4.11.3 when member is not an integer or the element count
// would exceed thresholds.SetIntsetMax.
func SetAdd(a *alloc.Allocator, h *Header, member []byte, thresholds Thresholds) {
	if h.Type != TypeSet {
		panic("object: SetAdd on non-set header")
	}

	if h.Encoding == EncodingIntset {
		n, ok := parseExactInt64(member)
		set := h.ptr.(*intset.Set)

		if ok && set.Len() < thresholds.SetIntsetMax {
			set.Add(n)
			return
		}

		if ok && set.Contains(n) {
			return
		}

		promoteSetToHashtable(h)
	}

	h.ptr.(*hashtable.Table).Set(string(member), struct{}{})
}

func promoteSetToHashtable(h *Header) {
	old := h.ptr.(*intset.Set)
	t := hashtable.New()

	for _, v := range old.Values() {
		t.Set(strconv.FormatInt(v, 10), struct{}{})
	}

	old.Free()
	h.ptr = t
	h.Encoding = EncodingHashtable
}

// SetContains reports whether member is present in h's set.
func SetContains(h *Header, member []byte) bool {
	if h.Encoding == EncodingIntset {
		n, ok := parseExactInt64(member)
		if !ok {
			return false
		}

		return h.ptr.(*intset.Set).Contains(n)
	}

	_, ok := h.ptr.(*hashtable.Table).Get(string(member))

	return ok
}

// SetCard returns the element count.
func SetCard(h *Header) int {
	if h.Encoding == EncodingIntset {
		return h.ptr.(*intset.Set).Len()
	}

	return h.ptr.(*hashtable.Table).Len()
}

package object

import (
	"fmt"
	"math"

	"github.com/corekv/corekv/hashtable"
	"github.com/corekv/corekv/intset"
	"github.com/corekv/corekv/korand"
	"github.com/corekv/corekv/listpack"
	"github.com/corekv/corekv/quicklist"
	"github.com/corekv/corekv/sds"
	"github.com/corekv/corekv/skiplist"
	"github.com/corekv/corekv/stream"
	"github.com/corekv/corekv/ziplist"
)

// Sentinel refcount values, spec.md §3.1/§4.11.2 — matching
// redisObject.h's OBJ_SHARED_REFCOUNT (INT_MAX) and OBJ_STATIC_REFCOUNT
// (INT_MAX-1), the values shared/stack-allocated headers carry.
const (
	RefcountShared int32 = math.MaxInt32
	RefcountStack  int32 = math.MaxInt32 - 1
)

// Header is the polymorphic value envelope, spec.md §3.1. Ptr's
// concrete Go type is fixed by (Type, Encoding): see the constructors
// (NewString, NewList, NewSet, NewHash, NewZSet, NewStream), the promote
// functions, and the Legal table for the mapping.
type Header struct {
	Type     Type
	Encoding Encoding
	Clock    Clock
	refcount int32
	ptr      any
}

func newHeader(typ Type, encoding Encoding, ptr any) *Header {
	if !Legal(typ, encoding) {
		panic(fmt.Sprintf("object: encoding %s is not legal for type %s", encoding, typ))
	}

	return &Header{Type: typ, Encoding: encoding, refcount: 1, ptr: ptr}
}

// Ptr returns the body, opaque to command code beyond a type
// assertion driven by (Type, Encoding).
func (h *Header) Ptr() any { return h.ptr }

// Refcount returns the current count, or one of RefcountShared /
// RefcountStack.
func (h *Header) Refcount() int32 { return h.refcount }

// IncRef increments the refcount. A no-op on SHARED or STACK headers,
// per spec.md §4.11.2.
func (h *Header) IncRef() {
	switch h.refcount {
	case RefcountShared, RefcountStack:
		return
	default:
		h.refcount++
	}
}

// DecRef decrements the refcount, invoking the typed destructor and
// releasing h's body when the count reaches zero. A no-op on SHARED or
// STACK headers. Panics if called on a header whose count is already
// at or below zero — spec.md §4.11.2's "negative or zero on a
// reachable header is a panic".
func (h *Header) DecRef() {
	switch h.refcount {
	case RefcountShared, RefcountStack:
		return
	}

	if h.refcount <= 0 {
		panic("object: DecRef on a header with non-positive refcount")
	}

	h.refcount--
	if h.refcount == 0 {
		destroy(h.ptr)
		h.ptr = nil
	}
}

// Touch records an access for eviction-policy bookkeeping, advancing
// h's Clock field per the process-wide CurrentClockMode. A no-op on
// SHARED headers, which have no individual eviction cost to track.
func (h *Header) Touch(rng *korand.Rand, nowTruncated uint32) {
	if h.refcount == RefcountShared {
		return
	}

	touch(h, rng, nowTruncated)
}

// Freeze sets the refcount to SHARED, the construction step behind
// spec.md §3.11's process-wide singleton registry. A frozen header's
// payload must not be mutated afterward.
func (h *Header) Freeze() { h.refcount = RefcountShared }

// destroy invokes the typed destructor for ptr's concrete
// representation, spec.md §4.11.2: flat-buffer encodings (sds, ziplist,
// listpack, intset, quicklist) own an allocator-tracked byte slice that
// Go's GC alone won't account for, so they get an explicit Free() call.
// Pure-Go, pointer-based representations (hashtable, skiplist, the
// zset skiplist+hashtable pair, stream) have nothing beyond ordinary
// garbage to release and are simply dropped.
func destroy(ptr any) {
	switch v := ptr.(type) {
	case *sds.String:
		v.Free()
	case *ziplist.List:
		v.Free()
	case *listpack.List:
		v.Free()
	case *intset.Set:
		v.Free()
	case *quicklist.List:
		v.Free()
	case *hashtable.Table, *skiplist.List, *zsetSkiplist, *stream.Stream, *legacyLinkedList, int64, nil:
		// GC-managed or immediate; nothing to release explicitly.
	default:
		panic(fmt.Sprintf("object: no destructor registered for %T", ptr))
	}
}

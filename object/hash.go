package object

import (
	"strconv"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/hashtable"
	"github.com/corekv/corekv/ziplist"
)

// NewHash builds an empty HASH header in the narrowest encoding, ZIPLIST.
func NewHash(a *alloc.Allocator) *Header {
	return newHeader(TypeHash, EncodingZiplist, ziplist.New(a))
}

// HashSet sets field to value in h's hash, promoting ZIPLIST to
// HASHTABLE per spec.md §4.11.3 when the entry count or either side of
// the new field would exceed thresholds.
func HashSet(a *alloc.Allocator, h *Header, field, value []byte, thresholds Thresholds) {
	if h.Type != TypeHash {
		panic("object: HashSet on non-hash header")
	}

	if h.Encoding == EncodingZiplist {
		zl := h.ptr.(*ziplist.List)
		entries := zl.Len() / 2
		fits := entries < thresholds.HashZiplistMaxEntries &&
			len(field) <= thresholds.HashZiplistMaxFieldLen &&
			len(value) <= thresholds.HashZiplistMaxFieldLen

		if fits || (len(value) <= thresholds.HashZiplistMaxFieldLen && hashZiplistHasField(zl, field)) {
			hashZiplistSet(zl, field, value)
			return
		}

		promoteHashToHashtable(h)
	}

	h.ptr.(*hashtable.Table).Set(string(field), append([]byte(nil), value...))
}

func hashZiplistHasField(zl *ziplist.List, field []byte) bool {
	for i := 0; i < zl.Len(); i += 2 {
		_, str, isInt, ok := zl.Get(i)
		if !ok {
			break
		}

		if !isInt && string(str) == string(field) {
			return true
		}
	}

	return false
}

// hashZiplistSet rewrites field's value in place if present, otherwise
// appends the (field, value) pair. Overwrite is delete-then-append
// since ziplist has no random-access update primitive, matching the
// delete-and-replay idiom quicklist uses for arbitrary-position writes.
func hashZiplistSet(zl *ziplist.List, field, value []byte) {
	for i := 0; i < zl.Len(); i += 2 {
		_, str, isInt, ok := zl.Get(i)
		if !ok {
			break
		}

		if !isInt && string(str) == string(field) {
			zl.DeleteRange(i, 2)
			break
		}
	}

	zl.Push(field)
	zl.Push(value)
}

func promoteHashToHashtable(h *Header) {
	zl := h.ptr.(*ziplist.List)
	t := hashtable.New()

	for i := 0; i+1 < zl.Len(); i += 2 {
		_, fname, _, _ := zl.Get(i)
		iv, fval, valIsInt, _ := zl.Get(i + 1)
		if valIsInt {
			fval = []byte(strconv.FormatInt(iv, 10))
		}
		t.Set(string(fname), append([]byte(nil), fval...))
	}

	zl.Free()
	h.ptr = t
	h.Encoding = EncodingHashtable
}

// HashGet returns field's value and whether it is present.
func HashGet(h *Header, field []byte) ([]byte, bool) {
	if h.Encoding == EncodingZiplist {
		zl := h.ptr.(*ziplist.List)

		for i := 0; i+1 < zl.Len(); i += 2 {
			_, fname, isInt, ok := zl.Get(i)
			if !ok {
				break
			}

			if !isInt && string(fname) == string(field) {
				iv, fval, valIsInt, _ := zl.Get(i + 1)
				if valIsInt {
					fval = []byte(strconv.FormatInt(iv, 10))
				}

				return fval, true
			}
		}

		return nil, false
	}

	v, ok := h.ptr.(*hashtable.Table).Get(string(field))
	if !ok {
		return nil, false
	}

	return v.([]byte), true
}

// HashLen returns the number of fields.
func HashLen(h *Header) int {
	if h.Encoding == EncodingZiplist {
		return h.ptr.(*ziplist.List).Len() / 2
	}

	return h.ptr.(*hashtable.Table).Len()
}

package object

import (
	"strconv"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/quicklist"
	"github.com/corekv/corekv/ziplist"
)

// legacyLinkedList is the minimal body for the legacy LINKEDLIST list
// encoding, spec.md §4.11.1: "legacy snapshots may load as ZIPLIST or
// LINKEDLIST and are converted on first mutation." There is no active
// producer of this encoding in this engine — nothing here ever writes
// a legacy snapshot — so it is a plain slice-backed placeholder a
// loader can populate, whose only job is to exist long enough for
// ConvertLegacyList to replace it with a real quicklist.
type legacyLinkedList struct {
	values [][]byte
}

// NewList builds an empty LIST header. Unlike STRING/SET/HASH/ZSET,
// LIST always starts in its modern encoding, QUICKLIST — spec.md
// §4.11.1 states legacy encodings are load-only, never chosen for a
// freshly created value.
func NewList(a *alloc.Allocator, opts ...quicklist.Option) (*Header, error) {
	ql, err := quicklist.New(a, opts...)
	if err != nil {
		return nil, err
	}

	return newHeader(TypeList, EncodingQuicklist, ql), nil
}

// LoadLegacyLinkedList constructs a LIST header in the legacy
// LINKEDLIST encoding, standing in for a snapshot loader that hasn't
// yet converted the value to quicklist.
func LoadLegacyLinkedList(values [][]byte) *Header {
	return newHeader(TypeList, EncodingLinkedList, &legacyLinkedList{values: values})
}

// ConvertLegacyList upgrades a ZIPLIST- or LINKEDLIST-encoded LIST
// header to QUICKLIST in place, per spec.md §4.11.1's "converted on
// first mutation" rule. A no-op if h is already QUICKLIST.
func ConvertLegacyList(a *alloc.Allocator, h *Header, opts ...quicklist.Option) error {
	if h.Type != TypeList {
		panic("object: ConvertLegacyList on non-list header")
	}

	if h.Encoding == EncodingQuicklist {
		return nil
	}

	ql, err := quicklist.New(a, opts...)
	if err != nil {
		return err
	}

	switch old := h.ptr.(type) {
	case *legacyLinkedList:
		for _, v := range old.values {
			ql.Push(v)
		}
	case *ziplist.List:
		for i := 0; i < old.Len(); i++ {
			iv, s, isInt, _ := old.Get(i)
			if isInt {
				s = []byte(strconv.FormatInt(iv, 10))
			}

			ql.Push(s)
		}

		old.Free()
	default:
		panic("object: unrecognized legacy list body")
	}

	h.ptr = ql
	h.Encoding = EncodingQuicklist

	return nil
}

// ListPush appends data to h's list, converting a legacy encoding to
// QUICKLIST first if necessary.
func ListPush(a *alloc.Allocator, h *Header, data []byte) error {
	if h.Encoding != EncodingQuicklist {
		if err := ConvertLegacyList(a, h); err != nil {
			return err
		}
	}

	h.ptr.(*quicklist.List).Push(data)

	return nil
}

// ListLen returns the element count.
func ListLen(h *Header) int {
	if h.Encoding == EncodingQuicklist {
		return h.ptr.(*quicklist.List).Len()
	}

	return len(h.ptr.(*legacyLinkedList).values)
}

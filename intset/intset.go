// Package intset implements the sorted, packed integer array described
// in spec.md §3.5/§4.5: a small header (element width, count) followed
// by little-endian elements kept in numerical order for O(log n)
// binary-search lookup. Widening (16→32→64 bits) happens in place and
// never reverses, even if every wide element is later removed.
//
// Like ziplist and listpack, this is a flat-buffer encoding grounded on
// mebo's columnar, offset-walked encoders rather than a pointer
// structure.
package intset

import (
	"sort"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/endian"
)

var engine = endian.GetLittleEndianEngine()

const headerSize = 4 + 4 // encoding, count

// Set is a sorted packed integer set.
type Set struct {
	buf []byte
	a   *alloc.Allocator
}

// New returns an empty set with the narrowest (16-bit) encoding.
func New(a *alloc.Allocator) *Set {
	s := &Set{a: a}
	s.buf = a.Alloc(headerSize)
	engine.PutUint32(s.buf[0:4], 2)
	engine.PutUint32(s.buf[4:8], 0)

	return s
}

func (s *Set) encoding() uint32 { return engine.Uint32(s.buf[0:4]) }
func (s *Set) count() uint32    { return engine.Uint32(s.buf[4:8]) }

// Len returns the element count.
func (s *Set) Len() int { return int(s.count()) }

func widthFor(v int64) uint32 {
	switch {
	case v >= -(1<<15) && v < 1<<15:
		return 2
	case v >= -(1<<31) && v < 1<<31:
		return 4
	default:
		return 8
	}
}

func (s *Set) get(i int, width uint32) int64 {
	off := headerSize + i*int(width)

	switch width {
	case 2:
		return int64(int16(engine.Uint16(s.buf[off : off+2])))
	case 4:
		return int64(int32(engine.Uint32(s.buf[off : off+4])))
	default:
		return int64(engine.Uint64(s.buf[off : off+8]))
	}
}

func (s *Set) put(i int, width uint32, v int64) {
	off := headerSize + i*int(width)

	switch width {
	case 2:
		engine.PutUint16(s.buf[off:off+2], uint16(v))
	case 4:
		engine.PutUint32(s.buf[off:off+4], uint32(v))
	default:
		engine.PutUint64(s.buf[off:off+8], uint64(v))
	}
}

// Values returns every element in ascending order.
func (s *Set) Values() []int64 {
	w := s.encoding()
	n := int(s.count())
	out := make([]int64, n)

	for i := 0; i < n; i++ {
		out[i] = s.get(i, w)
	}

	return out
}

// search binary-searches for v under the current encoding, returning
// the index if found and the insertion point otherwise.
func (s *Set) search(v int64) (idx int, found bool) {
	w := s.encoding()
	n := int(s.count())

	idx = sort.Search(n, func(i int) bool { return s.get(i, w) >= v })
	found = idx < n && s.get(idx, w) == v

	return idx, found
}

// Add inserts v, widening the encoding first if v does not fit the
// current width, then right-to-left rewriting every existing element
// into the wider slot before memmove-opening space for v.
func (s *Set) Add(v int64) {
	needed := widthFor(v)
	cur := s.encoding()

	if needed > cur {
		s.upgrade(needed)
		cur = needed
	}

	idx, found := s.search(v)
	if found {
		return
	}

	n := int(s.count())
	newTotal := headerSize + (n+1)*int(cur)

	newBuf := s.a.Alloc(newTotal)
	copy(newBuf, s.buf[:headerSize+idx*int(cur)])
	copy(newBuf[headerSize+(idx+1)*int(cur):], s.buf[headerSize+idx*int(cur):headerSize+n*int(cur)])

	s.a.Free(s.buf)
	s.buf = newBuf
	s.putHeader(cur, uint32(n+1))
	s.put(idx, cur, v)
}

func (s *Set) putHeader(encoding, count uint32) {
	engine.PutUint32(s.buf[0:4], encoding)
	engine.PutUint32(s.buf[4:8], count)
}

// upgrade rewrites every element from the current width to newWidth,
// right-to-left so a smaller destination slot is never overwritten
// before its source is read.
func (s *Set) upgrade(newWidth uint32) {
	oldWidth := s.encoding()
	n := int(s.count())

	newBuf := s.a.Alloc(headerSize + n*int(newWidth))
	engine.PutUint32(newBuf[0:4], newWidth)
	engine.PutUint32(newBuf[4:8], uint32(n))

	old := s.buf
	s.buf = newBuf

	for i := n - 1; i >= 0; i-- {
		off := headerSize + i*int(oldWidth)

		var v int64
		switch oldWidth {
		case 2:
			v = int64(int16(engine.Uint16(old[off : off+2])))
		case 4:
			v = int64(int32(engine.Uint32(old[off : off+4])))
		default:
			v = int64(engine.Uint64(old[off : off+8]))
		}

		s.put(i, newWidth, v)
	}

	s.a.Free(old)
}

// Remove deletes v if present. Encoding never narrows (promote-only).
func (s *Set) Remove(v int64) bool {
	idx, found := s.search(v)
	if !found {
		return false
	}

	w := s.encoding()
	n := int(s.count())

	newBuf := s.a.Alloc(headerSize + (n-1)*int(w))
	copy(newBuf, s.buf[:headerSize+idx*int(w)])
	copy(newBuf[headerSize+idx*int(w):], s.buf[headerSize+(idx+1)*int(w):headerSize+n*int(w)])

	s.a.Free(s.buf)
	s.buf = newBuf
	s.putHeader(w, uint32(n-1))

	return true
}

// Contains reports whether v is a member.
func (s *Set) Contains(v int64) bool {
	if widthFor(v) > s.encoding() {
		return false // v can't possibly be stored at a narrower width
	}

	_, found := s.search(v)

	return found
}

// Bytes returns the raw blob.
func (s *Set) Bytes() []byte { return s.buf }

// Free releases the backing buffer to the allocator — the typed
// destructor object.Header's decref invokes for a SET value held in the
// INTSET encoding.
func (s *Set) Free() {
	s.a.Free(s.buf)
	s.buf = nil
}

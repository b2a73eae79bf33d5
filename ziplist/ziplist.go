// Package ziplist implements the cascade-update packed list encoding
// described in spec.md §3.3/§4.3: a single contiguous byte blob of
// length-prefixed, variable-width entries, each carrying its
// predecessor's raw length so the list can be walked in both
// directions without a separate index.
//
// Entries auto-encode small integers. Each `prev_len` records its
// predecessor's encoding header plus data length, not counting the
// predecessor's own `prev_len` field, so an insert or delete rewrites
// only the `prev_len` of the entry that follows the change: widening a
// `prev_len` never alters what the next entry records, and no chain of
// widenings (cascade update) occurs. Package listpack holds the
// trailer-based alternative encoding.
//
// The blob-plus-cursor shape mirrors mebo's packed columnar encoders
// (encoding/numeric.go): a flat buffer walked with integer offsets
// rather than a tree of pointers, grown and shrunk through the shared
// allocator instead of append-driven slice growth.
package ziplist

import (
	"fmt"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/corekverr"
	"github.com/corekv/corekv/endian"
)

var engine = endian.GetLittleEndianEngine()

const (
	headerSize  = 4 + 4 + 2 // total_bytes, tail_offset, count
	terminator  = 0xFF
	countNoFit  = 0xFFFF // count field pinned when true count would overflow u16
	prevLenBig  = 0xFE
	prevLenSkip = 5 // bytes consumed by a wide prev_len (0xFE + u32)
)

// Encoding tags for the encoding+len byte(s). These mirror the packed
// layout spec.md §3.3 describes: string lengths in the low tag ranges,
// integer widths above 0xC0, and a 4-bit immediate block at 0xF1-0xFD.
const (
	str6Bit  byte = 0x00 // top 2 bits 00: 6-bit length follows in same byte
	str14Bit byte = 0x40 // top 2 bits 01: 14-bit length in this + next byte
	str32Bit byte = 0x80 // top 2 bits 10: next 4 bytes are the length
	int8Tag  byte = 0xC0
	int16Tag byte = 0xD0
	int24Tag byte = 0xE0
	int32Tag byte = 0xF0
	int64Tag byte = 0xFE
	immBase  byte = 0xF1 // immediate 0 encodes as 0xF1 ... immediate 12 as 0xFD
	immMax   byte = 12
)

// List is a ziplist: one contiguous allocation, mutated through the
// allocator so its live-byte accounting stays accurate.
type List struct {
	buf []byte
	a   *alloc.Allocator
}

// New returns an empty ziplist.
func New(a *alloc.Allocator) *List {
	l := &List{a: a}
	l.buf = a.Alloc(headerSize + 1)
	engine.PutUint32(l.buf[0:4], uint32(len(l.buf)))
	engine.PutUint32(l.buf[4:8], headerSize)
	engine.PutUint16(l.buf[8:10], 0)
	l.buf[headerSize] = terminator

	return l
}

func (l *List) totalBytes() uint32      { return engine.Uint32(l.buf[0:4]) }
func (l *List) setTotalBytes(v uint32)  { engine.PutUint32(l.buf[0:4], v) }
func (l *List) tailOffset() uint32      { return engine.Uint32(l.buf[4:8]) }
func (l *List) setTailOffset(v uint32)  { engine.PutUint32(l.buf[4:8], v) }
func (l *List) rawCount() uint16        { return engine.Uint16(l.buf[8:10]) }
func (l *List) setRawCount(v uint16)    { engine.PutUint16(l.buf[8:10], v) }

// Len returns the number of entries, doing a full traversal when the
// 16-bit header field has saturated (spec.md §3.3).
func (l *List) Len() int {
	if l.rawCount() != countNoFit {
		return int(l.rawCount())
	}

	n := 0
	for off := uint32(headerSize); l.buf[off] != terminator; {
		_, entrySize := l.decodeEntryAt(off)
		off += entrySize
		n++
	}

	return n
}

func (l *List) bumpCount(delta int) {
	c := l.Len() + delta
	if c >= countNoFit {
		l.setRawCount(countNoFit)
	} else {
		l.setRawCount(uint16(c))
	}
}

// entry is a decoded view of one ziplist entry.
type entry struct {
	prevLen     uint32
	prevLenSize int // 1 or 5
	isInt       bool
	intVal      int64
	str         []byte
	headerSize  int // bytes of encoding+len header, excluding prev_len and data
	dataSize    int
}

func (e *entry) rawLen() uint32 { return uint32(e.headerSize + e.dataSize) }
func (e *entry) size() uint32   { return uint32(e.prevLenSize) + e.rawLen() }

// decodeEntryAt decodes the entry starting at byte offset off, returning
// it along with its total size in bytes.
func (l *List) decodeEntryAt(off uint32) (entry, uint32) {
	var e entry

	b := l.buf[off]
	if b == prevLenBig {
		e.prevLen = engine.Uint32(l.buf[off+1 : off+5])
		e.prevLenSize = prevLenSkip
	} else {
		e.prevLen = uint32(b)
		e.prevLenSize = 1
	}

	hb := l.buf[off+uint32(e.prevLenSize)]

	switch {
	case hb&0xC0 == str6Bit:
		e.headerSize = 1
		e.dataSize = int(hb & 0x3F)
	case hb&0xC0 == str14Bit:
		e.headerSize = 2
		next := l.buf[off+uint32(e.prevLenSize)+1]
		e.dataSize = (int(hb&0x3F) << 8) | int(next)
	case hb == str32Bit:
		e.headerSize = 5
		base := off + uint32(e.prevLenSize) + 1
		e.dataSize = int(engine.Uint32(l.buf[base : base+4]))
	case hb >= immBase && hb <= immBase+immMax:
		e.headerSize = 1
		e.isInt = true
		e.intVal = int64(hb - immBase)
	case hb == int8Tag:
		e.headerSize = 1
		e.isInt = true
		base := off + uint32(e.prevLenSize) + 1
		e.intVal = int64(int8(l.buf[base]))
		e.dataSize = 1
	case hb == int16Tag:
		e.headerSize = 1
		e.isInt = true
		base := off + uint32(e.prevLenSize) + 1
		e.intVal = int64(int16(engine.Uint16(l.buf[base : base+2])))
		e.dataSize = 2
	case hb == int24Tag:
		e.headerSize = 1
		e.isInt = true
		base := off + uint32(e.prevLenSize) + 1
		raw := uint32(l.buf[base]) | uint32(l.buf[base+1])<<8 | uint32(l.buf[base+2])<<16
		if raw&0x800000 != 0 {
			raw |= 0xFF000000
		}
		e.intVal = int64(int32(raw))
		e.dataSize = 3
	case hb == int32Tag:
		e.headerSize = 1
		e.isInt = true
		base := off + uint32(e.prevLenSize) + 1
		e.intVal = int64(int32(engine.Uint32(l.buf[base : base+4])))
		e.dataSize = 4
	case hb == int64Tag:
		e.headerSize = 1
		e.isInt = true
		base := off + uint32(e.prevLenSize) + 1
		e.intVal = int64(engine.Uint64(l.buf[base : base+8]))
		e.dataSize = 8
	default:
		panic(fmt.Sprintf("ziplist: corrupt encoding byte 0x%02x at offset %d", hb, off))
	}

	if !e.isInt {
		dataOff := off + uint32(e.prevLenSize) + uint32(e.headerSize)
		e.str = l.buf[dataOff : dataOff+uint32(e.dataSize)]
	}

	return e, e.size()
}

// encodeInt chooses the narrowest encoding for v, per spec.md §4.3.1.
func encodeInt(v int64) (tag byte, body []byte) {
	if v >= 0 && v <= int64(immMax) {
		return immBase + byte(v), nil
	}

	switch {
	case v >= -(1<<7) && v < 1<<7:
		b := make([]byte, 1)
		b[0] = byte(v)
		return int8Tag, b
	case v >= -(1<<15) && v < 1<<15:
		b := make([]byte, 2)
		engine.PutUint16(b, uint16(v))
		return int16Tag, b
	case v >= -(1<<23) && v < 1<<23:
		b := make([]byte, 3)
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
		return int24Tag, b
	case v >= -(1<<31) && v < 1<<31:
		b := make([]byte, 4)
		engine.PutUint32(b, uint32(v))
		return int32Tag, b
	default:
		b := make([]byte, 8)
		engine.PutUint64(b, uint64(v))
		return int64Tag, b
	}
}

// parseInt attempts the base-10 integer parse spec.md §4.3.1 requires:
// an optional leading '-', digits only, length 1..20.
func parseInt(data []byte) (int64, bool) {
	if len(data) == 0 || len(data) > 20 {
		return 0, false
	}

	s := data
	neg := false

	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	if len(s) == 0 {
		return 0, false
	}

	// Leading zeros and "-0" would not survive the round trip back to text.
	if s[0] == '0' && (len(s) > 1 || neg) {
		return 0, false
	}

	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}

		if v > (1<<63)/10 {
			return 0, false
		}

		v = v*10 + uint64(c-'0')
	}

	if neg {
		if v > 1<<63 {
			return 0, false
		}

		return -int64(v), true
	}

	if v > uint64(1<<63-1) {
		return 0, false
	}

	return int64(v), true
}

// encodePayload builds the encoding+len header and data bytes for data,
// auto-encoding integers per spec.md §4.3.1.
func encodePayload(data []byte) (header, body []byte) {
	if v, ok := parseInt(data); ok {
		tag, b := encodeInt(v)
		return []byte{tag}, b
	}

	n := len(data)

	switch {
	case n < 1<<6:
		return []byte{str6Bit | byte(n)}, data
	case n < 1<<14:
		return []byte{str14Bit | byte(n>>8), byte(n)}, data
	default:
		h := make([]byte, 5)
		h[0] = str32Bit
		engine.PutUint32(h[1:], uint32(n))

		return h, data
	}
}

func encodedEntrySize(prevLen uint32, header, body []byte) uint32 {
	plSize := uint32(1)
	if prevLen >= prevLenBig {
		plSize = prevLenSkip
	}

	return plSize + uint32(len(header)) + uint32(len(body))
}

func prevLenWidth(raw uint32) int {
	if raw < prevLenBig {
		return 1
	}

	return prevLenSkip
}

func writePrevLen(dst []byte, prevLen uint32) int {
	if prevLen < prevLenBig {
		dst[0] = byte(prevLen)
		return 1
	}

	dst[0] = prevLenBig
	engine.PutUint32(dst[1:5], prevLen)

	return prevLenSkip
}

// Push appends data to the tail.
func (l *List) Push(data []byte) {
	l.insertAt(l.totalBytes()-1, data)
}

// PushHead prepends data.
func (l *List) PushHead(data []byte) {
	l.insertAt(headerSize, data)
}

// insertAt implements spec.md §4.3.2's insert algorithm at raw byte
// offset p (must point at an entry boundary or the terminator).
func (l *List) insertAt(p uint32, data []byte) {
	var prevLen uint32
	if p > headerSize {
		prevEntry, _ := l.decodeEntryAt(l.prevEntryOffset(p))
		prevLen = prevEntry.rawLen()
	}

	header, body := encodePayload(data)
	newSize := encodedEntrySize(prevLen, header, body)

	var oldNextPrevLenSize uint32
	hasNext := l.buf[p] != terminator

	if hasNext {
		nextEntry, _ := l.decodeEntryAt(p)
		oldNextPrevLenSize = uint32(nextEntry.prevLenSize)
	}

	newEntryRawLen := uint32(len(header)) + uint32(len(body))
	newNextPrevLenSize := uint32(1)
	if newEntryRawLen >= prevLenBig {
		newNextPrevLenSize = prevLenSkip
	}

	delta := int64(newSize)
	if hasNext {
		delta += int64(newNextPrevLenSize) - int64(oldNextPrevLenSize)
	}

	oldTotal := l.totalBytes()
	newTotal := uint32(int64(oldTotal) + delta)

	newBuf := l.a.Alloc(int(newTotal))
	copy(newBuf, l.buf[:p])

	w := p
	w += uint32(writePrevLen(newBuf[w:], prevLen))
	w += uint32(copy(newBuf[w:], header))
	w += uint32(copy(newBuf[w:], body))

	if hasNext {
		w += uint32(writePrevLen(newBuf[w:], newEntryRawLen))
		copy(newBuf[w:], l.buf[p+oldNextPrevLenSize:oldTotal])
	} else {
		newBuf[w] = terminator
	}

	l.a.Free(l.buf)
	l.buf = newBuf
	l.setTotalBytes(newTotal)
	l.setTailOffset(l.computeTailOffset())
	l.bumpCount(1)

	if hasNext && newNextPrevLenSize != oldNextPrevLenSize {
		l.cascadeFrom(p + uint32(prevLenWidth(prevLen)) + newEntryRawLen)
	}
}

// computeTailOffset walks the list to find the byte offset of the last
// entry (or the terminator offset when empty).
func (l *List) computeTailOffset() uint32 {
	off := uint32(headerSize)
	last := off

	for l.buf[off] != terminator {
		last = off
		_, size := l.decodeEntryAt(off)
		off += size
	}

	if off == headerSize {
		return headerSize
	}

	return last
}

// prevEntryOffset walks from the head to find the entry immediately
// preceding the entry (or terminator) at offset p.
func (l *List) prevEntryOffset(p uint32) uint32 {
	off := uint32(headerSize)
	prev := off

	for off < p {
		prev = off
		_, size := l.decodeEntryAt(off)
		off += size
	}

	return prev
}

// cascadeFrom implements spec.md §4.3.3: walk forward from an entry
// whose prev_len width just changed, widening successor prev_len
// fields only as long as each widening crosses the 254-byte boundary
// in turn. Shrinks are never cascaded. Because rawLen excludes the
// prev_len field, widening a successor's prev_len leaves the length that
// successor passes on unchanged, so the walk ends after the first pair
// it checks.
func (l *List) cascadeFrom(off uint32) {
	for l.buf[off] != terminator {
		e, size := l.decodeEntryAt(off)

		next := off + size
		if l.buf[next] == terminator {
			return
		}

		nextEntry, _ := l.decodeEntryAt(next)
		wantBig := e.rawLen() >= prevLenBig
		isBig := nextEntry.prevLenSize == prevLenSkip

		if wantBig == isBig {
			return
		}

		if !wantBig {
			return // never cascade a shrink
		}

		l.widenPrevLen(next, e.rawLen())
		off = next
	}
}

// widenPrevLen rewrites the 1-byte prev_len at off into the 5-byte
// form, shifting the rest of the blob right by 4 bytes.
func (l *List) widenPrevLen(off, newPrevLen uint32) {
	oldTotal := l.totalBytes()
	newTotal := oldTotal + prevLenSkip - 1

	newBuf := l.a.Alloc(int(newTotal))
	copy(newBuf, l.buf[:off])
	writePrevLen(newBuf[off:], newPrevLen)
	copy(newBuf[off+prevLenSkip:], l.buf[off+1:oldTotal])

	l.a.Free(l.buf)
	l.buf = newBuf
	l.setTotalBytes(newTotal)
	l.setTailOffset(l.computeTailOffset())
}

// Get returns the decoded value at logical index idx: either the
// integer or the raw string bytes.
func (l *List) Get(idx int) (intVal int64, str []byte, isInt bool, ok bool) {
	off := uint32(headerSize)

	for i := 0; l.buf[off] != terminator; i++ {
		e, size := l.decodeEntryAt(off)
		if i == idx {
			return e.intVal, append([]byte(nil), e.str...), e.isInt, true
		}

		off += size
	}

	return 0, nil, false, false
}

// DeleteRange deletes count entries starting at logical index idx, per
// spec.md §4.3.4.
func (l *List) DeleteRange(idx, count int) {
	if count <= 0 {
		return
	}

	off := uint32(headerSize)

	for i := 0; i < idx; i++ {
		if l.buf[off] == terminator {
			return
		}

		_, size := l.decodeEntryAt(off)
		off += size
	}

	start := off
	firstPrevLen := uint32(0)
	if off != headerSize {
		firstEntry, _ := l.decodeEntryAt(l.prevEntryOffset(off))
		firstPrevLen = firstEntry.rawLen()
	}

	deleted := 0
	for ; deleted < count && l.buf[off] != terminator; deleted++ {
		_, size := l.decodeEntryAt(off)
		off += size
	}
	end := off

	hasNext := l.buf[end] != terminator

	var oldNextPrevLenSize, newNextPrevLenSize uint32 = 1, 1
	if hasNext {
		nextEntry, _ := l.decodeEntryAt(end)
		oldNextPrevLenSize = uint32(nextEntry.prevLenSize)
		if firstPrevLen >= prevLenBig {
			newNextPrevLenSize = prevLenSkip
		}
	}

	oldTotal := l.totalBytes()
	removed := int64(end-start) - (int64(newNextPrevLenSize) - int64(oldNextPrevLenSize))
	newTotal := uint32(int64(oldTotal) - removed)

	newBuf := l.a.Alloc(int(newTotal))
	copy(newBuf, l.buf[:start])

	w := start
	if hasNext {
		w += uint32(writePrevLen(newBuf[w:], firstPrevLen))
		copy(newBuf[w:], l.buf[end+oldNextPrevLenSize:oldTotal])
	} else {
		newBuf[w] = terminator
	}

	l.a.Free(l.buf)
	l.buf = newBuf
	l.setTotalBytes(newTotal)
	l.setTailOffset(l.computeTailOffset())
	l.bumpCount(-deleted)

	if hasNext && newNextPrevLenSize != oldNextPrevLenSize {
		l.cascadeFrom(l.prevEntryOffset(start))
	}
}

// ValidateIntegrity implements spec.md §4.3.5.
func (l *List) ValidateIntegrity(deep bool) error {
	total := l.totalBytes()
	if int(total) != len(l.buf) {
		return fmt.Errorf("%w: total_bytes %d != blob size %d", corekverr.ErrIntegrityViolation, total, len(l.buf))
	}

	if l.buf[total-1] != terminator {
		return fmt.Errorf("%w: missing terminator", corekverr.ErrIntegrityViolation)
	}

	if l.tailOffset() >= total {
		return fmt.Errorf("%w: tail_offset out of range", corekverr.ErrIntegrityViolation)
	}

	if !deep {
		return nil
	}

	off := uint32(headerSize)
	last := off
	n := 0
	var prevRawLen uint32

	for l.buf[off] != terminator {
		if off >= total-1 {
			return fmt.Errorf("%w: entry overruns blob", corekverr.ErrIntegrityViolation)
		}

		e, size := l.decodeEntryAt(off)
		if off+size > total-1 {
			return fmt.Errorf("%w: entry extends past terminator", corekverr.ErrIntegrityViolation)
		}

		if n > 0 && e.prevLen != prevRawLen {
			return fmt.Errorf("%w: prev_len mismatch at offset %d", corekverr.ErrIntegrityViolation, off)
		}

		prevRawLen = e.rawLen()
		last = off
		off += size
		n++
	}

	if off != total-1 {
		return fmt.Errorf("%w: walk did not land on terminator", corekverr.ErrIntegrityViolation)
	}

	if l.tailOffset() != last && n > 0 {
		return fmt.Errorf("%w: tail_offset mismatch", corekverr.ErrIntegrityViolation)
	}

	if l.rawCount() != countNoFit && int(l.rawCount()) != n {
		return fmt.Errorf("%w: count mismatch", corekverr.ErrIntegrityViolation)
	}

	return nil
}

// Bytes returns the raw blob, for persistence or transport.
func (l *List) Bytes() []byte {
	return l.buf
}

// Free releases the backing buffer to the allocator — the typed
// destructor object.Header's decref invokes for a HASH/ZSET value held
// in the ZIPLIST encoding.
func (l *List) Free() {
	l.a.Free(l.buf)
	l.buf = nil
}

// TotalBytes returns the blob's total size, matching the total_bytes
// header field.
func (l *List) TotalBytes() int { return int(l.totalBytes()) }

// LastRawLen returns the raw (undecorated) length of the tail entry,
// or 0 for an empty list — the prev_len a newly appended entry would
// need to record.
func (l *List) LastRawLen() uint32 {
	if l.buf[l.tailOffset()] == terminator {
		return 0
	}

	e, _ := l.decodeEntryAt(l.tailOffset())

	return e.rawLen()
}

// EncodedEntrySize returns the total on-wire size (prev_len + header +
// data) that pushing data after an entry of prevRawLen bytes would
// occupy, without mutating the list. Quicklist's fill-policy check
// (spec.md §4.9.1) uses this to decide whether a node has room before
// committing to an insert.
func EncodedEntrySize(data []byte, prevRawLen uint32) int {
	header, body := encodePayload(data)
	return int(encodedEntrySize(prevRawLen, header, body))
}

// FromBytes wraps an already-encoded ziplist blob, e.g. one just
// decompressed by quicklist, without re-parsing its entries.
func FromBytes(a *alloc.Allocator, buf []byte) *List {
	return &List{buf: buf, a: a}
}

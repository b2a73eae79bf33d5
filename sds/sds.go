// Package sds implements the dynamic string described in spec.md §3.2
// and §4.2: a contiguous allocation laid out as [len][alloc][flags]
// [payload][NUL], with the header width — 5/8/16/32/64 bits — chosen by
// length and recorded in the three low bits of the flags byte that
// immediately precedes the payload.
//
// The style follows mebo's length-prefixed buffer encoders
// (encoding/varstring.go): a thin struct wrapping a pooled byte buffer,
// with the byte layout kept exact so persistence snapshots built on top
// of this package could round-trip it unchanged.
package sds

import (
	"fmt"
	"strings"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/endian"
)

// width identifies one of the five header shapes.
type width uint8

const (
	w5 width = iota
	w8
	w16
	w32
	w64
)

const w5MaxLen = 31 // 5 bits of length embedded in the flags byte

var engine = endian.GetLittleEndianEngine()

// fieldWidth returns the byte width of the len/alloc fields for w, or 0
// for w5 which has none.
func (w width) fieldWidth() int {
	switch w {
	case w8:
		return 1
	case w16:
		return 2
	case w32:
		return 4
	case w64:
		return 8
	default:
		return 0
	}
}

// headerSize is flags byte + len field + alloc field.
func (w width) headerSize() int {
	if w == w5 {
		return 1
	}

	return 1 + 2*w.fieldWidth()
}

func widthFor(n int) width {
	switch {
	case n <= w5MaxLen:
		return w5
	case n < 1<<8:
		return w8
	case n < 1<<16:
		return w16
	case n < 1<<32:
		return w32
	default:
		return w64
	}
}

// String is a binary-safe dynamic string: payload is addressable up to
// Len(), NUL-terminated for C-interop, and may have spare capacity
// (Avail()) reserved for amortised append growth.
type String struct {
	buf []byte // [len][alloc][flags][payload][NUL], field order per w
	w   width
	a   *alloc.Allocator
}

func allocator(a *alloc.Allocator) *alloc.Allocator {
	if a == nil {
		return alloc.New()
	}

	return a
}

// Make builds a new String from bytes, choosing the narrowest header
// width that fits and allocating alloc == len (no spare capacity).
func Make(a *alloc.Allocator, data []byte) *String {
	return makeWithCap(a, data, len(data))
}

// makeWithCap builds a String with len(data) used bytes and room for
// capacity total payload bytes (capacity >= len(data)).
func makeWithCap(a *alloc.Allocator, data []byte, capacity int) *String {
	if capacity < len(data) {
		capacity = len(data)
	}

	w := widthFor(capacity)
	if w == w5 && capacity != len(data) {
		// The 5-bit header has no alloc field; it can't express spare capacity.
		w = w8
	}

	s := &String{w: w, a: allocator(a)}
	s.buf = s.newBuf(len(data), capacity)
	copy(s.payload(), data)

	return s
}

// MakeFromInt64 renders n in base 10 and builds a String from it.
func MakeFromInt64(a *alloc.Allocator, n int64) *String {
	return Make(a, []byte(fmt.Sprintf("%d", n)))
}

func (s *String) newBuf(length, capacity int) []byte {
	hs := s.w.headerSize()
	total := hs + capacity + 1 // +1 for NUL

	buf := s.a.Alloc(total)
	s.setAlloc(buf, capacity)
	s.setLen(buf, length)
	buf[s.flagsOffset()] = byte(s.w) | (lenBitsFor(s.w, length) << 3)

	return buf
}

// lenBitsFor returns the 5-bit embedded length for w5 headers, 0 otherwise.
func lenBitsFor(w width, length int) byte {
	if w != w5 {
		return 0
	}

	return byte(length) //nolint:gosec // length <= w5MaxLen by construction
}

func (s *String) flagsOffset() int {
	return 2 * s.w.fieldWidth()
}

func (s *String) payloadOffset() int {
	return s.flagsOffset() + 1
}

func (s *String) payload() []byte {
	off := s.payloadOffset()
	return s.buf[off : off+s.Len()]
}

// Bytes returns the used payload as a slice sharing the string's
// backing array. Callers must not retain it across a mutating call.
func (s *String) Bytes() []byte {
	return s.payload()
}

func (s *String) setLen(buf []byte, n int) {
	if s.w == w5 {
		buf[0] = byte(s.w) | (lenBitsFor(w5, n) << 3)
		return
	}

	putUintWidth(buf[0:s.w.fieldWidth()], s.w, uint64(n))
}

func (s *String) setAlloc(buf []byte, n int) {
	if s.w == w5 {
		return
	}

	fw := s.w.fieldWidth()
	putUintWidth(buf[fw:2*fw], s.w, uint64(n))
}

func putUintWidth(dst []byte, w width, v uint64) {
	switch w {
	case w8:
		dst[0] = byte(v)
	case w16:
		engine.PutUint16(dst, uint16(v))
	case w32:
		engine.PutUint32(dst, uint32(v))
	case w64:
		engine.PutUint64(dst, v)
	}
}

func getUintWidth(src []byte, w width) uint64 {
	switch w {
	case w8:
		return uint64(src[0])
	case w16:
		return uint64(engine.Uint16(src))
	case w32:
		return uint64(engine.Uint32(src))
	case w64:
		return engine.Uint64(src)
	default:
		return 0
	}
}

// Len returns the number of used payload bytes.
func (s *String) Len() int {
	if s.w == w5 {
		return int(s.buf[0] >> 3)
	}

	return int(getUintWidth(s.buf[0:s.w.fieldWidth()], s.w))
}

// Avail returns the number of spare capacity bytes (alloc - len).
func (s *String) Avail() int {
	if s.w == w5 {
		return 0
	}

	fw := s.w.fieldWidth()
	allocN := int(getUintWidth(s.buf[fw:2*fw], s.w))

	return allocN - s.Len()
}

// Dup returns a deep copy.
func (s *String) Dup() *String {
	return makeWithCap(s.a, s.Bytes(), s.allocCap())
}

func (s *String) allocCap() int {
	return s.Len() + s.Avail()
}

// Free releases the string's backing buffer.
func (s *String) Free() {
	if s.buf != nil {
		s.a.Free(s.buf)
		s.buf = nil
	}
}

// MakeRoomFor implements spec.md §4.2's make_room_for(extra) growth
// algorithm: amortised doubling below 1MiB, linear 1MiB increments
// above it, upgrading the header width when the new capacity no longer
// fits the current one. It never downgrades to the 5-bit header.
func (s *String) MakeRoomFor(extra int) {
	if s.Avail() >= extra {
		return
	}

	curLen := s.Len()
	newLen := curLen + extra

	const oneMiB = 1 << 20

	var newCap int
	if newLen < oneMiB {
		newCap = newLen * 2
	} else {
		newCap = newLen + oneMiB
	}

	newWidth := widthFor(newCap)
	if s.w != w5 && newWidth < s.w {
		newWidth = s.w // never shrink the header width on growth
	}
	if newWidth == w5 {
		newWidth = w8 // rule 6: 5-bit variant can't carry spare capacity
	}

	old := s.Bytes()
	s.w = newWidth
	newBuf := s.newBuf(curLen, newCap)
	copy(newBuf[s.payloadOffset():], old)
	s.a.Free(s.buf)
	s.buf = newBuf

	// Clamp recorded capacity to the allocator's actual usable size, per
	// step 7 of spec.md §4.2's algorithm, without exceeding the header's
	// representable maximum for the chosen width.
	usable := s.a.UsableSize(s.buf) - s.w.headerSize() - 1
	maxRepresentable := representableMax(s.w)
	if usable > maxRepresentable {
		usable = maxRepresentable
	}
	if usable > newCap {
		s.setAlloc(s.buf, usable)
	}
}

func representableMax(w width) int {
	switch w {
	case w8:
		return 1<<8 - 1
	case w16:
		return 1<<16 - 1
	case w32:
		return 1<<32 - 1
	default:
		return int(^uint(0) >> 1)
	}
}

// Append appends data, growing the buffer via MakeRoomFor when needed.
func (s *String) Append(data []byte) {
	if len(data) == 0 {
		return
	}

	s.MakeRoomFor(len(data))

	off := s.payloadOffset() + s.Len()
	copy(s.buf[off:off+len(data)], data)
	s.buf[off+len(data)] = 0 // NUL terminator

	s.setLen(s.buf, s.Len()+len(data))
}

// AppendInt64 appends the base-10 rendering of n.
func (s *String) AppendInt64(n int64) {
	s.Append([]byte(fmt.Sprintf("%d", n)))
}

// AppendFormat appends fmt.Sprintf(format, args...).
func (s *String) AppendFormat(format string, args ...any) {
	s.Append([]byte(fmt.Sprintf(format, args...)))
}

// CopyOver overwrites the string's content with data in place,
// growing first if data is longer than the current capacity.
func (s *String) CopyOver(data []byte) {
	if len(data) > s.Len()+s.Avail() {
		s.MakeRoomFor(len(data) - s.Len())
	}

	off := s.payloadOffset()
	copy(s.buf[off:off+len(data)], data)
	s.buf[off+len(data)] = 0
	s.setLen(s.buf, len(data))
}

// Trim removes leading and trailing bytes found in cutSet, shrinking
// the string's length field in place (no reallocation).
func (s *String) Trim(cutSet string) {
	trimmed := strings.Trim(string(s.Bytes()), cutSet)
	s.shrinkInPlace([]byte(trimmed))
}

// shrinkInPlace moves data to the front of the payload and updates len.
// Only ever called with data that is already a subslice/copy no longer
// than the current length, so it never needs to grow.
func (s *String) shrinkInPlace(data []byte) {
	off := s.payloadOffset()
	copy(s.buf[off:off+len(data)], data)
	s.buf[off+len(data)] = 0
	s.setLen(s.buf, len(data))
}

// Range keeps only the byte range [start, end] (inclusive, 0-based;
// negative indices count from the end, as in the original command
// semantics this type backs).
func (s *String) Range(start, end int) {
	length := s.Len()

	start = clampIndex(start, length)
	end = clampIndex(end, length)

	if start > end || length == 0 {
		s.shrinkInPlace(nil)
		return
	}

	s.shrinkInPlace(append([]byte(nil), s.Bytes()[start:end+1]...))
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}

	if i < 0 {
		i = 0
	}

	if i >= length {
		i = length - 1
	}

	return i
}

// Compare performs a byte-wise comparison, like bytes.Compare.
func (s *String) Compare(other *String) int {
	a, b := s.Bytes(), other.Bytes()

	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}

// Split splits on sep, returning new Strings (not slices of this one).
func (s *String) Split(sep string) []*String {
	parts := strings.Split(string(s.Bytes()), sep)
	out := make([]*String, len(parts))

	for i, p := range parts {
		out[i] = Make(s.a, []byte(p))
	}

	return out
}

// ToLower ASCII-lowercases the payload in place.
func (s *String) ToLower() {
	b := s.payload()
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
}

// ToUpper ASCII-uppercases the payload in place.
func (s *String) ToUpper() {
	b := s.payload()
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
}

// CatRepr renders the payload as a C-escaped, quoted representation,
// suitable for the crash-diagnostic dumpers spec.md §6 calls for.
func (s *String) CatRepr() string {
	var sb strings.Builder

	sb.WriteByte('"')

	for _, c := range s.Bytes() {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c >= 32 && c < 127:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}

	sb.WriteByte('"')

	return sb.String()
}

// ShrinkToFit reallocates to a buffer with Avail() == 0, and possibly a
// narrower header width. Idempotent: a second call is a no-op (spec.md
// §8 property 7).
func (s *String) ShrinkToFit() {
	if s.Avail() == 0 && s.w == widthFor(s.Len()) {
		return
	}

	*s = *makeWithCap(s.a, s.Bytes(), s.Len())
}

package object

import (
	"strconv"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/sds"
)

// NewString builds a STRING header holding data, choosing the
// narrowest legal encoding per spec.md §4.11.3: INT if data parses as
// a base-10 int64 that round-trips exactly, EMBSTR if it fits within
// thresholds.EmbstrMaxLen, otherwise RAW.
func NewString(a *alloc.Allocator, data []byte, thresholds Thresholds) *Header {
	if n, ok := parseExactInt64(data); ok {
		return newHeader(TypeString, EncodingInt, n)
	}

	if len(data) <= thresholds.EmbstrMaxLen {
		return newHeader(TypeString, EncodingEmbstr, sds.Make(a, data))
	}

	return newHeader(TypeString, EncodingRaw, sds.Make(a, data))
}

// parseExactInt64 reports whether data is the canonical base-10
// decimal rendering of some int64 — i.e. strconv.FormatInt(n, 10)
// reproduces data byte-for-byte, so no information (leading zeros,
// "+" sign, whitespace) is lost by representing it as INT.
func parseExactInt64(data []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false
	}

	if strconv.FormatInt(n, 10) != string(data) {
		return 0, false
	}

	return n, true
}

// StringBytes returns h's value as bytes regardless of encoding. h
// must be a STRING header.
func StringBytes(h *Header) []byte {
	switch h.Encoding {
	case EncodingInt:
		return []byte(strconv.FormatInt(h.ptr.(int64), 10))
	case EncodingEmbstr, EncodingRaw:
		return h.ptr.(*sds.String).Bytes()
	default:
		panic("object: StringBytes on non-string encoding")
	}
}

// StringLen returns the logical length of h's value.
func StringLen(h *Header) int {
	if h.Encoding == EncodingInt {
		return len(strconv.FormatInt(h.ptr.(int64), 10))
	}

	return h.ptr.(*sds.String).Len()
}

// StringAppend appends data to h's value, promoting INT or EMBSTR to
// RAW first per spec.md §4.11.3 — an append invalidates both the
// immediate-integer representation and EMBSTR's "co-allocated,
// read-only" contract.
func StringAppend(a *alloc.Allocator, h *Header, data []byte) {
	if h.Type != TypeString {
		panic("object: StringAppend on non-string header")
	}

	if h.Encoding != EncodingRaw {
		promoteStringToRaw(a, h)
	}

	h.ptr.(*sds.String).Append(data)
}

func promoteStringToRaw(a *alloc.Allocator, h *Header) {
	cur := StringBytes(h)

	if h.Encoding == EncodingEmbstr {
		// The existing sds.String is already a usable RAW body; only
		// the encoding tag needs to change.
		h.Encoding = EncodingRaw

		return
	}

	h.ptr = sds.Make(a, cur)
	h.Encoding = EncodingRaw
}

// MaybeDemoteToShared attempts to fold h's value to the shared small
// integer range, returning the canonical Header to use in its place
// (h itself if no demotion applies). Wiring this into a real store's
// key-assignment path is the caller's responsibility; object does not
// track "reachability" itself.
func MaybeDemoteToShared(h *Header, thresholds Thresholds, lookup func(int64) (*Header, bool)) *Header {
	if h.Encoding != EncodingInt {
		return h
	}

	n := h.ptr.(int64)
	if n < 0 || n >= thresholds.SharedIntMax {
		return h
	}

	if shared, ok := lookup(n); ok {
		return shared
	}

	return h
}

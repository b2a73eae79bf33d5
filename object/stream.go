package object

import (
	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/stream"
)

// NewStream builds an empty STREAM header. STREAM has exactly one
// legal encoding, the radix substrate, per spec.md §4.11.1.
func NewStream(a *alloc.Allocator) *Header {
	return newHeader(TypeStream, EncodingStreamRadix, stream.New(a))
}

// StreamBody returns h's underlying *stream.Stream for append/range/trim.
func StreamBody(h *Header) *stream.Stream {
	if h.Type != TypeStream {
		panic("object: StreamBody on non-stream header")
	}

	return h.ptr.(*stream.Stream)
}

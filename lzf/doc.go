// Package lzf provides the opaque interior-node compressor used by quicklist.
//
// The spec models quicklist compression as an opaque codec: anything that
// compresses a byte buffer and reports failure when the result is not
// smaller than input+8 bytes is acceptable (spec.md §4.9.3, §9). This
// package offers three real, selectable codecs backed by the pack's
// compression libraries (LZ4, S2, Zstd) plus a NoOp codec for testing, and
// a NotSmallerEnough helper implementing the "smaller-enough" acceptance
// rule shared by all of them.
package lzf

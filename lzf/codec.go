package lzf

import "fmt"

// Codec compresses a contiguous span of bytes and reverses the operation.
//
// Implementations are the "opaque LZF-class codec" spec.md §4.9.3 and §9
// describe: the quicklist node compressor does not depend on a specific
// algorithm, only on Compress/Decompress round-tripping and Compress
// reporting whether the result was worth keeping.
type Codec interface {
	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)
	// Decompress reverses Compress.
	Decompress(data []byte) ([]byte, error)
}

// Kind identifies a built-in Codec implementation.
type Kind uint8

const (
	None Kind = iota
	LZ4
	S2
	Zstd
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case S2:
		return "s2"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// New returns the built-in Codec for kind.
func New(kind Kind) (Codec, error) {
	switch kind {
	case None:
		return NoOpCodec{}, nil
	case LZ4:
		return LZ4Codec{}, nil
	case S2:
		return S2Codec{}, nil
	case Zstd:
		return ZstdCodec{}, nil
	default:
		return nil, fmt.Errorf("lzf: unknown codec kind %d", kind)
	}
}

// NotSmallerEnough reports true when compressing srcLen bytes produced
// dstLen >= srcLen+8 bytes, per spec.md §4.9.3; a node for which it
// reports true keeps its raw form.
func NotSmallerEnough(srcLen, dstLen int) bool {
	return dstLen >= srcLen+8
}

package lzf

import "github.com/klauspost/compress/s2"

// S2Codec trades a little of LZ4's decompression speed for a better
// ratio; selectable via quicklist.WithCodec when interior-node
// memory pressure matters more than pop/push latency.
type S2Codec struct{}

var _ Codec = S2Codec{}

func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}

package lzf

// NoOpCodec bypasses compression, returning input unchanged.
//
// Used by tests and by quicklist nodes that have already failed the
// "smaller-enough" check (spec.md §4.9.3) and should keep their raw form.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

func (NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

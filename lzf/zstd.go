package lzf

// ZstdCodec gives the best compression ratio of the three selectable
// quicklist node codecs, at the cost of being the slowest to run on
// every push/insert. Compress/Decompress are implemented per build tag
// in zstd_cgo.go (cgo, via valyala/gozstd) and zstd_pure.go (no cgo, via
// klauspost/compress/zstd), mirroring the two zstd bindings the pack
// carries.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// Package hash provides the non-cryptographic digest used as the hash
// table's default bucket hash (spec.md §3.7's dict `type` vtable
// supplies a hash function; this is corekv's built-in one). The
// shared-object registry (spec.md §3.11) uses Go maps, not this hash.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of data, used to place a key into a hash
// table bucket. String identity hashing for the engine's siphash-based
// key digest lives in package siphash; this one is the fast path for
// internal bucket placement where cryptographic resistance to
// hash-flooding is not required.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

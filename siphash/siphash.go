// Package siphash implements SipHash-2-4 (spec.md §4.12), seeded once
// at process startup with a 128-bit key, plus a case-insensitive
// variant that folds ASCII letters to lower case during absorption.
//
// Within this module only package engine uses it, to install the
// process-wide seed; stream and radix do not hash their keys with it.
// Package hash's xxhash wrapper is the fast, non-adversarial path used
// internally by the hash table.
package siphash

import "encoding/binary"

// Seed is a 128-bit SipHash key.
type Seed struct {
	K0, K1 uint64
}

var processSeed Seed

// SetProcessSeed installs the process-wide seed, expected to be called
// once at startup (spec.md §4.12: "a process-wide 128-bit seed set once
// at startup").
func SetProcessSeed(s Seed) {
	processSeed = s
}

// Sum64 hashes data with the process-wide seed.
func Sum64(data []byte) uint64 {
	return sum64(processSeed, data, false)
}

// Sum64CaseInsensitive hashes data as if every ASCII letter were
// lower-cased first, without allocating a lower-cased copy.
func Sum64CaseInsensitive(data []byte) uint64 {
	return sum64(processSeed, data, true)
}

// Sum64WithSeed hashes data with an explicit seed, for tests and for
// callers that need a hash independent of the process-wide seed.
func Sum64WithSeed(s Seed, data []byte) uint64 {
	return sum64(s, data, false)
}

func rotl(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

func sum64(seed Seed, data []byte, foldCase bool) uint64 {
	v0 := seed.K0 ^ 0x736f6d6570736575
	v1 := seed.K1 ^ 0x646f72616e646f6d
	v2 := seed.K0 ^ 0x6c7967656e657261
	v3 := seed.K1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = rotl(v1, 13)
		v1 ^= v0
		v0 = rotl(v0, 32)
		v2 += v3
		v3 = rotl(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = rotl(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = rotl(v1, 17)
		v1 ^= v2
		v2 = rotl(v2, 32)
	}

	n := len(data)
	end := n - n%8

	buf := make([]byte, 8)

	for i := 0; i < end; i += 8 {
		copy(buf, data[i:i+8])
		if foldCase {
			foldASCII(buf)
		}

		m := binary.LittleEndian.Uint64(buf)

		v3 ^= m
		round()
		round()
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[end:])
	last[7] = byte(n)

	if foldCase {
		foldASCII(last[:7])
	}

	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	round()
	round()
	v0 ^= m

	v2 ^= 0xff

	round()
	round()
	round()
	round()

	return v0 ^ v1 ^ v2 ^ v3
}

func foldASCII(b []byte) {
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
}

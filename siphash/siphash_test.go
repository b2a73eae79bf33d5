package siphash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum64_IsDeterministic(t *testing.T) {
	seed := Seed{K0: 1, K1: 2}

	h1 := Sum64WithSeed(seed, []byte("hello world"))
	h2 := Sum64WithSeed(seed, []byte("hello world"))

	require.Equal(t, h1, h2)
}

func TestSum64_DifferentSeedsDiverge(t *testing.T) {
	h1 := Sum64WithSeed(Seed{K0: 1, K1: 2}, []byte("key"))
	h2 := Sum64WithSeed(Seed{K0: 3, K1: 4}, []byte("key"))

	require.NotEqual(t, h1, h2)
}

func TestSum64_VariesWithLength(t *testing.T) {
	seed := Seed{K0: 1, K1: 2}

	hashes := map[uint64]bool{}
	for i := 0; i < 16; i++ {
		data := make([]byte, i)
		hashes[Sum64WithSeed(seed, data)] = true
	}

	require.Greater(t, len(hashes), 10, "hashing should be sensitive to input length")
}

func TestSum64CaseInsensitive_FoldsASCII(t *testing.T) {
	processSeed = Seed{K0: 42, K1: 99}

	require.Equal(t, Sum64CaseInsensitive([]byte("Hello")), Sum64CaseInsensitive([]byte("hello")))
	require.Equal(t, Sum64CaseInsensitive([]byte("HELLO")), Sum64CaseInsensitive([]byte("hello")))
}

func TestSetProcessSeed(t *testing.T) {
	SetProcessSeed(Seed{K0: 7, K1: 8})
	defer SetProcessSeed(Seed{})

	require.Equal(t, Sum64([]byte("x")), Sum64WithSeed(Seed{K0: 7, K1: 8}, []byte("x")))
}

package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/zeebo/xxh3"
)

// Hasher derives the two hash values the store needs from a key.
//
// IndexHashes returns two independent 32-bit bucket hashes computed in a
// single pass over the key. TagHash comes from a separate hash family so
// fingerprints stay uncorrelated with bucket placement. Both functions must
// be deterministic - the same key always hashes the same way.
type Hasher[K comparable] interface {
	IndexHashes(key K) (uint32, uint32)
	TagHash(key K) uint64
}

// U64 hashes uint64 keys. The two index hashes are the halves of a single
// 128-bit xxh3 over the little-endian encoding of the key.
type U64 struct{}

func (U64) IndexHashes(key uint64) (uint32, uint32) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h := xxh3.Hash128(buf[:])
	return uint32(h.Lo), uint32(h.Hi)
}

func (U64) TagHash(key uint64) uint64 {
	return fnv1a.HashUint64(key)
}

// String hashes string keys.
type String struct{}

func (String) IndexHashes(key string) (uint32, uint32) {
	h := xxh3.HashString128(key)
	return uint32(h.Lo), uint32(h.Hi)
}

func (String) TagHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

var (
	_ Hasher[uint64] = U64{}
	_ Hasher[string] = String{}
)

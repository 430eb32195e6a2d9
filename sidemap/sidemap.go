package sidemap

import (
	"sync"

	"tagstore/lib/utils/math"
)

// Map is the key/value side of the store, addressed by the same
// (bucket, slot) coordinates as the fingerprint table. It mirrors the table's
// occupancy: whenever a slot holds a non-zero tag, an entry is expected to
// exist at that coordinate.
//
// Read on a coordinate with no entry returns zero values; callers must only
// read coordinates whose tag is non-zero.
type Map[K comparable, V any] interface {
	Add(bucket uint32, slot int, key K, val V)
	Read(bucket uint32, slot int) (K, V)
	Del(bucket uint32, slot int)
}

type entry[K comparable, V any] struct {
	key K
	val V
}

type shard[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[uint64]entry[K, V]
}

// Sharded is an in-memory Map split into power-of-two shards, each guarded by
// its own RWMutex. Shards are picked by bucket index so a bucket's four slots
// always live on the same shard.
type Sharded[K comparable, V any] struct {
	shards []shard[K, V]
	mask   uint64
}

func NewSharded[K comparable, V any](numShards uint64) *Sharded[K, V] {
	numShards = math.NextPowerOf2(numShards)
	m := &Sharded[K, V]{
		shards: make([]shard[K, V], numShards),
		mask:   numShards - 1,
	}
	for i := range m.shards {
		m.shards[i].data = make(map[uint64]entry[K, V])
	}
	return m
}

// coord packs a (bucket, slot) pair into one map key. Slots are 0..3 so two
// bits suffice.
func coord(bucket uint32, slot int) uint64 {
	return uint64(bucket)<<2 | uint64(slot)
}

func (m *Sharded[K, V]) shard(bucket uint32) *shard[K, V] {
	return &m.shards[uint64(bucket)&m.mask]
}

func (m *Sharded[K, V]) Add(bucket uint32, slot int, key K, val V) {
	s := m.shard(bucket)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[coord(bucket, slot)] = entry[K, V]{key: key, val: val}
}

func (m *Sharded[K, V]) Read(bucket uint32, slot int) (K, V) {
	s := m.shard(bucket)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.data[coord(bucket, slot)]
	return e.key, e.val
}

func (m *Sharded[K, V]) Del(bucket uint32, slot int) {
	s := m.shard(bucket)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, coord(bucket, slot))
}

// Len reports the number of entries across all shards.
func (m *Sharded[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		n += len(m.shards[i].data)
		m.shards[i].mu.RUnlock()
	}
	return n
}

var _ Map[uint64, uint64] = (*Sharded[uint64, uint64])(nil)

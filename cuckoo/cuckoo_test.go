package cuckoo

import (
	"math/rand"
	"testing"

	"tagstore/lib/hash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, maxKeys uint64) *Store[uint64, uint64] {
	s, err := New[uint64, uint64](maxKeys, hash.U64{}, DefaultOptions().WithSeed(1729))
	require.NoError(t, err)
	return s
}

func TestInsertFindErase(t *testing.T) {
	s := testStore(t, 1024)

	assert.True(t, s.Insert(1, 100))
	v, ok := s.Find(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(100), v)

	_, ok = s.Find(2)
	assert.False(t, ok)

	assert.True(t, s.Erase(1))
	_, ok = s.Find(1)
	assert.False(t, ok)
}

func TestTwoKeys(t *testing.T) {
	s := testStore(t, 1024)
	assert.True(t, s.Insert(7, 70))
	assert.True(t, s.Insert(42, 42))

	v, ok := s.Find(7)
	assert.True(t, ok)
	assert.Equal(t, uint64(70), v)
	v, ok = s.Find(42)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)

	// order of lookups does not matter
	v, ok = s.Find(42)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)
	v, ok = s.Find(7)
	assert.True(t, ok)
	assert.Equal(t, uint64(70), v)
}

func TestTagDerivation(t *testing.T) {
	s := testStore(t, 16)
	// with 12-bit tags, each nibble-triple of the hash becomes one tag,
	// low bits first
	tags := s.tagsFrom(0x000_00F_00E_00D_00C)
	assert.Equal(t, [4]uint32{0xC, 0xD, 0xE, 0xF}, tags)
}

func TestZeroTagMapsToOne(t *testing.T) {
	s := testStore(t, 16)
	tags := s.tagsFrom(0)
	assert.Equal(t, [4]uint32{1, 1, 1, 1}, tags)
	// only the zero slots are remapped
	tags = s.tagsFrom(0x00A_000_00B_000)
	assert.Equal(t, [4]uint32{1, 0xB, 1, 0xA}, tags)
}

func TestTinyCapacityHints(t *testing.T) {
	for _, hint := range []uint64{0, 1, 2, 3, 4} {
		s := testStore(t, hint)
		assert.True(t, s.Insert(99, 1), "hint=%d", hint)
		v, ok := s.Find(99)
		assert.True(t, ok)
		assert.Equal(t, uint64(1), v)
	}
}

func TestManyKeys(t *testing.T) {
	const n = 1000
	s := testStore(t, 2048)
	rng := rand.New(rand.NewSource(42))
	keys := make(map[uint64]uint64, n)
	for len(keys) < n {
		k := rng.Uint64()
		if _, ok := keys[k]; ok {
			continue
		}
		keys[k] = rng.Uint64()
		require.True(t, s.Insert(k, keys[k]))
	}
	assert.Equal(t, uint64(n), s.Size())
	for k, want := range keys {
		v, ok := s.Find(k)
		require.True(t, ok, "key %d lost", k)
		require.Equal(t, want, v)
	}
}

func TestFilterIsSupersetOfMap(t *testing.T) {
	s := testStore(t, 2048)
	rng := rand.New(rand.NewSource(7))
	keys := make([]uint64, 0, 500)
	for i := 0; i < 500; i++ {
		k := rng.Uint64()
		keys = append(keys, k)
		require.True(t, s.Insert(k, k+1))
	}
	for _, k := range keys {
		_, found := s.Find(k)
		require.True(t, found)
		// whenever the exact map answers yes, the filter must too
		require.True(t, s.FindInFilter(k))
	}
}

func TestFindInFilterDoesNotMutate(t *testing.T) {
	s := testStore(t, 256)
	rng := rand.New(rand.NewSource(11))
	for i := uint64(0); i < 100; i++ {
		require.True(t, s.Insert(i, i*i))
	}
	before := dumpTags(s)
	for i := 0; i < 1000; i++ {
		s.FindInFilter(rng.Uint64())
	}
	assert.Equal(t, before, dumpTags(s))
	assert.Equal(t, uint64(100), s.Size())
}

// dumpTags snapshots the whole fingerprint table.
func dumpTags(s *Store[uint64, uint64]) []uint32 {
	out := make([]uint32, 0, s.table.SizeInTags())
	for i := uint32(0); i < s.table.NumBuckets(); i++ {
		for slot := 0; slot < 4; slot++ {
			out = append(out, s.table.ReadTag(i, slot))
		}
	}
	return out
}

func TestIdempotentErase(t *testing.T) {
	s := testStore(t, 64)
	require.True(t, s.Insert(5, 50))
	assert.True(t, s.Erase(5))
	assert.False(t, s.Erase(5))
}

func TestReinsertAfterErase(t *testing.T) {
	s := testStore(t, 64)
	require.True(t, s.Insert(5, 50))
	require.True(t, s.Erase(5))
	require.True(t, s.Insert(5, 51))
	v, ok := s.Find(5)
	assert.True(t, ok)
	assert.Equal(t, uint64(51), v)
}

func TestRepeatedFindsAreStable(t *testing.T) {
	// remediation may reshuffle siblings but a stored key stays findable
	// with the same value
	s := testStore(t, 1024)
	rng := rand.New(rand.NewSource(3))
	for i := uint64(0); i < 400; i++ {
		require.True(t, s.Insert(i, i+1000))
	}
	for i := 0; i < 1000; i++ {
		// misses against a loaded table trigger remediations
		s.Find(rng.Uint64())
	}
	for i := uint64(0); i < 400; i++ {
		v1, ok1 := s.Find(i)
		v2, ok2 := s.Find(i)
		require.True(t, ok1)
		require.True(t, ok2)
		require.Equal(t, v1, v2)
		require.Equal(t, i+1000, v1)
	}
}

func TestSizeTracksErases(t *testing.T) {
	s := testStore(t, 64)
	for i := uint64(0); i < 10; i++ {
		require.True(t, s.Insert(i, i))
	}
	assert.Equal(t, uint64(10), s.Size())
	for i := uint64(0); i < 5; i++ {
		require.True(t, s.Erase(i))
	}
	assert.Equal(t, uint64(5), s.Size())
	assert.InDelta(t, 5.0/float64(s.table.SizeInTags()), s.LoadFactor(), 1e-9)
}

func TestInfo(t *testing.T) {
	s := testStore(t, 64)
	assert.Contains(t, s.Info(), "bit/key: N/A")
	require.True(t, s.Insert(1, 2))
	info := s.Info()
	assert.Contains(t, info, "Keys stored: 1")
	assert.Contains(t, info, "Load factor")
}

func TestFalsePositiveRate(t *testing.T) {
	if testing.Short() {
		t.Skip("100k-key sweep")
	}
	const n = 100_000
	s := testStore(t, 1<<17)
	rng := rand.New(rand.NewSource(123))
	seen := make(map[uint64]bool, 2*n)
	for i := 0; i < n; i++ {
		k := rng.Uint64()
		for seen[k] {
			k = rng.Uint64()
		}
		seen[k] = true
		require.True(t, s.Insert(k, k>>1))
	}
	for k := range seen {
		v, ok := s.Find(k)
		require.True(t, ok, "key %d lost", k)
		require.Equal(t, k>>1, v)
	}
	falsePositives := 0
	for i := 0; i < n; i++ {
		k := rng.Uint64()
		for seen[k] {
			k = rng.Uint64()
		}
		if _, ok := s.Find(k); ok {
			falsePositives++
		}
	}
	// exact lookups verify keys against the side map, so a false positive
	// needs an actual key collision - effectively never at 64 bits
	assert.Less(t, float64(falsePositives)/n, 0.01)
}

package cuckoo

import (
	"fmt"
	"math/rand"

	"tagstore/lib/hash"
	"tagstore/lib/utils/math"
	"tagstore/sidemap"
	"tagstore/tagtable"

	"github.com/samber/mo"
	"go.uber.org/atomic"
)

// maxKicks is the maximum number of cuckoo relocations before an insert
// parks the displaced entry in the victim cache.
const maxKicks = 500

// victim holds the single entry that could not be placed after maxKicks
// relocations. tagHash is kept so the entry's fingerprints can be re-derived
// when erase frees up space.
type victim[K comparable, V any] struct {
	index   uint32
	tagHash uint64
	key     K
	val     V
}

// Store is an exact key/value map backed by two coupled structures: a
// bit-packed cuckoo fingerprint table and a side map holding the full keys
// and values at the same (bucket, slot) coordinates. Negative lookups are
// resolved from the fingerprint table alone; positive lookups are confirmed
// against the side map, and any fingerprint match that turns out to be a
// different key gets reshuffled within its bucket to make the collision less
// likely to recur.
//
// A Store is single-threaded: Find and Contains reshuffle bucket contents on
// false positives, so even lookups mutate. Callers wanting concurrent access
// must hold one exclusive lock around all operations. FindInFilter only
// reads the fingerprint table, but its tag reads are plain loads and may be
// torn by a concurrent writer.
type Store[K comparable, V any] struct {
	table    tagtable.Table
	entries  sidemap.Map[K, V]
	hasher   hash.Hasher[K]
	rng      *rand.Rand
	victim   mo.Option[victim[K, V]]
	numItems atomic.Uint64

	indexMask  uint32
	bitsPerTag uint32
	tagMask    uint64

	opts  Options
	stats stats
}

// New builds a store sized for maxKeys entries. The number of buckets is the
// smallest power of two holding maxKeys four-slot buckets, doubled if the
// resulting load factor would exceed 0.96.
func New[K comparable, V any](maxKeys uint64, hasher hash.Hasher[K], opts Options) (*Store[K, V], error) {
	if hasher == nil {
		return nil, fmt.Errorf("hasher can not be nil")
	}
	if maxKeys == 0 {
		maxKeys = 1
	}
	numBuckets := math.NextPowerOf2(maxKeys / tagtable.TagsPerBucket)
	if float64(maxKeys)/float64(numBuckets*tagtable.TagsPerBucket) > 0.96 {
		numBuckets <<= 1
	}
	if numBuckets > 1<<31 {
		return nil, fmt.Errorf("capacity hint %d needs more than 2^31 buckets", maxKeys)
	}
	table, err := tagtable.NewPacked(uint32(numBuckets), opts.BitsPerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to build fingerprint table: %w", err)
	}
	s := &Store[K, V]{
		table:      table,
		entries:    sidemap.NewSharded[K, V](opts.NumShards),
		hasher:     hasher,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		victim:     mo.None[victim[K, V]](),
		indexMask:  uint32(numBuckets - 1),
		bitsPerTag: opts.BitsPerTag,
		tagMask:    uint64(1)<<opts.BitsPerTag - 1,
		opts:       opts,
	}
	if opts.ReportStats {
		go s.reportStats()
	}
	return s, nil
}

// derive computes the two bucket indices, the per-slot tag array and the raw
// tag hash for a key. The two indices come from independent halves of one
// index hash and are not related by xor folding.
func (s *Store[K, V]) derive(key K) (i1, i2 uint32, tags [tagtable.TagsPerBucket]uint32, tagHash uint64) {
	h1, h2 := s.hasher.IndexHashes(key)
	i1 = h1 & s.indexMask
	i2 = h2 & s.indexMask
	tagHash = s.hasher.TagHash(key)
	tags = s.tagsFrom(tagHash)
	return i1, i2, tags, tagHash
}

// tagsFrom unpacks the four per-slot tags from a tag hash, low bits first.
// A zero tag would collide with the empty-slot sentinel, so it maps to 1.
func (s *Store[K, V]) tagsFrom(tagHash uint64) (tags [tagtable.TagsPerBucket]uint32) {
	for i := range tags {
		tags[i] = uint32(tagHash & s.tagMask)
		if tags[i] == 0 {
			tags[i] = 1
		}
		tagHash >>= s.bitsPerTag
	}
	return tags
}

// victimMatches reports whether the parked victim is the queried key.
func (s *Store[K, V]) victimMatches(key K, i1, i2 uint32) (victim[K, V], bool) {
	vic, ok := s.victim.Get()
	if !ok || vic.key != key {
		return victim[K, V]{}, false
	}
	if vic.index != i1 && vic.index != i2 {
		return victim[K, V]{}, false
	}
	return vic, true
}

// Size returns the number of entries currently stored, including a parked
// victim.
func (s *Store[K, V]) Size() uint64 {
	return s.numItems.Load()
}

// SizeInBytes returns the memory footprint of the fingerprint table. The
// side map is not included.
func (s *Store[K, V]) SizeInBytes() uint64 {
	return s.table.SizeInBytes()
}

// LoadFactor is the fraction of table slots occupied.
func (s *Store[K, V]) LoadFactor() float64 {
	return float64(s.Size()) / float64(s.table.SizeInTags())
}

func (s *Store[K, V]) bitsPerKey() float64 {
	return 8 * float64(s.table.SizeInBytes()) / float64(s.Size())
}

// Info returns a human-readable summary of the store.
func (s *Store[K, V]) Info() string {
	bitsPerKey := "N/A"
	if s.Size() > 0 {
		bitsPerKey = fmt.Sprintf("%.2f", s.bitsPerKey())
	}
	return fmt.Sprintf(
		"TagStore status:\n"+
			"\t\t%s\n"+
			"\t\tKeys stored: %d\n"+
			"\t\tLoad factor: %.4f\n"+
			"\t\tTable size: %d KB\n"+
			"\t\tbit/key: %s\n",
		s.table.Info(), s.Size(), s.LoadFactor(), s.table.SizeInBytes()>>10, bitsPerKey)
}

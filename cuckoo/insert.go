package cuckoo

import (
	"github.com/samber/mo"

	"tagstore/tagtable"
)

// Insert stores (key, val). It returns false only when the victim cache was
// already occupied on entry, i.e. the structure is effectively full. An
// insert whose relocation chain exhausts still returns true: the displaced
// entry is parked in the victim cache and remains findable through it.
//
// Inserting a key that is already present stores a second, independent copy;
// callers that need upsert semantics should Erase first.
func (s *Store[K, V]) Insert(key K, val V) bool {
	if s.victim.IsPresent() {
		return false
	}
	i1, _, tags, tagHash := s.derive(key)
	return s.insertImpl(key, val, i1, tags, tagHash)
}

func (s *Store[K, V]) insertImpl(key K, val V, index uint32, tags [tagtable.TagsPerBucket]uint32, tagHash uint64) bool {
	curKey, curVal := key, val
	curIndex, curTags, curTagHash := index, tags, tagHash

	for count := 0; count < maxKicks; count++ {
		evict := -1
		if count > 0 {
			evict = s.rng.Intn(tagtable.TagsPerBucket)
		}
		slot, out := s.table.Insert(curIndex, curTags, evict)
		if out == tagtable.Placed {
			s.entries.Add(curIndex, slot, curKey, curVal)
			s.numItems.Inc()
			return true
		}
		if out == tagtable.Kicked {
			// The tag at (curIndex, slot) is already overwritten, but the side
			// map still holds the displaced entry. Read it out before the side
			// map catches up with the table.
			oldKey, oldVal := s.entries.Read(curIndex, slot)
			s.entries.Add(curIndex, slot, curKey, curVal)
			curKey, curVal = oldKey, oldVal
			maybeInc(shouldSample(), &s.stats.kicks)
		}
		// Move the carried key to its alternate bucket.
		i1, i2, tags, tagHash := s.derive(curKey)
		curTags, curTagHash = tags, tagHash
		if curIndex == i1 {
			curIndex = i2
		} else {
			curIndex = i1
		}
	}

	s.victim = mo.Some(victim[K, V]{
		index:   curIndex,
		tagHash: curTagHash,
		key:     curKey,
		val:     curVal,
	})
	s.numItems.Inc()
	s.stats.victimParks.Inc()
	return true
}

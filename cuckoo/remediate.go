package cuckoo

import "tagstore/tagtable"

// remediate reshuffles a false-positive site: (index, slot) held a tag that
// matched some queried key's fingerprint while the stored key differed.
// Moving the resident to a sibling slot changes its fingerprint - tags are
// derived per slot - so the aliasing tag disappears from (index, slot) and
// the same lookup is unlikely to collide there again.
//
// The resident of the chosen sibling slot, if any, moves to (index, slot) in
// exchange. Both keys already had index among their candidate buckets, so
// the table/side-map coupling stays intact.
func (s *Store[K, V]) remediate(index uint32, slot int) {
	// An earlier remediation in the same pass may have emptied this site; the
	// side map must never be read at a zero-tag coordinate.
	if s.table.ReadTag(index, slot) == 0 {
		return
	}

	// Uniform over the three siblings of slot.
	newSlot := s.rng.Intn(tagtable.TagsPerBucket - 1)
	if newSlot == slot {
		newSlot = tagtable.TagsPerBucket - 1
	}
	emptyNewSlot := s.table.ReadTag(index, newSlot) == 0

	keyA, valA := s.entries.Read(index, slot)
	var keyB K
	var valB V
	if !emptyNewSlot {
		keyB, valB = s.entries.Read(index, newSlot)
	}

	tagsA := s.tagsFrom(s.hasher.TagHash(keyA))
	if emptyNewSlot {
		s.table.WriteTag(index, slot, 0)
	} else {
		tagsB := s.tagsFrom(s.hasher.TagHash(keyB))
		s.table.WriteTag(index, slot, tagsB[slot])
	}
	s.table.WriteTag(index, newSlot, tagsA[newSlot])

	if emptyNewSlot {
		s.entries.Del(index, slot)
	} else {
		s.entries.Add(index, slot, keyB, valB)
	}
	s.entries.Add(index, newSlot, keyA, valA)

	maybeInc(shouldSample(), &s.stats.remediations)
}

package cuckoo

import (
	"github.com/samber/mo"

	"tagstore/tagtable"
)

// Erase removes key from the store. Both candidate buckets are scanned; any
// false-positive site found along the way is remediated whether or not the
// key was present. After a successful removal the parked victim, if any, is
// given another chance to enter the table.
func (s *Store[K, V]) Erase(key K) bool {
	i1, i2, tags, _ := s.derive(key)

	if _, ok := s.victimMatches(key, i1, i2); ok {
		s.victim = mo.None[victim[K, V]]()
		s.numItems.Dec()
		return true
	}

	found := false
	var sites []fpSite
	for _, i := range [2]uint32{i1, i2} {
		for slot := 0; slot < tagtable.TagsPerBucket; slot++ {
			if s.table.ReadTag(i, slot) != tags[slot] {
				continue
			}
			k, _ := s.entries.Read(i, slot)
			if k == key {
				s.table.WriteTag(i, slot, 0)
				s.entries.Del(i, slot)
				s.numItems.Dec()
				found = true
			} else {
				sites = append(sites, fpSite{index: i, slot: slot})
			}
		}
	}
	for _, site := range sites {
		s.remediate(site.index, site.slot)
	}
	if !found {
		return false
	}

	// A slot just opened up somewhere; retry the victim from its recorded
	// bucket with fingerprints re-derived from its tag hash.
	if vic, ok := s.victim.Get(); ok {
		s.victim = mo.None[victim[K, V]]()
		s.numItems.Dec()
		s.insertImpl(vic.key, vic.val, vic.index, s.tagsFrom(vic.tagHash), vic.tagHash)
	}
	return true
}

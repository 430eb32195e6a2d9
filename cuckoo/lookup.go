package cuckoo

import "tagstore/tagtable"

// fpSite is a (bucket, slot) coordinate whose tag matched a queried key's
// fingerprint while the stored key did not.
type fpSite struct {
	index uint32
	slot  int
}

// Find returns the value stored for key. On every fingerprint match that
// turns out to hold a different key, the aliasing resident is reshuffled to a
// sibling slot before returning, so the same collision is unlikely to recur.
// Both candidate buckets are scanned fully even after a hit - remediation
// must see every false-positive site discovered by this query.
func (s *Store[K, V]) Find(key K) (V, bool) {
	var out V
	i1, i2, tags, _ := s.derive(key)

	if vic, ok := s.victimMatches(key, i1, i2); ok {
		return vic.val, true
	}

	found := false
	var sites []fpSite
	for _, i := range [2]uint32{i1, i2} {
		for slot := 0; slot < tagtable.TagsPerBucket; slot++ {
			if s.table.ReadTag(i, slot) != tags[slot] {
				continue
			}
			k, v := s.entries.Read(i, slot)
			if k == key {
				out = v
				found = true
			} else {
				sites = append(sites, fpSite{index: i, slot: slot})
			}
		}
	}
	for _, site := range sites {
		s.remediate(site.index, site.slot)
	}
	return out, found
}

// Contains reports whether key is stored, confirming fingerprint matches
// against the side map. Like Find, it remediates false-positive sites.
func (s *Store[K, V]) Contains(key K) bool {
	_, found := s.Find(key)
	return found
}

// FindInFilter answers from the fingerprint table alone: no key comparison,
// no side-map access, no remediation. This is the pure cuckoo-filter
// semantic - false positives are possible, false negatives are not.
func (s *Store[K, V]) FindInFilter(key K) bool {
	i1, i2, tags, _ := s.derive(key)
	if _, ok := s.victimMatches(key, i1, i2); ok {
		return true
	}
	for _, i := range [2]uint32{i1, i2} {
		for slot := 0; slot < tagtable.TagsPerBucket; slot++ {
			if s.table.ReadTag(i, slot) == tags[slot] {
				return true
			}
		}
	}
	return false
}

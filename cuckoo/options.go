package cuckoo

import "github.com/detailyang/fastrand-go"

type Options struct {
	// BitsPerTag is the fingerprint width b. Tags live in [1, 2^b - 1]; 0 is
	// the empty-slot sentinel.
	BitsPerTag uint32
	// Seed drives the PRNG used for eviction-slot and remediation-slot
	// choices. Fix it to make both deterministic in tests.
	Seed int64
	// NumShards is the shard count of the in-memory side map.
	NumShards uint64
	// ReportStats exports store gauges to prometheus from a background
	// goroutine. Off by default - the store itself never spawns goroutines
	// unless asked to.
	ReportStats bool
	// Name labels this store's metrics when ReportStats is on.
	Name string
}

func DefaultOptions() Options {
	return Options{
		BitsPerTag:  12,
		Seed:        int64(fastrand.FastRand()),
		NumShards:   4,
		ReportStats: false,
		Name:        "",
	}
}

func (o Options) WithBitsPerTag(bits uint32) Options {
	o.BitsPerTag = bits
	return o
}

func (o Options) WithSeed(seed int64) Options {
	o.Seed = seed
	return o
}

func (o Options) WithNumShards(shards uint64) Options {
	o.NumShards = shards
	return o
}

func (o Options) WithReportStats(name string) Options {
	o.ReportStats = true
	o.Name = name
	return o
}

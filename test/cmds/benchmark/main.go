package main

import (
	"fmt"
	"math/rand"
	"time"

	"tagstore/cuckoo"
	"tagstore/lib/hash"
	"tagstore/lib/timer"

	"github.com/alexflint/go-arg"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type BenchmarkArg struct {
	NumKeys    int    `arg:"--num_keys" default:"100000"`
	BitsPerTag uint32 `arg:"--bits_per_tag" default:"12"`
	Seed       int64  `arg:"--seed" default:"0"`
	Name       string `arg:"--name" default:"benchmark"`
}

// lookup times a batch of finds where hitPercent of the queried keys were
// actually inserted, the way the upstream bulk-insert-and-query driver
// sweeps expected-positive rates from 0% to 100%.
func lookup(s *cuckoo.Store[uint64, uint64], inserted, unseen []uint64, hitPercent int, rng *rand.Rand) (opsPerSec float64, hits int) {
	n := len(inserted)
	queries := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		if rng.Intn(100) < hitPercent {
			queries = append(queries, inserted[rng.Intn(len(inserted))])
		} else {
			queries = append(queries, unseen[rng.Intn(len(unseen))])
		}
	}
	queries = lo.Shuffle(queries)

	tm := timer.Start("find")
	start := time.Now()
	for _, k := range queries {
		if _, ok := s.Find(k); ok {
			hits++
		}
	}
	elapsed := time.Since(start)
	tm.Stop()
	return float64(len(queries)) / elapsed.Seconds(), hits
}

func main() {
	var args BenchmarkArg
	arg.MustParse(&args)

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	seed := args.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	opts := cuckoo.DefaultOptions().
		WithBitsPerTag(args.BitsPerTag).
		WithSeed(seed).
		WithReportStats(args.Name)
	s, err := cuckoo.New[uint64, uint64](uint64(args.NumKeys), hash.U64{}, opts)
	if err != nil {
		logger.Fatal("failed to build store", zap.Error(err))
	}

	seen := make(map[uint64]bool, 2*args.NumKeys)
	distinct := func() uint64 {
		for {
			k := rng.Uint64()
			if !seen[k] {
				seen[k] = true
				return k
			}
		}
	}
	inserted := make([]uint64, args.NumKeys)
	unseen := make([]uint64, args.NumKeys)
	for i := range inserted {
		inserted[i] = distinct()
	}
	for i := range unseen {
		unseen[i] = distinct()
	}

	tm := timer.Start("insert")
	start := time.Now()
	added := 0
	for _, k := range inserted {
		if !s.Insert(k, k>>1) {
			break
		}
		added++
	}
	insertElapsed := time.Since(start)
	tm.Stop()
	logger.Info("insert phase done",
		zap.Int("added", added),
		zap.Float64("adds_per_sec", float64(added)/insertElapsed.Seconds()),
		zap.Float64("load_factor", s.LoadFactor()),
	)

	inserted = inserted[:added]
	for _, hitPercent := range []int{0, 25, 50, 75, 100} {
		opsPerSec, hits := lookup(s, inserted, unseen, hitPercent, rng)
		logger.Info("find phase done",
			zap.Int("hit_percent", hitPercent),
			zap.Float64("finds_per_sec", opsPerSec),
			zap.Int("hits", hits),
		)
	}

	// false-positive rate of the filter-only path over never-inserted keys
	fp := lo.CountBy(unseen, s.FindInFilter)
	logger.Info("filter false positives",
		zap.Int("false_positives", fp),
		zap.Float64("rate", float64(fp)/float64(len(unseen))),
	)

	fmt.Println(s.Info())
}

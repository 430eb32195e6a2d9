package cuckoo

import (
	"time"

	"github.com/detailyang/fastrand-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

const sampleRate = 128

type stats struct {
	kicks        atomic.Uint64
	remediations atomic.Uint64
	victimParks  atomic.Uint64
}

var storeStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "tagstore_stats",
	Help: "Stats about a tagged cuckoo store",
}, []string{"metric", "name"})

func (s *Store[K, V]) reportStats() {
	name := s.opts.Name
	for range time.Tick(10 * time.Second) {
		storeStats.WithLabelValues("items", name).Set(float64(s.Size()))
		storeStats.WithLabelValues("load_factor", name).Set(s.LoadFactor())
		storeStats.WithLabelValues("kicks", name).Set(float64(s.stats.kicks.Load() * sampleRate))
		storeStats.WithLabelValues("remediations", name).Set(float64(s.stats.remediations.Load() * sampleRate))
		storeStats.WithLabelValues("victim_parks", name).Set(float64(s.stats.victimParks.Load()))
	}
}

func maybeInc(shouldSample bool, a *atomic.Uint64) {
	if shouldSample {
		a.Inc()
	}
}

func shouldSample() bool {
	return (fastrand.FastRand() & (sampleRate - 1)) == 0
}

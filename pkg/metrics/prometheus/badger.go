package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scribefs/scribe/pkg/metrics"
)

var _ metrics.BadgerMetrics = (*badgerMetrics)(nil)

// badgerMetrics is the Prometheus implementation for the storage engine's
// cache counters.
type badgerMetrics struct {
	cacheHitRatio *prometheus.GaugeVec
	cacheHits     *prometheus.GaugeVec
	cacheMisses   *prometheus.GaugeVec
}

// NewBadgerMetrics creates a new Prometheus-backed Badger metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBadgerMetrics() *badgerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &badgerMetrics{
		cacheHitRatio: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scribe_badger_cache_hit_ratio",
				Help: "Badger cache hit ratio (0.0 to 1.0) by cache type",
			},
			[]string{"cache_type"}, // "block", "index"
		),
		cacheHits: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scribe_badger_cache_hits",
				Help: "Cumulative Badger cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		cacheMisses: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scribe_badger_cache_misses",
				Help: "Cumulative Badger cache misses by cache type",
			},
			[]string{"cache_type"},
		),
	}
}

// RecordCacheStats updates all counters for one cache type.
func (m *badgerMetrics) RecordCacheStats(cacheType string, hits, misses uint64, ratio float64) {
	if m == nil {
		return
	}
	m.cacheHitRatio.WithLabelValues(cacheType).Set(ratio)
	m.cacheHits.WithLabelValues(cacheType).Set(float64(hits))
	m.cacheMisses.WithLabelValues(cacheType).Set(float64(misses))
}

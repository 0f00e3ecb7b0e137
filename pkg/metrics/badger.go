package metrics

// BadgerMetrics exposes the storage engine's cache counters. A storage node
// refreshes these periodically from Badger's ristretto caches.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type BadgerMetrics interface {
	// RecordCacheStats updates the counters for one cache. cacheType is
	// "block" or "index"; ratio is in [0.0, 1.0].
	RecordCacheStats(cacheType string, hits, misses uint64, ratio float64)
}

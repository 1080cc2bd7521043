// Package cache provides a durable, best-effort cache for derived pricing
// data with a Redis backend.
//
// Entries are addressed by content: a key is a one-way hash of an operation
// tag plus a canonical serialization of its parameters, so identical logical
// requests always collide on the same key and distinct ones never do.
//
// Every Set applies a uniformly distributed random jitter on top of the base
// TTL so that entries created in the same moment do not all expire at once.
//
// The cache is best-effort by design: a store failure turns Get into a miss
// and Set into a no-op, and the pricing pipeline degrades to recomputing from
// the spreadsheet source. Expired entries are evicted lazily on the next
// lookup; there is no active sweep.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, cache.Config{
//		Jitter: 5 * time.Minute,
//	})
//
//	key := cache.Key{
//		Op:     "pricingColumn",
//		Params: map[string]string{"bank": "vtb", "company": "makc"},
//	}
//
//	raw, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// recompute and store
//		_ = manager.Set(ctx, key, value, time.Hour)
//	}
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - fpx_cache_hits_total - Cache hits
//   - fpx_cache_misses_total - Cache misses
//   - fpx_cache_errors_total{operation} - Store operation errors
package cache

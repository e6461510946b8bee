// Package cache provides the persistent LegiScan response cache.
//
// The cache conserves the metered LegiScan query quota. It provides:
//
// - Deterministic cache keys independent of parameter order
// - Entries carrying their own TTL, with a "never expires" sentinel
// - Lazy eviction: expired entries are removed when read, never by a sweep
// - Interchangeable backends: memory, filesystem, Redis
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	store, err := cache.NewFileStore("/var/cache/legiscan")
//	if err != nil {
//		return err
//	}
//
//	key, err := cache.KeyFromQuery("op=getBill&id=1234&key=secret")
//	if err != nil {
//		return err // malformed parameters are fatal
//	}
//
//	value, err := store.GetOrExpire(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss (or just expired) - fetch from LegiScan
//	}
//
//	// Store for three hours
//	err = store.Put(ctx, key, body, 3*3600, "")
//
// # Expiry
//
// Peek and PeekMetadata return entries whether or not they are expired and
// never change the store. GetOrExpire and PresentAndValid evaluate expiry
// against the entry's stored TTL. Metadata.IsExpired accepts a minimum
// freshness window that can only widen the stored TTL.
//
// # Concurrency
//
// No store serializes a caller's read-decide-write sequence. Callers needing
// at most one fetch per key must coalesce requests themselves (see package
// coalesce).
//
// # Metrics
//
//   - legiscan_cache_hits_total{layer} - Cache hits
//   - legiscan_cache_misses_total{layer} - Cache misses
//   - legiscan_cache_evictions_total{layer} - Expired entries evicted on read
//   - legiscan_cache_written_bytes_total{layer} - Value bytes written
//   - legiscan_cache_errors_total{layer,operation} - Cache operation errors
package cache

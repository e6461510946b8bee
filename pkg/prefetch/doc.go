// Package prefetch warms the cache for a whole session by loading every
// bill of its master list with bounded parallelism.
//
// Bills already cached and fresh are served locally and cost no upstream
// request, so re-running a warm-up only refreshes what expired.
//
// Example usage:
//
//	warmer := prefetch.NewWarmer(svc, prefetch.DefaultConfig())
//	result, err := warmer.WarmSession(ctx, 2041)
//
// The warmer:
//   - Loads the master list (itself cached hourly)
//   - Spawns a bounded pool (default 4 workers)
//   - Logs progress every 50 bills
//   - Returns partial results when some bills fail
package prefetch

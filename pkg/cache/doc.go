// Package cache provides a Redis-backed response cache for paginated API calls.
//
// Every page request is keyed by service, operation and the full request
// parameters, markers included, so each page of a pagination caches
// independently. Features:
//
// - Freshness from Cache-Control max-age or the Expires header
// - Cache-Control no-store honored
// - Stale entries kept for revalidation with If-None-Match / If-Modified-Since
// - Deterministic cache keys
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	manager := cache.NewManager(redisClient, cache.DefaultConfig())
//
//	key := cache.Key{
//		Service:   "iam",
//		Operation: "ListUsers",
//		Params:    map[string]any{"Marker": "m1"},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Revalidation
//
//	entry, err := manager.GetStale(ctx, key)
//	if err == nil && !entry.IsFresh() && cache.CanRevalidate(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 answer is followed by manager.Refresh(ctx, key, newExpires)
//	}
//
// # Metrics
//
//   - api_cache_hits_total{layer="redis"} - Cache hits
//   - api_cache_misses_total - Cache misses
//   - api_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - api_conditional_requests_total - Requests sent with validators
//   - api_not_modified_total - 304 Not Modified answers
//   - api_cache_errors_total{operation} - Cache operation errors
package cache

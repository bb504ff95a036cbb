package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks cache misses, stale entries included
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_size_bytes",
			Help: "Bytes written to the response cache",
		},
		[]string{"layer"}, // "redis"
	)

	// ConditionalRequests tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// NotModified tracks 304 Not Modified answers
	NotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_not_modified_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)

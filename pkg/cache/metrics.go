package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, file, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legiscan_cache_hits_total",
			Help: "Total number of LegiScan cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legiscan_cache_misses_total",
			Help: "Total number of LegiScan cache misses",
		},
		[]string{"layer"},
	)

	// CacheEvictions tracks expired entries removed on read
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legiscan_cache_evictions_total",
			Help: "Total number of expired entries evicted on read",
		},
		[]string{"layer"},
	)

	// CacheWrittenBytes counts value bytes written by layer
	CacheWrittenBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legiscan_cache_written_bytes_total",
			Help: "Total value bytes written to the LegiScan cache",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legiscan_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"layer", "operation"}, // "peek", "put", "remove"
	)
)

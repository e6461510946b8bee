package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServiceHits counts requests served from the cache by operation
	ServiceHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legiscan_service_hits_total",
		Help: "Requests served from the cache by operation",
	}, []string{"op"})

	// ServiceFetches counts requests that went upstream by operation
	ServiceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legiscan_service_fetches_total",
		Help: "Requests fetched from LegiScan by operation",
	}, []string{"op"})

	// DatasetHashMatches counts expired datasets reused because the
	// upstream hash was unchanged
	DatasetHashMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legiscan_dataset_hash_matches_total",
		Help: "Expired datasets reused after a matching hash check",
	})

	// DatasetImports counts cached records seeded from dataset archives by kind
	DatasetImports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legiscan_dataset_imported_records_total",
		Help: "Records seeded into the cache from dataset archives by kind",
	}, []string{"kind"})
)

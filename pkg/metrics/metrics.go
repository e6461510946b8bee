// Package metrics exposes the Prometheus registry of the LegiScan client.
// All metrics are defined in their respective packages (cache, client,
// quota, service, coalesce) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and the reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry the handler scrapes.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - legiscan_cache_hits_total{layer} (Counter): Lazy-eviction reads served by layer
//   - legiscan_cache_misses_total{layer} (Counter): Reads that found nothing or an expired entry
//   - legiscan_cache_evictions_total{layer} (Counter): Expired entries removed on read
//   - legiscan_cache_written_bytes_total{layer} (Counter): Value bytes written, running total
//   - legiscan_cache_errors_total{layer, operation} (Counter): Storage errors
//
// Service Metrics (pkg/service):
//   - legiscan_service_hits_total{op} (Counter): Requests served from the cache
//   - legiscan_service_fetches_total{op} (Counter): Requests that went upstream
//   - legiscan_dataset_hash_matches_total (Counter): Expired datasets reused after a hash check
//   - legiscan_dataset_imported_records_total{kind} (Counter): Records seeded from dataset archives
//
// Request Metrics (pkg/client):
//   - legiscan_requests_total{op, status} (Counter): Upstream requests by operation and outcome
//   - legiscan_request_duration_seconds{op} (Histogram): Upstream request duration
//   - legiscan_errors_total{class} (Counter): Errors by class (client, server, api, network, decode)
//
// Quota Metrics (pkg/quota):
//   - legiscan_quota_used (Gauge): Upstream requests used this month
//   - legiscan_quota_blocks_total (Counter): Requests blocked by an exhausted quota
//
// Coalescing Metrics (pkg/coalesce):
//   - legiscan_coalesced_requests_total (Counter): Requests answered by an in-flight call
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(legiscan_service_hits_total[5m])) /
//   (sum(rate(legiscan_service_hits_total[5m])) + sum(rate(legiscan_service_fetches_total[5m])))
//
//   # Quota Left
//   30000 - legiscan_quota_used
//
//   # Upstream Error Rate
//   rate(legiscan_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(legiscan_request_duration_seconds_bucket[5m]))

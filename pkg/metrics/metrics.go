// Package metrics exposes the Prometheus registry shared by the paginator
// packages. Metrics are defined next to the code that records them
// (pagination, client, cache, ratelimit) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all package metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// NewRegistry returns an isolated registry with the Go runtime and process
// collectors, for embedding applications that do not use the default one.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Metrics Documentation
//
// Pagination Metrics (pkg/pagination):
//   - paginator_pages_total{operation} (Counter): Pages fetched
//   - paginator_items_total{operation} (Counter): Primary result items emitted
//   - paginator_stuck_total{operation} (Counter): Runs aborted on a repeated marker
//   - paginator_truncations_total{operation} (Counter): Pages cut short by MaxItems
//   - paginator_page_duration_seconds{operation} (Histogram): Page fetch latency
//
// Rate Limit Metrics (pkg/ratelimit):
//   - api_rate_limit_remaining{scope} (Gauge): Requests remaining in the window
//   - api_rate_limit_blocks_total{scope} (Counter): Requests blocked near exhaustion
//   - api_rate_limit_throttles_total{scope} (Counter): Requests delayed on a low limit
//
// Cache Metrics (pkg/cache):
//   - api_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - api_cache_misses_total (Counter): Cache misses
//   - api_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - api_not_modified_total (Counter): 304 Not Modified responses
//   - api_conditional_requests_total (Counter): Conditional requests sent
//   - api_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - api_requests_total{operation, status} (Counter): Requests by operation and outcome
//   - api_request_duration_seconds{operation} (Histogram): Call duration, retries included
//   - api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - api_retries_total{error_class} (Counter): Retry attempts
//   - api_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - api_retry_exhausted_total{error_class} (Counter): Calls that exhausted their attempts
//
// Example Prometheus Queries:
//
//   # Pages per second by operation
//   sum by (operation) (rate(paginator_pages_total[5m]))
//
//   # Cache Hit Rate
//   sum(rate(api_cache_hits_total[5m])) /
//   (sum(rate(api_cache_hits_total[5m])) + sum(rate(api_cache_misses_total[5m])))
//
//   # Stuck paginations
//   increase(paginator_stuck_total[1h]) > 0
//
//   # P95 Page Latency
//   histogram_quantile(0.95, rate(paginator_page_duration_seconds_bucket[5m]))

// Package metrics documents the Prometheus metrics exposed by ghlookup.
// Metrics are defined next to the code they observe (client, batch, cache,
// ratelimit) via promauto; this package is the reference for operators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by ghlookup.
// All metrics register themselves via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Reference
//
// Lookup metrics (pkg/client):
//   - ghlookup_requests_total{status} (Counter): lookups by outcome
//     (HTTP status, "cache_hit", "network_error")
//   - ghlookup_request_duration_seconds (Histogram): lookup duration,
//     cache hits included
//   - ghlookup_errors_total{kind} (Counter): failed lookups by error kind
//
// Retry metrics (pkg/client):
//   - ghlookup_retries_total{kind} (Counter): retry attempts by error kind
//   - ghlookup_retry_backoff_seconds{kind} (Histogram): backoff waits
//   - ghlookup_retry_exhausted_total{kind} (Counter): identifiers that
//     exhausted their attempt budget
//
// Rate limit metrics (pkg/ratelimit):
//   - ghlookup_rate_limit_remaining (Gauge): requests left in the window
//   - ghlookup_rate_limit_hits_total (Counter): throttled responses seen
//
// Cache metrics (pkg/cache):
//   - ghlookup_cache_hits_total{layer} (Counter): hits by backend
//   - ghlookup_cache_misses_total (Counter)
//   - ghlookup_cache_size_bytes{layer} (Gauge)
//   - ghlookup_cache_errors_total{operation} (Counter)
//
// Batch metrics (pkg/batch):
//   - ghlookup_batch_runs_total{status} (Counter): completed vs cancelled
//   - ghlookup_batch_results_total{outcome} (Counter)
//   - ghlookup_batch_chunk_duration_seconds (Histogram)
//
// Example queries:
//
//   # Cache hit rate
//   sum(rate(ghlookup_cache_hits_total[5m])) /
//   (sum(rate(ghlookup_cache_hits_total[5m])) + sum(rate(ghlookup_cache_misses_total[5m])))
//
//   # Remaining budget alert
//   ghlookup_rate_limit_remaining < 10
//
//   # P95 lookup latency
//   histogram_quantile(0.95, rate(ghlookup_request_duration_seconds_bucket[5m]))

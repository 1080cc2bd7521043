// Package metrics provides the centralized Prometheus registry reference for
// the quote proxy. All metrics are defined in their respective packages
// (upstream, cache, pricing, augment) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the quote proxy.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Upstream Metrics (pkg/upstream):
//   - fpx_upstream_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - fpx_upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - fpx_upstream_errors_total{class} (Counter): Errors by class (client, server, network)
//   - fpx_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - fpx_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - fpx_cache_hits_total (Counter): Cache hits
//   - fpx_cache_misses_total (Counter): Cache misses
//   - fpx_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pricing Metrics (pkg/pricing):
//   - fpx_pricing_sheets_parsed_total (Counter): Rate sheets parsed into pricing columns
//   - fpx_pricing_line_items_total (Counter): Line items emitted by the table builder
//   - fpx_pricing_quotes_total{outcome} (Counter): Quote resolutions by outcome (priced, no_quote, error)
//
// Augmentation Metrics (pkg/augment):
//   - fpx_augmentations_total{augmenter, outcome} (Counter): Response augmentations by augmenter and
//     outcome (applied, failed, recovered, propagated, passthrough)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(fpx_cache_hits_total[5m])) /
//   (sum(rate(fpx_cache_hits_total[5m])) + sum(rate(fpx_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(fpx_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(fpx_upstream_request_duration_seconds_bucket[5m]))
//
//   # Share of Price Requests Recovered Locally
//   rate(fpx_augmentations_total{augmenter="policyPrice",outcome="recovered"}[5m]) /
//   rate(fpx_augmentations_total{augmenter="policyPrice"}[5m])

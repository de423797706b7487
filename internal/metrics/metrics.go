// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the gateway-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forkpoint",
			Subsystem: "gateway",
			Name:      "rpc_requests_total",
			Help:      "Total RPC requests dispatched, by operation, served version, and outcome.",
		},
		[]string{"operation", "version", "status"},
	)

	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forkpoint",
			Subsystem: "gateway",
			Name:      "rpc_duration_seconds",
			Help:      "Duration of RPC dispatches.",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 12), // 2ms to ~8s
		},
		[]string{"operation"},
	)

	versionFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forkpoint",
			Subsystem: "gateway",
			Name:      "version_fallbacks_total",
			Help:      "Requests served the fallback contract instead of the active one.",
		},
		[]string{"version"},
	)

	fanoutDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forkpoint",
			Subsystem: "fanout",
			Name:      "deliveries_total",
			Help:      "Per-region fanout delivery attempts by outcome.",
		},
		[]string{"region", "outcome"},
	)

	fanoutLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forkpoint",
			Subsystem: "fanout",
			Name:      "delivery_latency_seconds",
			Help:      "Per-region fanout delivery latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 11), // 5ms to ~10s
		},
		[]string{"region"},
	)
)

func init() {
	Registry.MustRegister(
		rpcRequests,
		rpcDuration,
		versionFallbacks,
		fanoutDeliveries,
		fanoutLatency,
		collectors.NewGoCollector(),
	)
}

// ObserveRPC records one dispatched RPC.
func ObserveRPC(operation, version, status string, duration time.Duration) {
	rpcRequests.WithLabelValues(operation, version, status).Inc()
	rpcDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveFallback records a request that was routed to the fallback version.
func ObserveFallback(version string) {
	versionFallbacks.WithLabelValues(version).Inc()
}

// ObserveDelivery records one per-region fanout delivery attempt.
func ObserveDelivery(region string, success bool, latency time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	fanoutDeliveries.WithLabelValues(region, outcome).Inc()
	fanoutLatency.WithLabelValues(region).Observe(latency.Seconds())
}

// Handler serves the /metrics endpoint for this registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

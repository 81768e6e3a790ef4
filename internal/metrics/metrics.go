// Package metrics exposes prometheus instrumentation for provider calls, the
// analysis cache and the refresh pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_provider_requests_total",
			Help: "Provider page requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_provider_request_duration_seconds",
			Help:    "Latency of provider page requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"endpoint"},
	)

	analysisCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_analysis_cache_results_total",
			Help: "Density analysis cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	refreshKeywords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_refresh_keywords_total",
			Help: "Keywords processed by the refresh pipeline by outcome.",
		},
		[]string{"outcome"},
	)

	refreshPOIs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_refresh_pois_fetched_total",
			Help: "POIs fetched and cached by the refresh pipeline.",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scout_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

// ObserveProviderRequest records one provider page request.
func ObserveProviderRequest(endpoint, outcome string, d time.Duration) {
	providerRequests.WithLabelValues(endpoint, outcome).Inc()
	providerLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncAnalysisCache records a density cache hit or miss.
func IncAnalysisCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	analysisCache.WithLabelValues(outcome).Inc()
}

// ObserveRefreshKeyword records one refreshed keyword and the POIs it cached.
func ObserveRefreshKeyword(outcome string, fetched int) {
	refreshKeywords.WithLabelValues(outcome).Inc()
	if fetched > 0 {
		refreshPOIs.Add(float64(fetched))
	}
}

// ExposeBuildInfo publishes the binary version.
func ExposeBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayRequestsTotal counts backend requests by operation, table and outcome.
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_gateway_requests_total",
		Help: "Total number of backend gateway requests",
	}, []string{"operation", "table", "outcome"})

	// GatewayRequestLatency records backend request latency by operation and table.
	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_gateway_request_latency_seconds",
		Help:    "Backend gateway request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedFetchesTotal counts feed page fetches by variant and result.
	FeedFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_feed_fetches_total",
		Help: "Total number of feed page fetches",
	}, []string{"variant", "result"})

	// EngagementTogglesTotal counts engagement toggles by relation and outcome.
	EngagementTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_engagement_toggles_total",
		Help: "Total number of engagement toggle attempts",
	}, []string{"relation", "outcome"})

	// NewsFetchesTotal counts RSS source fetches by source and result.
	NewsFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_news_fetches_total",
		Help: "Total number of RSS source fetch attempts",
	}, []string{"source", "result"})

	// ModerationVerdictsTotal counts moderation verdicts by outcome.
	ModerationVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_moderation_verdicts_total",
		Help: "Total number of content moderation verdicts",
	}, []string{"verdict"})

	// CacheErrorsTotal counts Redis errors by operation type.
	CacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_cache_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// ObserveGatewayRequest records the latency and outcome of one gateway call.
func ObserveGatewayRequest(operation, table, outcome string, start time.Time) {
	GatewayRequestsTotal.WithLabelValues(operation, table, outcome).Inc()
	GatewayRequestLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

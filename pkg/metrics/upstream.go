package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for upstream calls.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

// Upstream names. The two Facebook legs are the authorization-code grant and
// the long-lived fb_exchange_token grant.
const (
	UpstreamFacebookToken    = "facebook_token"
	UpstreamFacebookExchange = "facebook_exchange"
	UpstreamAnalytics        = "analytics"
)

// UpstreamMetrics records calls made to third-party services.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
// A nil registerer yields a recorder that drops every observation.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_call_duration_seconds",
		Help:    "Duration of calls to upstream services in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_calls_total",
		Help: "Calls to upstream services by outcome.",
	}, []string{"upstream", "outcome"})
	reg.MustRegister(duration, calls)
	return &UpstreamMetrics{
		duration: duration,
		calls:    calls,
	}
}

// Observe records one upstream call.
func (m *UpstreamMetrics) Observe(upstream, outcome string, d time.Duration) {
	if m == nil || m.calls == nil {
		return
	}
	upstream = normalizeLabel(upstream)
	m.calls.WithLabelValues(upstream, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(upstream).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts requests per provider and outcome. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "researchdata",
			Name:      "api_requests_total",
			Help:      "Outbound provider requests by outcome.",
		}, []string{"provider", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "researchdata",
			Name:      "api_request_duration_seconds",
			Help:      "Outbound provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency)
	}
	return m
}

func (m *Metrics) observe(provider string, status Status, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, string(status)).Inc()
	m.latency.WithLabelValues(provider).Observe(d.Seconds())
}

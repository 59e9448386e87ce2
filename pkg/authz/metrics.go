package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inspectRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Subsystem: "inspect",
		Name:      "requests_total",
		Help:      "Total number of capability inspections broken down by mode and result.",
	}, []string{"mode", "result"})

	inspectLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authz",
		Subsystem: "inspect",
		Name:      "latency_seconds",
		Help:      "Latency distribution for capability inspections.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"mode", "result"})
)

func recordInspectMetrics(mode Mode, allowed bool, latency time.Duration) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	labels := prometheus.Labels{
		"mode":   string(mode),
		"result": result,
	}
	inspectRequests.With(labels).Inc()
	inspectLatency.With(labels).Observe(latency.Seconds())
}

package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts emitted events by type. Register once per process.
type Metrics struct {
	Events *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workboard_analytics_events_total",
			Help: "Product events emitted, by type",
		}, []string{"type"}),
	}
}

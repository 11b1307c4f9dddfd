package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the collection sync loop.
type Metrics struct {
	SnapshotsApplied     *prometheus.CounterVec
	StaleSnapshots       *prometheus.CounterVec
	MalformedDocuments   *prometheus.CounterVec
	SubscriptionFailures *prometheus.CounterVec
	MirrorDocuments      *prometheus.GaugeVec
}

// NewMetrics creates and registers all sync metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SnapshotsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workboard_sync_snapshots_applied_total",
			Help: "Total number of snapshots applied to collection mirrors",
		}, []string{"collection"}),
		StaleSnapshots: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workboard_sync_stale_snapshots_dropped_total",
			Help: "Total number of snapshots dropped for carrying an old commit",
		}, []string{"collection"}),
		MalformedDocuments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workboard_sync_malformed_documents_total",
			Help: "Total number of documents dropped because they could not be decoded",
		}, []string{"collection"}),
		SubscriptionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workboard_sync_subscription_failures_total",
			Help: "Total number of subscription stream failures",
		}, []string{"collection"}),
		MirrorDocuments: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "workboard_sync_mirror_documents",
			Help: "Documents currently held in each collection mirror",
		}, []string{"collection"}),
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for work item operations.
type Metrics struct {
	ItemsCreated  prometheus.Counter
	ItemsUpdated  prometheus.Counter
	WeightChanges prometheus.Counter
}

// New creates and registers all work item metrics.
func New() *Metrics {
	return &Metrics{
		ItemsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_workitems_created_total",
			Help: "Total number of work items created",
		}),
		ItemsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_workitems_updated_total",
			Help: "Total number of work item updates written",
		}),
		WeightChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_weight_changes_total",
			Help: "Total number of scoring weight changes",
		}),
	}
}

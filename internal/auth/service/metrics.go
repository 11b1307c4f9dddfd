package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts identity operations. Register once per process.
type Metrics struct {
	SignUps  prometheus.Counter
	SignIns  prometheus.Counter
	SignOuts prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		SignUps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_auth_signups_total",
			Help: "Total number of registered accounts",
		}),
		SignIns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_auth_signins_total",
			Help: "Total number of successful sign-ins",
		}),
		SignOuts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_auth_signouts_total",
			Help: "Total number of sign-outs",
		}),
	}
}

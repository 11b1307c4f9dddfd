package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts assistant activity. Register once per process.
type Metrics struct {
	Replies           prometheus.Counter
	DirectivesLearned prometheus.Counter
	GeneratorFailures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Replies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_assistant_replies_total",
			Help: "Total number of generated strategy replies",
		}),
		DirectivesLearned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workboard_assistant_directives_learned_total",
			Help: "Total number of directives condensed and stored",
		}),
		GeneratorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workboard_assistant_generator_failures_total",
			Help: "Generator failures by class",
		}, []string{"class"}),
	}
}

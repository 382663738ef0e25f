package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exposed on /metrics
type Metrics struct {
	Registry        *prometheus.Registry
	Mutations       *prometheus.CounterVec
	PersistFailures prometheus.Counter
	Requests        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daily_tracker",
			Name:      "mutations_total",
			Help:      "Store mutations by operation.",
		}, []string{"op"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "daily_tracker",
			Name:      "persist_failures_total",
			Help:      "Failed attempts to write the store.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daily_tracker",
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.Registry.MustRegister(m.Mutations, m.PersistFailures, m.Requests)
	return m
}

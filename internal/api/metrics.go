// Package api provides Prometheus instrumentation for simulation runs.
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	simulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simbackend",
		Name:      "simulations_total",
		Help:      "Number of simulation runs by outcome.",
	}, []string{"status"})

	simulationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "simbackend",
		Name:      "simulation_duration_seconds",
		Help:      "Wall-clock duration of simulation runs.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	simulationTrades = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "simbackend",
		Name:      "simulation_trades",
		Help:      "Closed trades per simulation run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

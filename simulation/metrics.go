package simulation

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	strategyLabel = "strategy"
	errTypeLabel  = "error_type"
)

var (
	tickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "simulation_tick_duration_seconds",
		Help: "The time to run a simulation tick.",
	}, []string{strategyLabel})

	tickMovingNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_moving_nodes",
		Help: "The number of moving nodes processed by ticks.",
	}, []string{strategyLabel})

	tickCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_collisions",
		Help: "The number of moving nodes stopped by an obstacle.",
	}, []string{strategyLabel})

	tickReparents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_reparents",
		Help: "The number of nodes that changed container.",
	}, []string{strategyLabel})

	tickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_tick_errors",
		Help: "The errors that occured during a simulation tick.",
	}, []string{
		strategyLabel,
		errTypeLabel,
	})
)

func instrumentTick(strategy string, s Stats) {
	labels := prometheus.Labels{strategyLabel: strategy}

	tickDuration.With(labels).Observe(s.Duration.Seconds())
	tickMovingNodes.With(labels).Add(float64(s.Moving))
	tickCollisions.With(labels).Add(float64(s.Collisions))
	tickReparents.With(labels).Add(float64(s.Reparents))
}

func instrumentTickError(strategy string, err error) {
	tickErrors.
		With(prometheus.Labels{
			strategyLabel: strategy,
			errTypeLabel:  errors.Type(err),
		}).
		Inc()
}

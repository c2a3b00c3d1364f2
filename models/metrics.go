package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	worldLabel = "world"
)

var (
	sessionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "session_count",
		Help: "The number of sessions.",
	}, []string{worldLabel})

	sessionCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_count_total",
		Help: "The total number of sessions.",
	}, []string{worldLabel})

	sessionFrameOverruns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_frame_overruns",
		Help: "The number of ticks that took longer than a frame.",
	}, []string{worldLabel})
)

func instrumentIncreaseSessionGauge(world string) {
	sessionCount.
		With(prometheus.Labels{worldLabel: world}).
		Inc()
}

func instrumentDecreaseSessionGauge(world string) {
	sessionCount.
		With(prometheus.Labels{worldLabel: world}).
		Dec()
}

func instrumentCountSession(world string) {
	sessionCountTotal.
		With(prometheus.Labels{worldLabel: world}).
		Inc()
}

func instrumentFrameOverrun(world string) {
	sessionFrameOverruns.
		With(prometheus.Labels{worldLabel: world}).
		Inc()
}

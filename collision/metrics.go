package collision

import (
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	strategyLabel = "strategy"
	hitLabel      = "hit"
	deviceLabel   = "device"
	errTypeLabel  = "error_type"
)

var (
	collisionSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collision_sweeps",
		Help: "The number of pairwise collision sweeps.",
	}, []string{
		strategyLabel,
		hitLabel,
	})

	collisionDeviceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collision_device_errors",
		Help: "The errors that occured while dispatching a sweep to a compute device.",
	}, []string{
		deviceLabel,
		errTypeLabel,
	})
)

func instrumentSweep(strategy string, hit bool) {
	collisionSweeps.
		With(prometheus.Labels{
			strategyLabel: strategy,
			hitLabel:      strconv.FormatBool(hit),
		}).
		Inc()
}

func instrumentDeviceError(device string, err error) {
	collisionDeviceErrors.
		With(prometheus.Labels{
			deviceLabel:  device,
			errTypeLabel: errors.Type(err),
		}).
		Inc()
}

package collision

import (
	"math"
	"runtime"
	"sync/atomic"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"
	StrategyGPU        = "gpu"
)

// Executor schedules the samples of a sweep.
type Executor interface {
	// Returns the strategy name.
	Name() string

	// Returns the lowest sample in [1, granularity] where the borders overlap,
	// or 0 when they never do.
	FirstHit(s Sweep) (int, error)
}

// ParseStrategy validates a strategy name read from configuration.
func ParseStrategy(s string) (string, error) {
	switch s {
	case StrategySequential, StrategyParallel, StrategyGPU:
		return s, nil
	default:
		return "", errors.New("unknown collision strategy").
			WithType(ErrTypeUnknownStrategy).
			WithTag("strategy", s)
	}
}

// NewExecutor returns the executor for the given strategy name.
func NewExecutor(strategy string, workers int, device Device) (Executor, error) {
	switch strategy {
	case StrategySequential:
		return Sequential{}, nil

	case StrategyParallel:
		return WorkerPool{Workers: workers}, nil

	case StrategyGPU:
		if device == nil {
			return nil, errors.New("gpu strategy requires a device").
				WithType(ErrTypeDeviceFailure)
		}
		return GPU{Device: device}, nil

	default:
		return nil, errors.New("unknown collision strategy").
			WithType(ErrTypeUnknownStrategy).
			WithTag("strategy", strategy)
	}
}

// Sequential evaluates samples in order and stops at the first hit.
type Sequential struct{}

func (Sequential) Name() string {
	return StrategySequential
}

func (Sequential) FirstHit(s Sweep) (int, error) {
	for fact := 1; fact <= s.Granularity; fact++ {
		if s.OverlapsAt(fact) {
			return fact, nil
		}
	}
	return 0, nil
}

// WorkerPool splits the samples into contiguous ranges evaluated
// concurrently and keeps the lowest hit.
type WorkerPool struct {
	// The number of concurrent ranges. Defaults to the number of CPUs.
	Workers int
}

func (WorkerPool) Name() string {
	return StrategyParallel
}

func (p WorkerPool) FirstHit(s Sweep) (int, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	size := (s.Granularity + workers - 1) / workers
	if size < 1 {
		size = 1
	}

	var best atomic.Int32
	best.Store(math.MaxInt32)

	var eg errgroup.Group
	for from := 1; from <= s.Granularity; from += size {
		to := min(from+size-1, s.Granularity)

		eg.Go(func() error {
			for fact := from; fact <= to; fact++ {
				if (int32)(fact) >= best.Load() {
					return nil
				}
				if s.OverlapsAt(fact) {
					storeMin(&best, (int32)(fact))
					return nil
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	if hit := best.Load(); hit != math.MaxInt32 {
		return (int)(hit), nil
	}
	return 0, nil
}

func storeMin(v *atomic.Int32, n int32) {
	for {
		current := v.Load()
		if n >= current || v.CompareAndSwap(current, n) {
			return
		}
	}
}

// GPU packs the sweep in a kernel and dispatches it over the full sample
// range to a compute device. Device errors are returned as is: there is no
// fallback to another strategy.
type GPU struct {
	Device Device
}

func (GPU) Name() string {
	return StrategyGPU
}

func (g GPU) FirstHit(s Sweep) (int, error) {
	out, err := g.Device.Dispatch(SweepKernel{Params: s}, s.Granularity)
	if err != nil {
		instrumentDeviceError(g.Device.Name(), err)
		return 0, errors.New("sweep dispatch failed").
			WithType(ErrTypeDeviceFailure).
			WithTag("device", g.Device.Name()).
			WithTag("granularity", s.Granularity).
			Wrap(err)
	}

	for _, v := range out {
		if v != Sentinel {
			return (int)(v), nil
		}
	}
	return 0, nil
}

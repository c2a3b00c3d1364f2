package collision

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Sentinel is written by kernel invocations that found nothing.
const Sentinel = (int32)(-1)

const (
	defaultWorkgroupSize  = 64
	defaultMaxInvocations = 65535 * defaultWorkgroupSize
)

// Kernel is a compute program run once per invocation.
type Kernel interface {
	// Runs the invocation with the given id and writes its result in out[id].
	Run(id int, out []int32)
}

// Device is a compute device able to run kernels.
type Device interface {
	// Returns the device name.
	Name() string

	// Runs k for every invocation in [0, invocations) and returns the output
	// buffer once all invocations completed.
	Dispatch(k Kernel, invocations int) ([]int32, error)
}

// SweepKernel evaluates one sample per invocation: invocation i tests sample
// i+1 and writes it when the borders overlap, Sentinel otherwise.
type SweepKernel struct {
	Params Sweep
}

func (k SweepKernel) Run(id int, out []int32) {
	fact := id + 1
	if k.Params.OverlapsAt(fact) {
		out[id] = (int32)(fact)
		return
	}
	out[id] = Sentinel
}

// HostDevice runs kernels on the CPU with the dispatch model of a GPU:
// invocations are grouped in workgroups that run concurrently, and results are
// only visible once the whole dispatch completed.
type HostDevice struct {
	// The number of invocations per workgroup. Defaults to 64.
	WorkgroupSize int

	// The maximum number of invocations of a single dispatch.
	MaxInvocations int
}

func (d HostDevice) Name() string {
	return "host"
}

func (d HostDevice) Dispatch(k Kernel, invocations int) ([]int32, error) {
	workgroupSize := d.WorkgroupSize
	if workgroupSize <= 0 {
		workgroupSize = defaultWorkgroupSize
	}
	maxInvocations := d.MaxInvocations
	if maxInvocations <= 0 {
		maxInvocations = defaultMaxInvocations
	}

	if invocations <= 0 {
		return nil, errors.New("dispatch requires at least one invocation").
			WithType(ErrTypeDeviceFailure)
	}
	if invocations > maxInvocations {
		return nil, errors.New("dispatch exceeds device limits").
			WithType(ErrTypeDeviceFailure).
			WithTag("invocations", invocations).
			WithTag("max_invocations", maxInvocations)
	}

	out := make([]int32, invocations)

	eg, _ := errgroup.WithContext(context.Background())
	for from := 0; from < invocations; from += workgroupSize {
		to := min(from+workgroupSize, invocations)

		eg.Go(func() error {
			for id := from; id < to; id++ {
				k.Run(id, out)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package collision

import (
	"github.com/aukilabs/hagall-rooms/border"
)

const (
	ErrTypeDeviceFailure   = "device_failure"
	ErrTypeUnknownStrategy = "unknown_collision_strategy"
)

// Body is a scene object taking part in collision detection.
type Body interface {
	Border() *border.Border

	// Reports whether the body carries the camera. Camera bodies are tested
	// against every candidate, even their last obstacle.
	HasCamera() bool
}

// Engine computes how far bodies can travel before touching each other. The
// sampling loop is shared by every strategy, only its scheduling is delegated
// to the executor.
type Engine struct {
	granularity int
	executor    Executor
}

func NewEngine(granularity int, executor Executor) *Engine {
	if granularity <= 0 {
		granularity = 1
	}
	if executor == nil {
		executor = Sequential{}
	}

	return &Engine{
		granularity: granularity,
		executor:    executor,
	}
}

func (e *Engine) Granularity() int {
	return e.granularity
}

func (e *Engine) Strategy() string {
	return e.executor.Name()
}

// ComputeCollision returns the largest sampled fraction of the tick movement
// that mover can travel without overlapping obstacle. 1 means no collision.
func (e *Engine) ComputeCollision(mover Body, obstacle Body) (float32, error) {
	s := NewSweep(mover.Border(), obstacle.Border(), e.granularity)

	hit, err := e.executor.FirstHit(s)
	if err != nil {
		return 1, err
	}

	instrumentSweep(e.executor.Name(), hit > 0)
	return s.Fraction(hit), nil
}

// DetectCollision tests target against obstacle and keeps obstacle as the
// target nearest obstacle when it is closer than the previous ones. An
// obstacle equal to the target last obstacle is skipped unless the target
// bears a camera. Ticks reset the last obstacle before detection, so the skip
// only applies to repeated calls between two resets.
func (e *Engine) DetectCollision(target Body, obstacle Body) error {
	b := target.Border()
	if !target.HasCamera() && b.LastObstacle() == obstacle {
		return nil
	}

	distance, err := e.ComputeCollision(target, obstacle)
	if err != nil {
		return err
	}

	b.UpdateObstacleIfNearer(obstacle, distance)
	return nil
}

package collision

import (
	"github.com/aukilabs/hagall-rooms/border"
	"github.com/aukilabs/hagall-rooms/geom"
)

// Sweep holds everything needed to sample the movement of two borders during
// one tick. It is a plain value so it can be copied into a kernel parameter
// block.
type Sweep struct {
	MoverMin         geom.Vector3f
	MoverMax         geom.Vector3f
	MoverMovement    geom.Vector3f
	ObstacleMin      geom.Vector3f
	ObstacleMax      geom.Vector3f
	ObstacleMovement geom.Vector3f
	Granularity      int
}

func NewSweep(mover *border.Border, obstacle *border.Border, granularity int) Sweep {
	return Sweep{
		MoverMin:         mover.Min(),
		MoverMax:         mover.Max(),
		MoverMovement:    mover.Movement(),
		ObstacleMin:      obstacle.Min(),
		ObstacleMax:      obstacle.Max(),
		ObstacleMovement: obstacle.Movement(),
		Granularity:      granularity,
	}
}

// OverlapsAt reports whether both borders overlap once each one traveled
// fact/granularity of its movement.
func (s Sweep) OverlapsAt(fact int) bool {
	part := (float32)(fact) / (float32)(s.Granularity)

	moverOffset := geom.Mul(s.MoverMovement, part)
	obstacleOffset := geom.Mul(s.ObstacleMovement, part)

	aMin := geom.Add(s.MoverMin, moverOffset)
	aMax := geom.Add(s.MoverMax, moverOffset)
	bMin := geom.Add(s.ObstacleMin, obstacleOffset)
	bMax := geom.Add(s.ObstacleMax, obstacleOffset)

	return overlap(aMin.X, aMax.X, bMin.X, bMax.X) &&
		overlap(aMin.Y, aMax.Y, bMin.Y, bMax.Y) &&
		overlap(aMin.Z, aMax.Z, bMin.Z, bMax.Z)
}

// Fraction converts the first colliding sample into the safe part of the
// movement. 0 means no sample collided.
func (s Sweep) Fraction(firstHit int) float32 {
	if firstHit <= 0 {
		return 1
	}
	return (float32)(firstHit-1) / (float32)(s.Granularity)
}

func overlap(aMin, aMax, bMin, bMax float32) bool {
	return aMin < bMax && bMin < aMax
}

package border

import (
	"sync"

	"github.com/aukilabs/hagall-rooms/geom"
)

// Padding shrinks every corner toward the center so that two borders resting
// exactly against each other do not overlap.
const Padding = (float32)(0.001)

// Border is the bounding volume of a scene node. It holds the node world
// location, its extent, the movement requested for the current tick and the
// obstacle tracking state written during collision detection.
type Border struct {
	location geom.Vector3f
	scale    geom.Vector3f
	movement geom.Vector3f

	// Padded world corners, index bit 0 = +x, bit 1 = +y, bit 2 = +z.
	corners [8]geom.Vector3f

	obstacleMutex sync.Mutex
	moveFactor    float32
	lastObstacle  any
}

func New(location geom.Vector3f, scale geom.Vector3f) *Border {
	b := &Border{
		location:   location,
		scale:      scale,
		moveFactor: 1,
	}
	b.computeCorners()
	return b
}

func (b *Border) Location() geom.Vector3f {
	return b.location
}

func (b *Border) SetLocation(v geom.Vector3f) {
	b.location = v
	b.computeCorners()
}

func (b *Border) Scale() geom.Vector3f {
	return b.scale
}

func (b *Border) SetScale(v geom.Vector3f) {
	b.scale = v
	b.computeCorners()
}

func (b *Border) Movement() geom.Vector3f {
	return b.movement
}

func (b *Border) SetMovement(v geom.Vector3f) {
	b.movement = v
}

func (b *Border) IsMoving() bool {
	return !b.movement.IsZero()
}

// Corners returns the padded world-space corner points.
func (b *Border) Corners() [8]geom.Vector3f {
	return b.corners
}

// Min returns the padded minimum corner.
func (b *Border) Min() geom.Vector3f {
	return b.corners[0]
}

// Max returns the padded maximum corner.
func (b *Border) Max() geom.Vector3f {
	return b.corners[7]
}

func (b *Border) Width() float32 {
	return b.corners[1].X - b.corners[0].X
}

func (b *Border) Height() float32 {
	return b.corners[2].Y - b.corners[0].Y
}

func (b *Border) Depth() float32 {
	return b.corners[4].Z - b.corners[0].Z
}

// Translated returns the padded bounds moved by offset.
func (b *Border) Translated(offset geom.Vector3f) (geom.Vector3f, geom.Vector3f) {
	return geom.Add(b.corners[0], offset), geom.Add(b.corners[7], offset)
}

// Overlaps reports whether the padded bounds of both borders intersect.
func (b *Border) Overlaps(other *Border) bool {
	aMin, aMax := b.Min(), b.Max()
	bMin, bMax := other.Min(), other.Max()

	return aMin.X < bMax.X && bMin.X < aMax.X &&
		aMin.Y < bMax.Y && bMin.Y < aMax.Y &&
		aMin.Z < bMax.Z && bMin.Z < aMax.Z
}

// ResetObstacle clears the obstacle tracking state. Called at the start of
// every tick before any collision test runs.
func (b *Border) ResetObstacle() {
	b.obstacleMutex.Lock()
	defer b.obstacleMutex.Unlock()

	b.moveFactor = 1
	b.lastObstacle = nil
}

func (b *Border) MoveFactor() float32 {
	b.obstacleMutex.Lock()
	defer b.obstacleMutex.Unlock()

	return b.moveFactor
}

func (b *Border) LastObstacle() any {
	b.obstacleMutex.Lock()
	defer b.obstacleMutex.Unlock()

	return b.lastObstacle
}

// UpdateObstacleIfNearer records obstacle as the nearest one when distance is
// lower than the current move factor. It reports whether the state changed.
func (b *Border) UpdateObstacleIfNearer(obstacle any, distance float32) bool {
	b.obstacleMutex.Lock()
	defer b.obstacleMutex.Unlock()

	if distance >= b.moveFactor {
		return false
	}
	b.lastObstacle = obstacle
	b.moveFactor = distance
	return true
}

// ApplyMovement moves the location by movement x move factor and returns the
// applied displacement.
func (b *Border) ApplyMovement() geom.Vector3f {
	displacement := geom.Mul(b.movement, b.MoveFactor())
	if displacement.IsZero() {
		return displacement
	}
	b.SetLocation(geom.Add(b.location, displacement))
	return displacement
}

func (b *Border) computeCorners() {
	half := geom.Mul(b.scale, 0.5)
	half = geom.Vector3f{
		X: padded(half.X),
		Y: padded(half.Y),
		Z: padded(half.Z),
	}

	for i := range b.corners {
		c := b.location
		if i&1 != 0 {
			c.X += half.X
		} else {
			c.X -= half.X
		}
		if i&2 != 0 {
			c.Y += half.Y
		} else {
			c.Y -= half.Y
		}
		if i&4 != 0 {
			c.Z += half.Z
		} else {
			c.Z -= half.Z
		}
		b.corners[i] = c
	}
}

func padded(halfExtent float32) float32 {
	if halfExtent <= Padding {
		return 0
	}
	return halfExtent - Padding
}

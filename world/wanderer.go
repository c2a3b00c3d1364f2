package world

import (
	"math/rand"

	"github.com/aukilabs/hagall-rooms/geom"
)

// Wanderer sets the movements of the walkers and the avatar of a world before
// each tick. Walkers pick a new random direction every few frames or as soon
// as they are blocked. The avatar walks back and forth along the x axis.
type Wanderer struct {
	World *World
	Speed float32

	// The number of frames between two direction changes.
	Every uint64

	rng *rand.Rand
}

func NewWanderer(w *World, seed int64, speed float32, every uint64) *Wanderer {
	if every == 0 {
		every = 1
	}

	return &Wanderer{
		World: w,
		Speed: speed,
		Every: every,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Input is meant to be registered as a session input handler.
func (w *Wanderer) Input(frame uint64) {
	turn := frame%w.Every == 0
	bounds := w.World.Root.Grid()

	for _, walker := range w.World.Walkers {
		location := walker.Border().Location()

		switch {
		case !bounds.IsInside(location):
			toCenter := geom.Sub(w.World.Root.Border().Location(), location)
			toCenter.Y = 0
			walker.SetMovement(geom.Mul(geom.Normalized(toCenter), w.Speed))

		case turn || walker.Border().MoveFactor() < 1:
			walker.SetMovement(randomDirection(w.rng, w.Speed))
		}
	}

	a := w.World.Avatar
	if a == nil {
		return
	}
	if a.Border().MoveFactor() < 1 || !bounds.IsInside(geom.Add(a.Border().Location(), a.Border().Movement())) {
		a.SetMovement(geom.Mul(a.Border().Movement(), -1))
	}
}

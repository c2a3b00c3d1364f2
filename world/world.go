// Package world builds demo scenes: a universe holding a row of rooms, with
// walls, pillars, wandering walkers and one camera avatar.
package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/aukilabs/hagall-rooms/border"
	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/aukilabs/hagall-rooms/scene"
)

// Appearance is the geometry attached to the leaves of a demo scene.
type Appearance struct {
	Mesh  string
	Color string
}

type Config struct {
	Rooms          int
	RoomBoxes      geom.Vector3i
	RoomBoxDim     geom.Vector3f
	UniverseBoxDim geom.Vector3f
	WalkersPerRoom int
	WalkerScale    geom.Vector3f
	Speed          float32
	Seed           int64
}

func DefaultConfig() Config {
	return Config{
		Rooms:          3,
		RoomBoxes:      geom.NewVector3i(4, 3, 4),
		RoomBoxDim:     geom.NewVector3f(4, 1, 4),
		UniverseBoxDim: geom.NewVector3f(8, 3, 8),
		WalkersPerRoom: 8,
		WalkerScale:    geom.NewVector3f(0.6, 1.8, 0.6),
		Speed:          0.05,
		Seed:           1,
	}
}

// World is a built demo scene.
type World struct {
	Root    *scene.Node
	Rooms   []*scene.Node
	Walkers []*scene.Node
	Avatar  *scene.Node
}

// Build returns the scene described by c. The same config always builds the
// same scene.
func Build(c Config) *World {
	rng := rand.New(rand.NewSource(c.Seed))
	if c.Rooms <= 0 {
		c.Rooms = 1
	}

	roomExtent := geom.MulVec(c.RoomBoxes.ToVector3f(), c.RoomBoxDim)
	universeExtent := geom.NewVector3f(roomExtent.X*(float32)(c.Rooms), roomExtent.Y, roomExtent.Z)

	w := &World{
		Root: scene.NewUniverse("universe", geom.Vector3f{}, boxesFor(universeExtent, c.UniverseBoxDim), c.UniverseBoxDim),
	}

	for i := 0; i < c.Rooms; i++ {
		x := ((float32)(i) - (float32)(c.Rooms-1)/2) * roomExtent.X
		room := scene.NewRoom(fmt.Sprintf("room-%d", i), geom.NewVector3f(x, 0, 0), c.RoomBoxes, c.RoomBoxDim)
		w.Rooms = append(w.Rooms, room)
	}
	w.Root.AddChildren(w.Rooms...)

	for i, room := range w.Rooms {
		center := room.Border().Location()
		floor := center.Y - roomExtent.Y/2

		children := walls(room.Name, center, roomExtent, floor)
		children = append(children, pillar(room.Name, center, floor))

		for j := 0; j < c.WalkersPerRoom; j++ {
			var location geom.Vector3f
			for try := 0; try < maxPlacementTries; try++ {
				location = geom.NewVector3f(
					center.X+(rng.Float32()-0.5)*(roomExtent.X-2),
					floor+c.WalkerScale.Y/2,
					center.Z+(rng.Float32()-0.5)*(roomExtent.Z-2),
				)
				if !overlapsAny(border.New(location, c.WalkerScale), children) {
					break
				}
			}
			walker := scene.NewLeaf(fmt.Sprintf("%s-walker-%d", room.Name, j), location, c.WalkerScale)
			walker.SetGeometry(Appearance{Mesh: "capsule", Color: "#4f8cc9"})
			walker.SetMovement(randomDirection(rng, c.Speed))
			children = append(children, walker)
			w.Walkers = append(w.Walkers, walker)
		}

		if i == 0 {
			location := geom.NewVector3f(center.X, floor+c.WalkerScale.Y/2, center.Z)
			w.Avatar = scene.NewCamera("avatar", location, c.WalkerScale)
			w.Avatar.SetGeometry(Appearance{Mesh: "capsule", Color: "#e0a030"})
			w.Avatar.SetMovement(geom.NewVector3f(c.Speed, 0, 0))
			children = append(children, w.Avatar)
		}

		group := scene.NewComposite(room.Name+"-furniture", center)
		group.AddChildren(children...)
		room.AddChild(group)
	}

	return w
}

const maxPlacementTries = 32

func overlapsAny(b *border.Border, nodes []*scene.Node) bool {
	for _, n := range nodes {
		if b.Overlaps(n.Border()) {
			return true
		}
	}
	return false
}

// The front and back walls of a room. Rooms stay open on the x axis so
// walkers can cross from one room to the next.
func walls(room string, center geom.Vector3f, extent geom.Vector3f, floor float32) []*scene.Node {
	const thickness = 0.2

	scale := geom.NewVector3f(extent.X, extent.Y, thickness)
	y := floor + extent.Y/2
	offset := extent.Z/2 - thickness

	front := scene.NewLeaf(room+"-wall-front", geom.NewVector3f(center.X, y, center.Z+offset), scale)
	back := scene.NewLeaf(room+"-wall-back", geom.NewVector3f(center.X, y, center.Z-offset), scale)
	for _, w := range []*scene.Node{front, back} {
		w.SetGeometry(Appearance{Mesh: "cube", Color: "#9a9a9a"})
	}
	return []*scene.Node{front, back}
}

func pillar(room string, center geom.Vector3f, floor float32) *scene.Node {
	scale := geom.NewVector3f(1, 3, 1)
	p := scene.NewLeaf(room+"-pillar", geom.NewVector3f(center.X, floor+scale.Y/2, center.Z+3), scale)
	p.SetGeometry(Appearance{Mesh: "cube", Color: "#6b4f3a"})
	return p
}

func boxesFor(extent geom.Vector3f, boxDim geom.Vector3f) geom.Vector3i {
	count := func(e, d float32) int {
		if d <= 0 {
			return 1
		}
		return max(1, (int)(math.Ceil((float64)(e/d))))
	}

	return geom.NewVector3i(
		count(extent.X, boxDim.X),
		count(extent.Y, boxDim.Y),
		count(extent.Z, boxDim.Z),
	)
}

func randomDirection(rng *rand.Rand, speed float32) geom.Vector3f {
	angle := rng.Float64() * 2 * math.Pi
	return geom.NewVector3f(
		(float32)(math.Cos(angle))*speed,
		0,
		(float32)(math.Sin(angle))*speed,
	)
}

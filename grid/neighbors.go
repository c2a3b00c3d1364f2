package grid

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FindCollisionNeighbors returns the items registered in coord and in the 26
// cells around it, without duplicates and without self. Neighbour cells
// outside of the grid are ignored.
func (g *Grid) FindCollisionNeighbors(coord Coord, self Item) []Item {
	return g.FindCollisionNeighborsIn([]Coord{coord}, self)
}

// FindCollisionNeighborsIn is FindCollisionNeighbors over the union of
// several cells, typically all the cells an item occupies. Faces, edges and
// corners are gathered concurrently.
func (g *Grid) FindCollisionNeighborsIn(coords []Coord, self Item) []Item {
	if len(coords) == 0 {
		return nil
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	gatherers := [...]func(map[Item]struct{}, Coord){
		g.collectCenterAndFaces,
		g.collectEdges,
		g.collectCorners,
	}
	partials := make([]map[Item]struct{}, len(gatherers))

	eg, _ := errgroup.WithContext(context.Background())
	for i, gather := range gatherers {
		eg.Go(func() error {
			found := make(map[Item]struct{})
			for _, c := range coords {
				gather(found, c)
			}
			partials[i] = found
			return nil
		})
	}
	eg.Wait()

	found := partials[0]
	for _, p := range partials[1:] {
		for item := range p {
			found[item] = struct{}{}
		}
	}
	delete(found, self)

	if len(found) == 0 {
		return nil
	}

	items := make([]Item, 0, len(found))
	for item := range found {
		items = append(items, item)
	}
	return items
}

func (g *Grid) collectCenterAndFaces(found map[Item]struct{}, c Coord) {
	g.collect(found, c)

	g.collect(found, Coord{X: c.X - 1, Y: c.Y, Z: c.Z})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y, Z: c.Z})
	g.collect(found, Coord{X: c.X, Y: c.Y - 1, Z: c.Z})
	g.collect(found, Coord{X: c.X, Y: c.Y + 1, Z: c.Z})
	g.collect(found, Coord{X: c.X, Y: c.Y, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X, Y: c.Y, Z: c.Z + 1})
}

func (g *Grid) collectEdges(found map[Item]struct{}, c Coord) {
	// z plane
	g.collect(found, Coord{X: c.X - 1, Y: c.Y - 1, Z: c.Z})
	g.collect(found, Coord{X: c.X - 1, Y: c.Y + 1, Z: c.Z})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y - 1, Z: c.Z})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y + 1, Z: c.Z})

	// y plane
	g.collect(found, Coord{X: c.X - 1, Y: c.Y, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X - 1, Y: c.Y, Z: c.Z + 1})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y, Z: c.Z + 1})

	// x plane
	g.collect(found, Coord{X: c.X, Y: c.Y - 1, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X, Y: c.Y - 1, Z: c.Z + 1})
	g.collect(found, Coord{X: c.X, Y: c.Y + 1, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X, Y: c.Y + 1, Z: c.Z + 1})
}

func (g *Grid) collectCorners(found map[Item]struct{}, c Coord) {
	g.collect(found, Coord{X: c.X - 1, Y: c.Y - 1, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X - 1, Y: c.Y - 1, Z: c.Z + 1})
	g.collect(found, Coord{X: c.X - 1, Y: c.Y + 1, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X - 1, Y: c.Y + 1, Z: c.Z + 1})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y - 1, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y - 1, Z: c.Z + 1})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y + 1, Z: c.Z - 1})
	g.collect(found, Coord{X: c.X + 1, Y: c.Y + 1, Z: c.Z + 1})
}

func (g *Grid) collect(found map[Item]struct{}, c Coord) {
	if !g.Contains(c) {
		return
	}
	for item := range g.cells[g.index(c)].items {
		found[item] = struct{}{}
	}
}

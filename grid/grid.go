package grid

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-rooms/border"
	"github.com/aukilabs/hagall-rooms/geom"
	"golang.org/x/sync/errgroup"
)

// Regular Grid
//
// A uniformly sub-divided 3D grid owned by a layout node. The particularities are:
//   - the grid covers exactly the volume of its owner: cell (0,0,0) starts at
//     owner location - extent/2 and extent = boxes count * box dimension.
//   - cells are stored in one flat slice indexed by x + y*W + z*W*H.
//   - the grid never owns its items, it only keeps references to them.

type Coord = geom.Vector3i

// Item is anything that can be registered in a grid.
type Item interface {
	Border() *border.Border
}

// Cell is a grid box and the items overlapping it.
type Cell struct {
	Coord Coord

	grid  *Grid
	items map[Item]struct{}
}

func (c *Cell) Grid() *Grid {
	return c.grid
}

type Grid struct {
	mutex        sync.RWMutex
	boxesCount   geom.Vector3i
	boxDimension geom.Vector3f
	firstPoint   geom.Vector3f
	extent       geom.Vector3f
	cells        []Cell
}

// New creates a grid centered on center. Zero counts or dimensions are
// replaced by 1.
func New(center geom.Vector3f, boxesCount geom.Vector3i, boxDimension geom.Vector3f) *Grid {
	if boxesCount.X <= 0 {
		boxesCount.X = 1
	}
	if boxesCount.Y <= 0 {
		boxesCount.Y = 1
	}
	if boxesCount.Z <= 0 {
		boxesCount.Z = 1
	}
	if boxDimension.X <= 0 {
		boxDimension.X = 1
	}
	if boxDimension.Y <= 0 {
		boxDimension.Y = 1
	}
	if boxDimension.Z <= 0 {
		boxDimension.Z = 1
	}

	extent := geom.MulVec(boxesCount.ToVector3f(), boxDimension)
	g := &Grid{
		boxesCount:   boxesCount,
		boxDimension: boxDimension,
		firstPoint:   geom.Sub(center, geom.Mul(extent, 0.5)),
		extent:       extent,
		cells:        make([]Cell, boxesCount.Volume()),
	}

	for z := 0; z < boxesCount.Z; z++ {
		for y := 0; y < boxesCount.Y; y++ {
			for x := 0; x < boxesCount.X; x++ {
				c := Coord{X: x, Y: y, Z: z}
				g.cells[g.index(c)] = Cell{Coord: c, grid: g}
			}
		}
	}
	return g
}

func (g *Grid) BoxesCount() geom.Vector3i {
	return g.boxesCount
}

func (g *Grid) BoxDimension() geom.Vector3f {
	return g.boxDimension
}

func (g *Grid) FirstPoint() geom.Vector3f {
	return g.firstPoint
}

// Extent returns the size of the volume covered by the grid.
func (g *Grid) Extent() geom.Vector3f {
	return g.extent
}

// IsInside reports whether p is in [first point, first point + extent[ on all
// axes.
func (g *Grid) IsInside(p geom.Vector3f) bool {
	return p.GreaterOrEqualThan(g.firstPoint) && p.LesserThan(geom.Add(g.firstPoint, g.extent))
}

// Contains reports whether c is a valid cell coordinate.
func (g *Grid) Contains(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 &&
		c.X < g.boxesCount.X && c.Y < g.boxesCount.Y && c.Z < g.boxesCount.Z
}

// Cell returns the cell at c. It panics when c is out of the grid.
func (g *Grid) Cell(c Coord) *Cell {
	if !g.Contains(c) {
		panic(errors.New("cell coordinate out of range").
			WithTag("coord", c).
			WithTag("boxes_count", g.boxesCount))
	}
	return &g.cells[g.index(c)]
}

// Items returns the items registered in the cell at c.
func (g *Grid) Items(c Coord) []Item {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	cell := g.Cell(c)
	items := make([]Item, 0, len(cell.items))
	for item := range cell.items {
		items = append(items, item)
	}
	return items
}

// CoordsOf returns every cell coordinate where item is registered. It scans
// the whole grid and is meant for debugging and tests.
func (g *Grid) CoordsOf(item Item) []Coord {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var coords []Coord
	for i := range g.cells {
		if _, ok := g.cells[i].items[item]; ok {
			coords = append(coords, g.cells[i].Coord)
		}
	}
	return coords
}

// AddItem registers item in every cell overlapped by its border and returns
// the touched coordinates. The parts of the border outside of the grid are
// discarded.
func (g *Grid) AddItem(item Item) []Coord {
	coords := g.cellRange(item.Border())

	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.insert(item, coords)
	return coords
}

// AddItems registers several items at once. Cell ranges are computed
// concurrently, then all cells are filled under a single lock. The returned
// slice holds the coordinates of each item, in the order of items.
func (g *Grid) AddItems(items []Item) [][]Coord {
	coords := make([][]Coord, len(items))

	eg, _ := errgroup.WithContext(context.Background())
	for i, item := range items {
		eg.Go(func() error {
			coords[i] = g.cellRange(item.Border())
			return nil
		})
	}
	eg.Wait()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	for i, item := range items {
		g.insert(item, coords[i])
	}
	return coords
}

// RemoveItem unregisters item from the given cells.
func (g *Grid) RemoveItem(item Item, coords []Coord) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, c := range coords {
		delete(g.Cell(c).items, item)
	}
}

func (g *Grid) insert(item Item, coords []Coord) {
	for _, c := range coords {
		cell := g.Cell(c)
		if cell.items == nil {
			cell.items = make(map[Item]struct{})
		}
		cell.items[item] = struct{}{}
	}
}

func (g *Grid) cellRange(b *border.Border) []Coord {
	from := geom.FloorDiv(geom.Sub(b.Min(), g.firstPoint), g.boxDimension)
	to := geom.FloorDiv(geom.Sub(b.Max(), g.firstPoint), g.boxDimension)

	from.X = max(from.X, 0)
	from.Y = max(from.Y, 0)
	from.Z = max(from.Z, 0)
	to.X = min(to.X, g.boxesCount.X-1)
	to.Y = min(to.Y, g.boxesCount.Y-1)
	to.Z = min(to.Z, g.boxesCount.Z-1)

	if from.X > to.X || from.Y > to.Y || from.Z > to.Z {
		return nil
	}

	coords := make([]Coord, 0, (to.X-from.X+1)*(to.Y-from.Y+1)*(to.Z-from.Z+1))
	for z := from.Z; z <= to.Z; z++ {
		for y := from.Y; y <= to.Y; y++ {
			for x := from.X; x <= to.X; x++ {
				coords = append(coords, Coord{X: x, Y: y, Z: z})
			}
		}
	}
	return coords
}

func (g *Grid) index(c Coord) int {
	return c.X + c.Y*g.boxesCount.X + c.Z*g.boxesCount.X*g.boxesCount.Y
}


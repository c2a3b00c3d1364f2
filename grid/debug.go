package grid

import "github.com/aukilabs/hagall-rooms/geom"

type DebugInfo struct {
	BoxesCount   geom.Vector3i `json:"boxes_count"`
	BoxDimension geom.Vector3f `json:"box_dimension"`
	FirstPoint   geom.Vector3f `json:"first_point"`
	LastPoint    geom.Vector3f `json:"last_point"`
	ItemCount    uint32        `json:"item_count"`

	// Number of items per cell, indexed like the cells.
	Occupancy []uint32 `json:"occupancy"`
}

func (g *Grid) DebugInfo() DebugInfo {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	result := DebugInfo{
		BoxesCount:   g.boxesCount,
		BoxDimension: g.boxDimension,
		FirstPoint:   g.firstPoint,
		LastPoint:    geom.Add(g.firstPoint, g.extent),
		Occupancy:    make([]uint32, len(g.cells)),
	}

	items := make(map[Item]struct{})
	for i := range g.cells {
		result.Occupancy[i] = (uint32)(len(g.cells[i].items))
		for item := range g.cells[i].items {
			items[item] = struct{}{}
		}
	}
	result.ItemCount = (uint32)(len(items))
	return result
}

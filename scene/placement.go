package scene

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-rooms/geom"
)

// SetMovement sets the movement the leaf tries to apply on each tick and
// keeps the moving counters of its ancestors up to date.
func (n *Node) SetMovement(v geom.Vector3f) {
	if n.kind != KindLeaf {
		panic(errors.New("only leaves can move").
			WithTag("node", n.Name).
			WithTag("kind", n.kind))
	}

	wasMoving := n.border.IsMoving()
	n.border.SetMovement(v)
	isMoving := n.border.IsMoving()

	switch {
	case !wasMoving && isMoving:
		n.addMoving(1)
	case wasMoving && !isMoving:
		n.addMoving(-1)
	}
}

// IsMoving reports whether the node or one of its descendants is moving.
func (n *Node) IsMoving() bool {
	return n.moving.Load() > 0
}

// GetMovingObjects returns the moving leaves of the subtree. Subtrees without
// moving leaves are not visited.
func (n *Node) GetMovingObjects() []*Node {
	var moving []*Node
	n.collectMoving(&moving)
	return moving
}

func (n *Node) collectMoving(moving *[]*Node) {
	if n.moving.Load() == 0 {
		return
	}
	if n.kind == KindLeaf {
		*moving = append(*moving, n)
		return
	}
	for _, c := range n.Children() {
		c.collectMoving(moving)
	}
}

// FindCollisionNeighbors returns the nodes registered in or around the cells
// occupied by the node, the node excluded. Composites and layouts registered
// in the same grid are returned too.
func (n *Node) FindCollisionNeighbors() []*Node {
	if n.registeredIn == nil {
		return nil
	}

	items := n.registeredIn.FindCollisionNeighborsIn(n.cells, n)
	if len(items) == 0 {
		return nil
	}

	neighbors := make([]*Node, 0, len(items))
	for _, item := range items {
		if c, ok := item.(*Node); ok {
			neighbors = append(neighbors, c)
		}
	}
	return neighbors
}

// MoveLocation applies the part of the movement allowed by the collision
// detection and returns the applied displacement.
func (n *Node) MoveLocation() geom.Vector3f {
	return n.border.ApplyMovement()
}

// CommitPlacement updates the registration of a leaf after it moved. A leaf
// still inside its layout refreshes its cells. A leaf that left it is moved
// to the layout containing its new location, siblings first then outward.
// It returns the new layout when the leaf changed container.
func (n *Node) CommitPlacement() *Node {
	layout := n.LayoutAncestor()
	if layout == nil {
		return nil
	}

	location := n.border.Location()
	if layout.grid.IsInside(location) {
		n.refreshCells()
		return nil
	}

	target := layout.containerFor(location)
	if target == nil || target == layout {
		n.refreshCells()
		return nil
	}

	n.parent.RemoveChild(n)
	target.AddChild(n)

	logs.WithTag("node", n.Name).
		WithTag("from", layout.Name).
		WithTag("to", target.Name).
		Debug("node changed container")
	return target
}

func (n *Node) refreshCells() {
	g := n.registeredIn
	if g == nil {
		return
	}
	g.RemoveItem(n, n.cells)
	n.cells = g.AddItem(n)
}

// containerFor searches, from the layout and outward, the innermost layout
// whose grid contains location.
func (n *Node) containerFor(location geom.Vector3f) *Node {
	for current := n; current != nil; current = current.LayoutAncestor() {
		parent := current.parent
		if parent == nil {
			return nil
		}

		for _, sibling := range parent.Children() {
			if sibling == current || sibling.kind != KindLayout {
				continue
			}
			if sibling.grid.IsInside(location) {
				return sibling.innermostContaining(location)
			}
		}

		if up := parent.layout(); up != nil && up.grid.IsInside(location) {
			return up
		}
	}
	return nil
}

func (n *Node) innermostContaining(location geom.Vector3f) *Node {
	for _, c := range n.Children() {
		if c.kind == KindLayout && c.grid.IsInside(location) {
			return c.innermostContaining(location)
		}
	}
	return n
}

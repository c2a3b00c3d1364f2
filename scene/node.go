package scene

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-rooms/border"
	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/aukilabs/hagall-rooms/grid"
	"github.com/google/uuid"
)

// Kind is the capability set of a node.
type Kind int

const (
	// A node with a border and optional geometry. Only leaves move.
	KindLeaf Kind = iota

	// A node owning an ordered list of children.
	KindComposite

	// A composite that also owns a grid subdividing its own volume.
	KindLayout
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindComposite:
		return "composite"
	case KindLayout:
		return "layout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	LayoutRoom     = "room"
	LayoutUniverse = "universe"
)

// Geometry is the visual geometry attached to a leaf. It is opaque to the
// simulation and only carried for the renderer.
type Geometry any

// Node is a node of the scene tree. A parent owns its children; children only
// keep a plain pointer back to their parent.
type Node struct {
	// A numeric id, assigned by the owner of the tree.
	ID   uint32
	UUID string
	Name string

	kind       Kind
	layoutKind string
	camera     bool
	geometry   Geometry
	border     *border.Border

	parent     *Node
	childMutex sync.RWMutex
	children   []*Node

	// Layout nodes only.
	grid *grid.Grid

	// The grid of the nearest layout ancestor and the cells occupied there.
	registeredIn *grid.Grid
	cells        []grid.Coord

	// The number of moving leaves in the subtree, the node included.
	moving atomic.Int32
}

func newNode(kind Kind, name string, location geom.Vector3f, scale geom.Vector3f) *Node {
	return &Node{
		UUID:   uuid.NewString(),
		Name:   name,
		kind:   kind,
		border: border.New(location, scale),
	}
}

func NewLeaf(name string, location geom.Vector3f, scale geom.Vector3f) *Node {
	return newNode(KindLeaf, name, location, scale)
}

// NewCamera returns a leaf carrying the camera.
func NewCamera(name string, location geom.Vector3f, scale geom.Vector3f) *Node {
	n := newNode(KindLeaf, name, location, scale)
	n.camera = true
	return n
}

func NewComposite(name string, location geom.Vector3f) *Node {
	return newNode(KindComposite, name, location, geom.Vector3f{})
}

// NewLayout returns a layout node whose border and grid cover the same
// volume: boxesCount x boxDimension centered on location.
func NewLayout(layoutKind string, name string, location geom.Vector3f, boxesCount geom.Vector3i, boxDimension geom.Vector3f) *Node {
	g := grid.New(location, boxesCount, boxDimension)

	n := newNode(KindLayout, name, location, g.Extent())
	n.layoutKind = layoutKind
	n.grid = g
	return n
}

func NewRoom(name string, location geom.Vector3f, boxesCount geom.Vector3i, boxDimension geom.Vector3f) *Node {
	return NewLayout(LayoutRoom, name, location, boxesCount, boxDimension)
}

func NewUniverse(name string, location geom.Vector3f, boxesCount geom.Vector3i, boxDimension geom.Vector3f) *Node {
	return NewLayout(LayoutUniverse, name, location, boxesCount, boxDimension)
}

func (n *Node) Kind() Kind {
	return n.kind
}

// LayoutKind returns the kind of container of a layout node, such as room or
// universe. It is empty for other nodes.
func (n *Node) LayoutKind() string {
	return n.layoutKind
}

func (n *Node) Border() *border.Border {
	return n.border
}

func (n *Node) HasCamera() bool {
	return n.camera
}

func (n *Node) Geometry() Geometry {
	return n.geometry
}

func (n *Node) SetGeometry(g Geometry) {
	n.geometry = g
}

func (n *Node) Parent() *Node {
	return n.parent
}

// Grid returns the grid of a layout node, nil for other nodes.
func (n *Node) Grid() *grid.Grid {
	return n.grid
}

// Cells returns the cells the node occupies in its layout ancestor grid.
func (n *Node) Cells() []grid.Coord {
	cells := make([]grid.Coord, len(n.cells))
	copy(cells, n.cells)
	return cells
}

// RegisteredIn returns the grid where the node is registered, nil when it has
// no layout ancestor.
func (n *Node) RegisteredIn() *grid.Grid {
	return n.registeredIn
}

func (n *Node) Children() []*Node {
	n.childMutex.RLock()
	defer n.childMutex.RUnlock()

	children := make([]*Node, len(n.children))
	copy(children, n.children)
	return children
}

// LayoutAncestor returns the nearest layout above the node.
func (n *Node) LayoutAncestor() *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.kind == KindLayout {
			return p
		}
	}
	return nil
}

// layout returns the node itself when it is a layout, its layout ancestor
// otherwise.
func (n *Node) layout() *Node {
	if n.kind == KindLayout {
		return n
	}
	return n.LayoutAncestor()
}

// AddChild attaches child to the node. Camera children are placed first,
// others are appended. The child and the nodes below it, down to nested
// layouts, are registered in the nearest layout grid.
func (n *Node) AddChild(child *Node) {
	n.attach(child)

	var nodes []*Node
	collectUnregistered(child, &nodes)
	if l := n.layout(); l != nil {
		for _, c := range nodes {
			c.registeredIn = l.grid
			c.cells = l.grid.AddItem(c)
		}
	}
}

// AddChildren attaches several children and registers them with a single
// bulk grid insertion.
func (n *Node) AddChildren(children ...*Node) {
	var nodes []*Node
	for _, child := range children {
		n.attach(child)
		collectUnregistered(child, &nodes)
	}

	l := n.layout()
	if l == nil || len(nodes) == 0 {
		return
	}

	items := make([]grid.Item, len(nodes))
	for i, c := range nodes {
		items[i] = c
	}
	coords := l.grid.AddItems(items)
	for i, c := range nodes {
		c.registeredIn = l.grid
		c.cells = coords[i]
	}
}

// RemoveChild detaches child and unregisters its subtree from the grid it is
// registered in. It reports whether child was a child of the node.
func (n *Node) RemoveChild(child *Node) bool {
	n.childMutex.Lock()
	index := -1
	for i, c := range n.children {
		if c == child {
			index = i
			break
		}
	}
	if index < 0 {
		n.childMutex.Unlock()
		return false
	}
	n.children = append(n.children[:index], n.children[index+1:]...)
	n.childMutex.Unlock()

	n.addMoving(-child.moving.Load())
	child.parent = nil

	var nodes []*Node
	collectRegistered(child, &nodes)
	for _, c := range nodes {
		c.unregister()
	}
	return true
}

// Walk calls fn on the node and its descendants, depth first. Returning false
// skips the descendants of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// Leaves returns the leaves of the subtree in walk order.
func (n *Node) Leaves() []*Node {
	var leaves []*Node
	n.Walk(func(c *Node) bool {
		if c.kind == KindLeaf {
			leaves = append(leaves, c)
		}
		return true
	})
	return leaves
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %q (%s)", n.kind, n.Name, n.UUID)
}

func (n *Node) attach(child *Node) {
	if child.parent != nil {
		panic(errors.New("node is already attached").
			WithTag("node", child.Name).
			WithTag("parent", child.parent.Name))
	}
	if n.kind == KindLeaf {
		panic(errors.New("leaves cannot have children").
			WithTag("node", n.Name))
	}

	n.childMutex.Lock()
	if child.camera {
		n.children = append([]*Node{child}, n.children...)
	} else {
		n.children = append(n.children, child)
	}
	n.childMutex.Unlock()

	child.parent = n
	n.addMoving(child.moving.Load())
}

func (n *Node) unregister() {
	if n.registeredIn == nil {
		return
	}
	n.registeredIn.RemoveItem(n, n.cells)
	n.registeredIn = nil
	n.cells = nil
}

func (n *Node) addMoving(delta int32) {
	if delta == 0 {
		return
	}
	for p := n; p != nil; p = p.parent {
		p.moving.Add(delta)
	}
}

// Layout subtrees keep their own registrations: a nested layout is collected
// but not its content.
func collectUnregistered(n *Node, nodes *[]*Node) {
	if n.registeredIn == nil {
		*nodes = append(*nodes, n)
	}
	if n.kind == KindComposite {
		for _, c := range n.Children() {
			collectUnregistered(c, nodes)
		}
	}
}

func collectRegistered(n *Node, nodes *[]*Node) {
	if n.registeredIn != nil {
		*nodes = append(*nodes, n)
	}
	if n.kind == KindComposite {
		for _, c := range n.Children() {
			collectRegistered(c, nodes)
		}
	}
}

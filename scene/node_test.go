package scene

import (
	"testing"

	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/aukilabs/hagall-rooms/grid"
	"github.com/stretchr/testify/require"
)

var unit = geom.NewVector3f(1, 1, 1)

// Two 8x2x8 rooms side by side in a 16x2x8 universe:
// room A covers x in [-8,0[, room B covers x in [0,8[.
func newTestWorld() (universe, roomA, roomB *Node) {
	universe = NewUniverse("universe", geom.Vector3f{}, geom.NewVector3i(8, 1, 4), geom.NewVector3f(2, 2, 2))
	roomA = NewRoom("a", geom.NewVector3f(-4, 0, 0), geom.NewVector3i(4, 1, 4), geom.NewVector3f(2, 2, 2))
	roomB = NewRoom("b", geom.NewVector3f(4, 0, 0), geom.NewVector3i(4, 1, 4), geom.NewVector3f(2, 2, 2))
	universe.AddChildren(roomA, roomB)
	return universe, roomA, roomB
}

func TestLayoutBorderMatchesGrid(t *testing.T) {
	room := NewRoom("room", geom.NewVector3f(1, 2, 3), geom.NewVector3i(4, 3, 4), geom.NewVector3f(2, 1, 2))
	require.Equal(t, KindLayout, room.Kind())
	require.Equal(t, LayoutRoom, room.LayoutKind())
	require.Equal(t, geom.NewVector3f(8, 3, 8), room.Border().Scale())
	require.Equal(t, geom.NewVector3f(8, 3, 8), room.Grid().Extent())
	require.Equal(t, geom.NewVector3f(-3, 0.5, -1), room.Grid().FirstPoint())
	require.Equal(t, room.Border().Location(), geom.Add(room.Grid().FirstPoint(), geom.Mul(room.Grid().Extent(), 0.5)))
}

func TestAddChild(t *testing.T) {
	t.Run("leaf is registered in the layout grid", func(t *testing.T) {
		_, roomA, _ := newTestWorld()
		leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
		roomA.AddChild(leaf)

		require.Equal(t, roomA, leaf.Parent())
		require.Equal(t, roomA, leaf.LayoutAncestor())
		require.Equal(t, roomA.Grid(), leaf.RegisteredIn())
		require.Equal(t, []grid.Coord{{X: 0, Y: 0, Z: 0}}, leaf.Cells())
		require.Equal(t, []grid.Item{leaf}, roomA.Grid().Items(grid.Coord{}))
	})

	t.Run("camera child is placed first", func(t *testing.T) {
		_, roomA, _ := newTestWorld()
		a := NewLeaf("a", geom.NewVector3f(-7, 0, -3), unit)
		b := NewLeaf("b", geom.NewVector3f(-5, 0, -3), unit)
		camera := NewCamera("camera", geom.NewVector3f(-3, 0, -3), unit)

		roomA.AddChild(a)
		roomA.AddChild(b)
		roomA.AddChild(camera)
		require.Equal(t, []*Node{camera, a, b}, roomA.Children())
		require.True(t, camera.HasCamera())
	})

	t.Run("leaves nested in composites are registered", func(t *testing.T) {
		_, roomA, _ := newTestWorld()
		group := NewComposite("group", geom.NewVector3f(-4, 0, 0))
		leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
		group.AddChild(leaf)
		require.Nil(t, leaf.RegisteredIn())

		roomA.AddChild(group)
		require.Equal(t, roomA, leaf.LayoutAncestor())
		require.Equal(t, roomA.Grid(), leaf.RegisteredIn())
		require.NotEmpty(t, leaf.Cells())
	})

	t.Run("layouts and composites are registered in their container grid", func(t *testing.T) {
		universe, roomA, roomB := newTestWorld()
		require.Nil(t, universe.RegisteredIn())
		require.Equal(t, universe.Grid(), roomA.RegisteredIn())
		require.Equal(t, universe.Grid(), roomB.RegisteredIn())

		// room A covers x in [-8,0[, the first 4 of 8 universe columns.
		require.Len(t, roomA.Cells(), 16)
		require.ElementsMatch(t, universe.Grid().CoordsOf(roomA), roomA.Cells())
		require.ElementsMatch(t, universe.Grid().CoordsOf(roomB), roomB.Cells())
		for _, c := range roomA.Cells() {
			require.Less(t, c.X, 4)
		}
		for _, c := range roomB.Cells() {
			require.GreaterOrEqual(t, c.X, 4)
		}

		group := NewComposite("group", geom.NewVector3f(-4, 0, 0))
		leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
		group.AddChild(leaf)
		roomA.AddChild(group)
		require.Equal(t, roomA.Grid(), group.RegisteredIn())
		require.Equal(t, []grid.Coord{{X: 2, Y: 0, Z: 2}}, group.Cells())
		require.Equal(t, roomA.Grid(), leaf.RegisteredIn())
		require.Empty(t, universe.Grid().CoordsOf(group))
		require.Empty(t, universe.Grid().CoordsOf(leaf))
		require.Equal(t, uint32(2), universe.Grid().DebugInfo().ItemCount)
		require.Equal(t, uint32(2), roomA.Grid().DebugInfo().ItemCount)

		require.True(t, universe.RemoveChild(roomA))
		require.Nil(t, roomA.RegisteredIn())
		require.Empty(t, universe.Grid().CoordsOf(roomA))
		require.Equal(t, roomA.Grid(), leaf.RegisteredIn())
	})

	t.Run("attaching an attached node panics", func(t *testing.T) {
		_, roomA, roomB := newTestWorld()
		leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
		roomA.AddChild(leaf)
		require.Panics(t, func() { roomB.AddChild(leaf) })
	})

	t.Run("leaves cannot have children", func(t *testing.T) {
		leaf := NewLeaf("leaf", geom.Vector3f{}, unit)
		require.Panics(t, func() { leaf.AddChild(NewLeaf("child", geom.Vector3f{}, unit)) })
	})
}

func TestAddChildren(t *testing.T) {
	_, roomA, _ := newTestWorld()
	one := NewLeaf("one", geom.NewVector3f(-7, 0, -3), unit)
	two := NewLeaf("two", geom.NewVector3f(-4, 0, 0), unit)
	roomA.AddChildren(one, two)

	require.Equal(t, []*Node{one, two}, roomA.Children())
	require.Equal(t, roomA.Grid().CoordsOf(one), one.Cells())
	require.Equal(t, roomA.Grid().CoordsOf(two), two.Cells())
	require.Len(t, two.Cells(), 4)
}

func TestRemoveChild(t *testing.T) {
	_, roomA, _ := newTestWorld()
	leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
	roomA.AddChild(leaf)
	leaf.SetMovement(geom.NewVector3f(1, 0, 0))
	require.True(t, roomA.IsMoving())

	require.True(t, roomA.RemoveChild(leaf))
	require.Nil(t, leaf.Parent())
	require.Nil(t, leaf.RegisteredIn())
	require.Empty(t, leaf.Cells())
	require.Empty(t, roomA.Grid().Items(grid.Coord{}))
	require.False(t, roomA.IsMoving())

	require.False(t, roomA.RemoveChild(leaf))
}

func TestGetMovingObjects(t *testing.T) {
	universe, roomA, roomB := newTestWorld()
	still := NewLeaf("still", geom.NewVector3f(-7, 0, -3), unit)
	walker := NewLeaf("walker", geom.NewVector3f(5, 0, 1), unit)
	roomA.AddChild(still)
	roomB.AddChild(walker)

	require.Empty(t, universe.GetMovingObjects())

	walker.SetMovement(geom.NewVector3f(0, 0, 1))
	require.Equal(t, []*Node{walker}, universe.GetMovingObjects())
	require.False(t, roomA.IsMoving())
	require.True(t, roomB.IsMoving())
	require.True(t, universe.IsMoving())

	walker.SetMovement(geom.NewVector3f(0, 0, 2))
	require.Equal(t, int32(1), universe.moving.Load())

	walker.SetMovement(geom.Vector3f{})
	require.Empty(t, universe.GetMovingObjects())
	require.False(t, universe.IsMoving())

	require.Panics(t, func() { roomA.SetMovement(geom.NewVector3f(1, 0, 0)) })
}

func TestFindCollisionNeighbors(t *testing.T) {
	_, roomA, roomB := newTestWorld()
	self := NewLeaf("self", geom.NewVector3f(-7, 0, -3), unit)
	near := NewLeaf("near", geom.NewVector3f(-5, 0, -1), unit)
	far := NewLeaf("far", geom.NewVector3f(-1, 0, 3), unit)
	other := NewLeaf("other", geom.NewVector3f(1, 0, -3), unit)
	roomA.AddChildren(self, near, far)
	roomB.AddChild(other)

	require.Equal(t, []*Node{near}, self.FindCollisionNeighbors())
	require.Empty(t, NewLeaf("detached", geom.Vector3f{}, unit).FindCollisionNeighbors())
}

func TestCommitPlacement(t *testing.T) {
	t.Run("zero movement keeps the placement", func(t *testing.T) {
		_, roomA, _ := newTestWorld()
		leaf := NewLeaf("leaf", geom.NewVector3f(-4, 0, 0), unit)
		roomA.AddChild(leaf)
		cells := leaf.Cells()

		require.Equal(t, geom.Vector3f{}, leaf.MoveLocation())
		require.Nil(t, leaf.CommitPlacement())
		require.Equal(t, roomA, leaf.Parent())
		require.ElementsMatch(t, cells, leaf.Cells())
	})

	t.Run("cells are refreshed inside the layout", func(t *testing.T) {
		_, roomA, _ := newTestWorld()
		leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
		roomA.AddChild(leaf)
		leaf.SetMovement(geom.NewVector3f(2, 0, 0))

		require.Equal(t, geom.NewVector3f(2, 0, 0), leaf.MoveLocation())
		require.Nil(t, leaf.CommitPlacement())
		require.Equal(t, []grid.Coord{{X: 1, Y: 0, Z: 0}}, leaf.Cells())
		require.Empty(t, roomA.Grid().Items(grid.Coord{}))
	})

	t.Run("leaf moves from room a to room b", func(t *testing.T) {
		universe, roomA, roomB := newTestWorld()
		leaf := NewLeaf("leaf", geom.NewVector3f(-1, 0, 0), unit)
		roomA.AddChild(leaf)
		leaf.SetMovement(geom.NewVector3f(2, 0, 0))

		leaf.MoveLocation()
		require.Equal(t, roomB, leaf.CommitPlacement())
		require.Equal(t, roomB, leaf.Parent())
		require.Empty(t, roomA.Children())
		require.Equal(t, []*Node{leaf}, roomB.Children())
		require.Equal(t, roomB.Grid(), leaf.RegisteredIn())
		require.Equal(t, roomB.Grid().CoordsOf(leaf), leaf.Cells())
		require.Empty(t, roomA.Grid().CoordsOf(leaf))

		require.False(t, roomA.IsMoving())
		require.True(t, roomB.IsMoving())
		require.Equal(t, []*Node{leaf}, universe.GetMovingObjects())
	})

	t.Run("leaf leaving every room goes to the universe", func(t *testing.T) {
		universe := NewUniverse("universe", geom.Vector3f{}, geom.NewVector3i(8, 1, 8), geom.NewVector3f(2, 2, 2))
		room := NewRoom("room", geom.NewVector3f(-4, 0, -4), geom.NewVector3i(4, 1, 4), geom.NewVector3f(2, 2, 2))
		universe.AddChild(room)
		leaf := NewLeaf("leaf", geom.NewVector3f(-4, 0, -1), unit)
		room.AddChild(leaf)
		leaf.SetMovement(geom.NewVector3f(0, 0, 4))

		leaf.MoveLocation()
		require.Equal(t, universe, leaf.CommitPlacement())
		require.Equal(t, universe.Grid(), leaf.RegisteredIn())
	})

	t.Run("leaf leaving the outermost layout stays in place", func(t *testing.T) {
		_, roomA, _ := newTestWorld()
		leaf := NewLeaf("leaf", geom.NewVector3f(-7, 0, -3), unit)
		roomA.AddChild(leaf)
		leaf.SetMovement(geom.NewVector3f(-20, 0, 0))

		leaf.MoveLocation()
		require.Nil(t, leaf.CommitPlacement())
		require.Equal(t, roomA, leaf.Parent())
		require.Empty(t, leaf.Cells())
	})
}

func TestWalkAndLeaves(t *testing.T) {
	universe, roomA, roomB := newTestWorld()
	a := NewLeaf("leaf-a", geom.NewVector3f(-7, 0, -3), unit)
	b := NewLeaf("leaf-b", geom.NewVector3f(7, 0, 3), unit)
	roomA.AddChild(a)
	roomB.AddChild(b)

	require.Equal(t, []*Node{a, b}, universe.Leaves())

	var visited []string
	universe.Walk(func(n *Node) bool {
		visited = append(visited, n.Name)
		return n != roomA
	})
	require.Equal(t, []string{"universe", "a", "b", "leaf-b"}, visited)
}

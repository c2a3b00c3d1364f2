package world

import (
	"context"
	"testing"

	"github.com/aukilabs/hagall-rooms/collision"
	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/aukilabs/hagall-rooms/scene"
	"github.com/aukilabs/hagall-rooms/simulation"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	c := DefaultConfig()
	w := Build(c)

	require.Equal(t, scene.LayoutUniverse, w.Root.LayoutKind())
	require.Equal(t, geom.NewVector3i(6, 1, 2), w.Root.Grid().BoxesCount())
	require.Len(t, w.Rooms, c.Rooms)
	require.Len(t, w.Walkers, c.Rooms*c.WalkersPerRoom)
	require.NotNil(t, w.Avatar)
	require.True(t, w.Avatar.HasCamera())

	require.Equal(t, geom.NewVector3f(-16, 0, 0), w.Rooms[0].Border().Location())
	require.Equal(t, geom.NewVector3f(16, 0, 0), w.Rooms[2].Border().Location())

	t.Run("every leaf is registered in its room", func(t *testing.T) {
		for _, l := range w.Root.Leaves() {
			room := l.LayoutAncestor()
			require.NotNil(t, room)
			require.Equal(t, scene.LayoutRoom, room.LayoutKind())
			require.Equal(t, room.Grid(), l.RegisteredIn())
			require.NotEmpty(t, l.Cells())
		}
	})

	t.Run("camera comes first", func(t *testing.T) {
		group := w.Avatar.Parent()
		require.Equal(t, w.Avatar, group.Children()[0])
	})

	t.Run("walkers do not overlap the furniture", func(t *testing.T) {
		for _, walker := range w.Walkers {
			for _, n := range walker.Parent().Children() {
				if n == walker || n.HasCamera() {
					continue
				}
				require.False(t, walker.Border().Overlaps(n.Border()), "%s overlaps %s", walker.Name, n.Name)
			}
		}
	})

	t.Run("moving objects are the walkers and the avatar", func(t *testing.T) {
		require.Len(t, w.Root.GetMovingObjects(), len(w.Walkers)+1)
	})
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(DefaultConfig())
	b := Build(DefaultConfig())

	require.Equal(t, len(a.Walkers), len(b.Walkers))
	for i := range a.Walkers {
		require.Equal(t, a.Walkers[i].Border().Location(), b.Walkers[i].Border().Location())
		require.Equal(t, a.Walkers[i].Border().Movement(), b.Walkers[i].Border().Movement())
	}
}

func TestWanderer(t *testing.T) {
	t.Run("walkers turn every few frames", func(t *testing.T) {
		w := Build(DefaultConfig())
		wanderer := NewWanderer(w, 3, 0.1, 5)

		before := w.Walkers[0].Border().Movement()
		wanderer.Input(5)
		after := w.Walkers[0].Border().Movement()

		require.NotEqual(t, before, after)
		for _, walker := range w.Walkers {
			require.InDelta(t, 0.1, walker.Border().Movement().Length(), 1e-5)
		}
	})

	t.Run("walkers outside the universe head back", func(t *testing.T) {
		w := Build(DefaultConfig())
		wanderer := NewWanderer(w, 3, 0.1, 1000)

		walker := w.Walkers[0]
		walker.Border().SetLocation(geom.NewVector3f(100, 0, 0))
		wanderer.Input(1)

		m := walker.Border().Movement()
		require.Less(t, m.X, float32(0))
		require.Zero(t, m.Y)
	})

	t.Run("blocked avatar turns back", func(t *testing.T) {
		w := Build(DefaultConfig())
		wanderer := NewWanderer(w, 3, 0.1, 1000)

		before := w.Avatar.Border().Movement()
		w.Avatar.Border().UpdateObstacleIfNearer(w.Walkers[0], 0.5)
		wanderer.Input(1)
		require.Equal(t, geom.Mul(before, -1), w.Avatar.Border().Movement())
	})

	t.Run("world keeps running", func(t *testing.T) {
		w := Build(DefaultConfig())
		wanderer := NewWanderer(w, 3, 0.2, 10)
		engine := simulation.NewEngine(collision.NewEngine(8, collision.WorkerPool{Workers: 2}), 4)

		for frame := uint64(1); frame <= 100; frame++ {
			wanderer.Input(frame)
			_, err := engine.Tick(context.Background(), w.Root)
			require.NoError(t, err)
		}
		require.Len(t, w.Root.Leaves(), len(w.Walkers)+1+3*len(w.Rooms))
	})
}

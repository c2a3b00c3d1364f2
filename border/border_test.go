package border

import (
	"sync"
	"testing"

	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/stretchr/testify/require"
)

func requireNear(t *testing.T, expected geom.Vector3f, actual geom.Vector3f, delta float64) {
	t.Helper()
	require.InDelta(t, expected.X, actual.X, delta)
	require.InDelta(t, expected.Y, actual.Y, delta)
	require.InDelta(t, expected.Z, actual.Z, delta)
}

func TestBorderCorners(t *testing.T) {
	b := New(geom.Vector3f{1, 2, 3}, geom.Vector3f{2, 4, 6})

	requireNear(t, geom.Vector3f{0.001, 0.001, 0.001}, b.Min(), 1e-6)
	requireNear(t, geom.Vector3f{1.999, 3.999, 5.999}, b.Max(), 1e-6)
	require.InDelta(t, 2-2*Padding, b.Width(), 1e-6)
	require.InDelta(t, 4-2*Padding, b.Height(), 1e-6)
	require.InDelta(t, 6-2*Padding, b.Depth(), 1e-6)

	corners := b.Corners()
	require.Equal(t, b.Min(), corners[0])
	require.Equal(t, b.Max(), corners[7])
	require.Equal(t, corners[0].Y, corners[1].Y)
	require.Equal(t, corners[1].X, corners[7].X)
}

func TestBorderRestingBordersDoNotTouch(t *testing.T) {
	a := New(geom.Vector3f{0, 0, 0}, geom.Vector3f{1, 1, 1})
	b := New(geom.Vector3f{1, 0, 0}, geom.Vector3f{1, 1, 1})

	require.Less(t, a.Max().X, b.Min().X)
	require.False(t, a.Overlaps(b))
}

func TestBorderOverlaps(t *testing.T) {
	a := New(geom.Vector3f{0, 0, 0}, geom.Vector3f{2, 2, 2})

	require.True(t, a.Overlaps(New(geom.Vector3f{1, 1, 1}, geom.Vector3f{2, 2, 2})))
	require.True(t, a.Overlaps(a))
	require.False(t, a.Overlaps(New(geom.Vector3f{1, 5, 1}, geom.Vector3f{2, 2, 2})))
}

func TestBorderTinyScaleIsClamped(t *testing.T) {
	b := New(geom.Vector3f{}, geom.Vector3f{0.001, 0, 1})
	require.Equal(t, (float32)(0), b.Width())
	require.Equal(t, (float32)(0), b.Height())
}

func TestBorderSetLocationRecomputesCorners(t *testing.T) {
	b := New(geom.Vector3f{}, geom.Vector3f{1, 1, 1})
	b.SetLocation(geom.Vector3f{10, 0, 0})
	require.InDelta(t, 9.501, b.Min().X, 1e-5)

	b.SetScale(geom.Vector3f{3, 1, 1})
	require.InDelta(t, 8.501, b.Min().X, 1e-5)
}

func TestBorderTranslated(t *testing.T) {
	b := New(geom.Vector3f{}, geom.Vector3f{2, 2, 2})
	min, max := b.Translated(geom.Vector3f{1, 0, 0})
	requireNear(t, geom.Vector3f{0.001, -0.999, -0.999}, min, 1e-6)
	requireNear(t, geom.Vector3f{1.999, 0.999, 0.999}, max, 1e-6)
}

func TestBorderObstacleTracking(t *testing.T) {
	t.Run("nearer obstacle is kept", func(t *testing.T) {
		b := New(geom.Vector3f{}, geom.Vector3f{1, 1, 1})
		require.Equal(t, (float32)(1), b.MoveFactor())
		require.Nil(t, b.LastObstacle())

		require.True(t, b.UpdateObstacleIfNearer("wall", 0.5))
		require.False(t, b.UpdateObstacleIfNearer("door", 0.75))
		require.False(t, b.UpdateObstacleIfNearer("door", 0.5))
		require.Equal(t, "wall", b.LastObstacle())
		require.Equal(t, (float32)(0.5), b.MoveFactor())

		require.True(t, b.UpdateObstacleIfNearer("door", 0.25))
		require.Equal(t, "door", b.LastObstacle())
	})

	t.Run("no collision keeps the sentinel", func(t *testing.T) {
		b := New(geom.Vector3f{}, geom.Vector3f{1, 1, 1})
		require.False(t, b.UpdateObstacleIfNearer("far", 1))
		require.Nil(t, b.LastObstacle())
	})

	t.Run("reset clears state", func(t *testing.T) {
		b := New(geom.Vector3f{}, geom.Vector3f{1, 1, 1})
		b.UpdateObstacleIfNearer("wall", 0)
		b.ResetObstacle()
		require.Equal(t, (float32)(1), b.MoveFactor())
		require.Nil(t, b.LastObstacle())
	})

	t.Run("concurrent updates converge to the nearest", func(t *testing.T) {
		b := New(geom.Vector3f{}, geom.Vector3f{1, 1, 1})

		var wg sync.WaitGroup
		for i := 1; i <= 64; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b.UpdateObstacleIfNearer(i, (float32)(i)/100)
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, b.LastObstacle())
		require.Equal(t, (float32)(0.01), b.MoveFactor())
	})
}

func TestBorderApplyMovement(t *testing.T) {
	b := New(geom.Vector3f{}, geom.Vector3f{1, 1, 1})
	b.SetMovement(geom.Vector3f{4, 0, 0})
	require.True(t, b.IsMoving())

	b.UpdateObstacleIfNearer("wall", 0.5)
	applied := b.ApplyMovement()
	require.Equal(t, geom.Vector3f{2, 0, 0}, applied)
	require.Equal(t, geom.Vector3f{2, 0, 0}, b.Location())
	require.InDelta(t, 1.501, b.Min().X, 1e-5)

	b.SetMovement(geom.Vector3f{})
	require.False(t, b.IsMoving())
	require.True(t, b.ApplyMovement().IsZero())
}

// Package simulation advances a scene by one tick: every moving leaf is tested
// against its neighbors, then every moving leaf is moved.
package simulation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/aukilabs/hagall-rooms/collision"
	"github.com/aukilabs/hagall-rooms/scene"
	"golang.org/x/sync/errgroup"
)

// Stats describes what happened during a tick.
type Stats struct {
	Moving     int
	Candidates int
	Collisions int
	Reparents  int
	Duration   time.Duration
}

type Engine struct {
	collisions *collision.Engine
	workers    int
	noMetrics  bool
}

// NewEngine returns an engine running collision tests with collisions. workers
// limits the goroutines of each fan-out, 0 means no limit.
func NewEngine(collisions *collision.Engine, workers int) *Engine {
	if collisions == nil {
		collisions = collision.NewEngine(1, nil)
	}
	if workers <= 0 {
		workers = -1
	}

	return &Engine{
		collisions: collisions,
		workers:    workers,
	}
}

// DisableMetrics stops the engine from recording tick metrics.
func (e *Engine) DisableMetrics() {
	e.noMetrics = true
}

func (e *Engine) Collisions() *collision.Engine {
	return e.collisions
}

// Tick detects the collisions of every moving leaf below root, waits for all
// of them, then moves the leaves and commits their placement.
func (e *Engine) Tick(ctx context.Context, root *scene.Node) (Stats, error) {
	start := time.Now()
	moving := root.GetMovingObjects()

	stats := Stats{Moving: len(moving)}
	if len(moving) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	for _, n := range moving {
		n.Border().ResetObstacle()
	}

	var candidates atomic.Int64
	detect, detectCtx := errgroup.WithContext(ctx)
	detect.SetLimit(e.workers)
	for _, n := range moving {
		n := n
		detect.Go(func() error {
			return e.detect(detectCtx, n, &candidates)
		})
	}
	if err := detect.Wait(); err != nil {
		if !e.noMetrics {
			instrumentTickError(e.collisions.Strategy(), err)
		}
		return stats, err
	}
	stats.Candidates = int(candidates.Load())

	for _, n := range moving {
		if n.Border().MoveFactor() < 1 {
			stats.Collisions++
		}
	}

	var reparents atomic.Int64
	commit, _ := errgroup.WithContext(ctx)
	commit.SetLimit(e.workers)
	for _, n := range moving {
		n := n
		commit.Go(func() error {
			n.MoveLocation()
			if n.CommitPlacement() != nil {
				reparents.Add(1)
			}
			return nil
		})
	}
	commit.Wait()
	stats.Reparents = int(reparents.Load())

	stats.Duration = time.Since(start)
	if !e.noMetrics {
		instrumentTick(e.collisions.Strategy(), stats)
	}
	return stats, nil
}

func (e *Engine) detect(ctx context.Context, n *scene.Node, candidates *atomic.Int64) error {
	neighbors := n.FindCollisionNeighbors()
	if len(neighbors) == 0 {
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, c := range neighbors {
		// Composites and layouts share the grid but have no solid volume.
		if c.Kind() != scene.KindLeaf {
			continue
		}
		candidates.Add(1)

		c := c
		g.Go(func() error {
			return e.collisions.DetectCollision(n, c)
		})
	}
	return g.Wait()
}

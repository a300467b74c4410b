// Package loadtest soaks the index with a world of scripted moving
// rectangles. Every frame the world is rebuilt from scratch (clear and
// re-insert), the way a simulation loop is expected to use a snapshot
// index, then candidates are retrieved for every agent and deduplicated
// at the query site.
package loadtest

import (
	"context"
	"math/rand"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/marmal95/quadtree/featureflag"
	"github.com/marmal95/quadtree/quadtree"
)

const logSummaryEveryFrames = 100

// Agent is one scripted rectangle. It moves in a straight line and
// bounces off the world borders. There is no physics beyond that; the
// movement exists to churn the index.
type Agent struct {
	ID       uuid.UUID
	Pos      quadtree.Vec2
	Velocity quadtree.Vec2
	Extent   quadtree.Vec2
}

func (a *Agent) Position() quadtree.Vec2 {
	return a.Pos
}

func (a *Agent) Size() quadtree.Vec2 {
	return a.Extent
}

type Options struct {
	Bounds            quadtree.Bounds
	AgentCount        int
	MaxDepth          uint32
	MaxObjectsPerNode int
	Seed              int64
	FeatureFlags      featureflag.FeatureFlag
}

// FrameStats describes what a single frame did to the index.
type FrameStats struct {
	Frame      int
	Candidates int // references returned by retrievals, duplicates included
	Pairs      int // colliding pairs after the exact test
	StrictFit  int // agents the strict classifier could place, when enabled
	NodeCount  uint32
	LeafCount  uint32
	MaxDepth   uint32
}

type World struct {
	opts   Options
	tree   *quadtree.Tree[*Agent]
	agents []*Agent
	frame  int

	scratch []*Agent
	seen    map[uuid.UUID]struct{}
}

func NewWorld(opts Options) (*World, error) {
	if opts.AgentCount <= 0 {
		return nil, errors.New("agent count must be positive").
			WithTag("agent_count", opts.AgentCount)
	}

	tree, err := quadtree.New[*Agent](opts.MaxDepth, opts.MaxObjectsPerNode, opts.Bounds)
	if err != nil {
		return nil, errors.New("creating the soak tree failed").Wrap(err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	maxExtent := opts.Bounds.Width() / 20
	maxSpeed := opts.Bounds.Width() / 100

	agents := make([]*Agent, opts.AgentCount)
	for i := range agents {
		extent := quadtree.Vec2{
			X: maxExtent * rng.Float32(),
			Y: maxExtent * rng.Float32(),
		}
		agents[i] = &Agent{
			ID: uuid.New(),
			Pos: quadtree.Add(opts.Bounds.TopLeft, quadtree.Vec2{
				X: (opts.Bounds.Width() - extent.X) * rng.Float32(),
				Y: (opts.Bounds.Height() - extent.Y) * rng.Float32(),
			}),
			Velocity: quadtree.Vec2{
				X: maxSpeed * (rng.Float32()*2 - 1),
				Y: maxSpeed * (rng.Float32()*2 - 1),
			},
			Extent: extent,
		}
	}

	w := &World{
		opts:   opts,
		tree:   tree,
		agents: agents,
		seen:   make(map[uuid.UUID]struct{}, opts.AgentCount),
	}

	// Initial snapshot, so the world is queryable before the first
	// frame even when per-frame rebuilds are disabled.
	for _, a := range agents {
		if err := tree.Insert(a); err != nil {
			return nil, errors.New("inserting an agent failed").
				WithTag("agent_id", a.ID).
				Wrap(err)
		}
	}

	return w, nil
}

// Tree exposes the underlying index, mostly for inspection in tests.
func (w *World) Tree() *quadtree.Tree[*Agent] {
	return w.tree
}

// Step advances the world by one frame: agents move, the index snapshot
// is rebuilt and every agent queries its collision candidates.
func (w *World) Step() (FrameStats, error) {
	w.frame++
	w.moveAgents()

	w.opts.FeatureFlags.IfNotSet(featureflag.FlagDisableFrameRebuild, func() {
		w.tree.Clear()
	})
	if w.tree.Len() == 0 {
		for _, a := range w.agents {
			if err := w.tree.Insert(a); err != nil {
				return FrameStats{}, errors.New("re-inserting an agent failed").
					WithTag("agent_id", a.ID).
					Wrap(err)
			}
		}
	}

	stats := FrameStats{Frame: w.frame}
	dedup := !w.opts.FeatureFlags.IsSet(featureflag.FlagDisableRetrievalDedup)

	for _, a := range w.agents {
		w.scratch = w.tree.Retrieve(w.scratch[:0], a)
		stats.Candidates += len(w.scratch)

		aRect := quadtree.NewBounds(a.Pos, quadtree.Add(a.Pos, a.Extent))
		clear(w.seen)

		for _, c := range w.scratch {
			if c == a {
				continue
			}
			if dedup {
				if _, ok := w.seen[c.ID]; ok {
					continue
				}
				w.seen[c.ID] = struct{}{}
			}

			// The index only returns candidates; the exact test is
			// on the caller.
			cRect := quadtree.NewBounds(c.Pos, quadtree.Add(c.Pos, c.Extent))
			if aRect.Overlaps(cRect) && a.ID.String() < c.ID.String() {
				stats.Pairs++
			}
		}
	}

	w.opts.FeatureFlags.IfSet(featureflag.FlagCompareStrictFit, func() {
		for _, a := range w.agents {
			if _, ok := w.tree.FitQuadrant(a); ok {
				stats.StrictFit++
			}
		}
	})

	info := w.tree.DebugInfo()
	stats.NodeCount = info.NodeCount
	stats.LeafCount = info.LeafCount
	stats.MaxDepth = info.MaxDepth

	return stats, nil
}

// Run steps the world until frames have passed or ctx ends. A frame
// summary is logged periodically.
func (w *World) Run(ctx context.Context, frames int, frameDuration time.Duration) error {
	var tick <-chan time.Time
	if frameDuration > 0 {
		ticker := time.NewTicker(frameDuration)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; i < frames; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		stats, err := w.Step()
		if err != nil {
			return err
		}

		if stats.Frame%logSummaryEveryFrames == 0 || stats.Frame == frames {
			logs.WithTag("frame", stats.Frame).
				WithTag("candidates", stats.Candidates).
				WithTag("pairs", stats.Pairs).
				WithTag("node_count", stats.NodeCount).
				WithTag("leaf_count", stats.LeafCount).
				WithTag("max_depth", stats.MaxDepth).
				Info("soak frame summary")
		}
	}

	return nil
}

func (w *World) moveAgents() {
	min := w.opts.Bounds.TopLeft
	max := w.opts.Bounds.BottomRight

	for _, a := range w.agents {
		a.Pos = quadtree.Add(a.Pos, a.Velocity)

		if a.Pos.X < min.X {
			a.Pos.X = min.X
			a.Velocity.X = -a.Velocity.X
		}
		if a.Pos.X+a.Extent.X > max.X {
			a.Pos.X = max.X - a.Extent.X
			a.Velocity.X = -a.Velocity.X
		}
		if a.Pos.Y < min.Y {
			a.Pos.Y = min.Y
			a.Velocity.Y = -a.Velocity.Y
		}
		if a.Pos.Y+a.Extent.Y > max.Y {
			a.Pos.Y = max.Y - a.Extent.Y
			a.Velocity.Y = -a.Velocity.Y
		}
	}
}

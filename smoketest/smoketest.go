// Package smoketest runs a scripted pass over a freshly created index
// and reports whether the core behaviors hold: splitting on overflow,
// pruned retrieval, straddle duplication, the depth ceiling and clear.
// The harness binary runs it once at startup before soaking.
package smoketest

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/marmal95/quadtree/quadtree"
)

type Options struct {
	Bounds            quadtree.Bounds
	MaxDepth          uint32
	MaxObjectsPerNode int
}

type Check struct {
	Name   string
	Passed bool
	Detail string
}

type Results struct {
	Passed   bool
	Checks   []Check
	Duration time.Duration
}

type rect struct {
	pos  quadtree.Vec2
	size quadtree.Vec2
}

func (r *rect) Position() quadtree.Vec2 { return r.pos }
func (r *rect) Size() quadtree.Vec2     { return r.size }

// Run executes the smoke test scenario against a tree built from opts.
// A failing check does not abort the run; every check is reported in
// Results. The returned error covers setup problems only.
func Run(ctx context.Context, opts Options) (Results, error) {
	start := time.Now()

	tree, err := quadtree.New[*rect](opts.MaxDepth, opts.MaxObjectsPerNode, opts.Bounds)
	if err != nil {
		return Results{}, errors.New("creating the smoke test tree failed").Wrap(err)
	}

	var res Results
	res.Passed = true

	check := func(name string, passed bool, detail string) {
		if !passed {
			res.Passed = false
			logs.WithTag("check", name).
				WithTag("detail", detail).
				Warn("smoke test check failed")
		}
		res.Checks = append(res.Checks, Check{Name: name, Passed: passed, Detail: detail})
	}

	origin := opts.Bounds.TopLeft
	cellW := opts.Bounds.Width() / 10
	cellH := opts.Bounds.Height() / 10

	at := func(col, row float32, cols, rows float32) *rect {
		return &rect{
			pos:  quadtree.Add(origin, quadtree.Vec2{X: col * cellW, Y: row * cellH}),
			size: quadtree.Vec2{X: cols * cellW, Y: rows * cellH},
		}
	}

	// One object per corner region plus one straddling the center.
	topLeft := at(1, 1, 0.5, 0.5)
	topRight := at(8, 1, 0.5, 0.5)
	bottomLeft := at(1, 8, 0.5, 0.5)
	bottomRight := at(8, 8, 0.5, 0.5)
	center := at(4.5, 4.5, 1, 1)

	for _, o := range []*rect{topLeft, topRight, bottomLeft, bottomRight, center} {
		if err := tree.Insert(o); err != nil {
			return Results{}, errors.New("inserting a smoke test object failed").Wrap(err)
		}
	}

	info := tree.DebugInfo()
	check("tree splits on overflow",
		opts.MaxObjectsPerNode >= 5 || opts.MaxDepth == 0 || info.NodeCount > 1,
		"expected more than one node after overflow")
	check("depth stays within the ceiling",
		info.MaxDepth <= opts.MaxDepth,
		"a node exceeded the configured max depth")

	candidates := tree.Retrieve(nil, topLeft)
	check("overlapping object is retrievable",
		refCount(candidates, topLeft) >= 1,
		"query did not return the object at its own position")
	check("far corners are pruned",
		opts.MaxDepth == 0 || opts.MaxObjectsPerNode >= 5 || refCount(candidates, bottomRight) == 0,
		"query returned an object from a non overlapping region")

	everything := tree.Retrieve(nil, &rect{pos: opts.Bounds.TopLeft, size: quadtree.Vec2{X: opts.Bounds.Width(), Y: opts.Bounds.Height()}})
	var missing bool
	for _, o := range []*rect{topLeft, topRight, bottomLeft, bottomRight, center} {
		if refCount(everything, o) < 1 {
			missing = true
		}
	}
	check("full area query returns every object", !missing, "an inserted object is missing")

	check("straddling object duplicates across leaves",
		opts.MaxDepth == 0 || opts.MaxObjectsPerNode >= 5 || refCount(everything, center) >= 2,
		"center object was expected in more than one leaf")

	tree.Clear()
	cleared := tree.DebugInfo()
	check("clear restores a single empty leaf",
		cleared.NodeCount == 1 && cleared.ObjectRefs == 0,
		"tree was not reset to an empty leaf")

	res.Duration = time.Since(start)
	return res, ctx.Err()
}

func refCount(objs []*rect, target *rect) int {
	var n int
	for _, o := range objs {
		if o == target {
			n++
		}
	}
	return n
}

package quadtree

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

var _ SpatialIndex[*box] = (*Tree[*box])(nil)

type box struct {
	pos  Vec2
	size Vec2
}

func newBox(x, y, w, h float32) *box {
	return &box{pos: Vec2{x, y}, size: Vec2{w, h}}
}

func (b *box) Position() Vec2 {
	return b.pos
}

func (b *box) Size() Vec2 {
	return b.size
}

func countRefs(objs []*box, target *box) int {
	var n int
	for _, o := range objs {
		if o == target {
			n++
		}
	}
	return n
}

func TestNew(t *testing.T) {
	t.Run("tree is created as an empty leaf", func(t *testing.T) {
		tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)
		require.Nil(t, tree.children[0])
		require.Empty(t, tree.objects)
		require.True(t, tree.Bounds().TopLeft.Equal(Vec2{0, 0}))
		require.True(t, tree.Bounds().BottomRight.Equal(Vec2{100, 100}))
	})

	t.Run("bounds without width are rejected", func(t *testing.T) {
		_, err := New[*box](4, 10, NewBounds(Vec2{10, 0}, Vec2{10, 100}))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidBounds, errors.Type(err))
	})

	t.Run("inverted bounds are rejected", func(t *testing.T) {
		_, err := New[*box](4, 10, NewBounds(Vec2{0, 100}, Vec2{100, 0}))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidBounds, errors.Type(err))
	})
}

func TestInsert(t *testing.T) {
	t.Run("object is stored in the leaf", func(t *testing.T) {
		tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		a := newBox(10, 10, 5, 5)
		require.NoError(t, tree.Insert(a))
		require.Len(t, tree.objects, 1)
		require.Nil(t, tree.children[0])
	})

	t.Run("overflowing leaf splits and redistributes", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		a := newBox(10, 10, 5, 5)
		b := newBox(60, 60, 5, 5)
		require.NoError(t, tree.Insert(a))
		require.NoError(t, tree.Insert(b))

		require.NotNil(t, tree.children[0])
		require.Empty(t, tree.objects)
		require.Equal(t, []*box{a}, tree.children[QuadrantII].objects)
		require.Equal(t, []*box{b}, tree.children[QuadrantIV].objects)

		for _, c := range tree.children {
			require.Equal(t, (uint32)(1), c.depth)
		}
	})

	t.Run("straddling object is referenced by every touched child", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		center := newBox(45, 45, 10, 10)
		corner := newBox(10, 10, 5, 5)
		require.NoError(t, tree.Insert(center))
		require.NoError(t, tree.Insert(corner))

		for _, c := range tree.children {
			require.Equal(t, 1, countRefs(c.objects, center))
		}
		require.Equal(t, 1, countRefs(tree.children[QuadrantII].objects, corner))
	})

	t.Run("leaf at max depth never splits", func(t *testing.T) {
		tree, err := New[*box](0, 4, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		for i := 0; i < 1000; i++ {
			require.NoError(t, tree.Insert(newBox(10, 10, 5, 5)))
		}
		require.Nil(t, tree.children[0])
		require.Len(t, tree.objects, 1000)
	})

	t.Run("zero threshold splits on the first possible insert", func(t *testing.T) {
		tree, err := New[*box](2, 0, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		require.NoError(t, tree.Insert(newBox(10, 10, 5, 5)))
		require.NotNil(t, tree.children[0])
	})

	t.Run("object with negative size is rejected", func(t *testing.T) {
		tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		err = tree.Insert(newBox(10, 10, -5, 5))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidGeometry, errors.Type(err))
		require.Empty(t, tree.objects)
	})
}

func TestRetrieve(t *testing.T) {
	t.Run("split tree returns only candidates near the query", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		a := newBox(10, 10, 5, 5)
		b := newBox(60, 60, 5, 5)
		require.NoError(t, tree.Insert(a))
		require.NoError(t, tree.Insert(b))

		candidates := tree.Retrieve(nil, newBox(10, 10, 5, 5))
		require.Equal(t, []*box{a}, candidates)

		candidates = tree.Retrieve(nil, newBox(0, 0, 100, 100))
		require.Equal(t, 1, countRefs(candidates, a))
		require.Equal(t, 1, countRefs(candidates, b))
	})

	t.Run("leaf returns everything it holds", func(t *testing.T) {
		tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		a := newBox(10, 10, 5, 5)
		require.NoError(t, tree.Insert(a))

		// No filtering happens inside a leaf, even for a far away query.
		candidates := tree.Retrieve(nil, newBox(90, 90, 5, 5))
		require.Equal(t, []*box{a}, candidates)
	})

	t.Run("straddling object is returned once per leaf", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		center := newBox(45, 45, 10, 10)
		require.NoError(t, tree.Insert(center))
		require.NoError(t, tree.Insert(newBox(10, 10, 5, 5)))

		candidates := tree.Retrieve(nil, newBox(0, 0, 100, 100))
		require.GreaterOrEqual(t, countRefs(candidates, center), 2)
	})

	t.Run("accumulator is extended, not replaced", func(t *testing.T) {
		tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		a := newBox(10, 10, 5, 5)
		require.NoError(t, tree.Insert(a))

		previous := newBox(90, 90, 5, 5)
		candidates := tree.Retrieve([]*box{previous}, newBox(10, 10, 5, 5))
		require.Equal(t, []*box{previous, a}, candidates)
	})

	t.Run("inserted object is always retrievable by an overlapping query", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		objects := []*box{
			newBox(1, 1, 2, 2),
			newBox(20, 3, 4, 4),
			newBox(48, 48, 4, 4),
			newBox(75, 20, 10, 10),
			newBox(10, 80, 5, 5),
			newBox(50, 50, 0, 0),
			newBox(99, 99, 1, 1),
		}
		for _, o := range objects {
			require.NoError(t, tree.Insert(o))
		}

		for _, o := range objects {
			candidates := tree.Retrieve(nil, o)
			require.GreaterOrEqual(t, countRefs(candidates, o), 1)
		}
	})
}

func TestClear(t *testing.T) {
	t.Run("clearing an empty tree is a no-op", func(t *testing.T) {
		tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		tree.Clear()
		tree.Clear()
		require.Nil(t, tree.children[0])
		require.Empty(t, tree.objects)
	})

	t.Run("clearing restores a single empty leaf", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		for i := 0; i < 32; i++ {
			require.NoError(t, tree.Insert(newBox((float32)(i*3), (float32)(i*3), 2, 2)))
		}
		require.NotNil(t, tree.children[0])

		tree.Clear()
		require.Nil(t, tree.children[0])
		require.Empty(t, tree.objects)
		require.True(t, tree.Bounds().TopLeft.Equal(Vec2{0, 0}))
		require.True(t, tree.Bounds().BottomRight.Equal(Vec2{100, 100}))
		require.Equal(t, 0, tree.Len())
	})
}

func TestFitQuadrant(t *testing.T) {
	tree, err := New[*box](4, 10, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
	require.NoError(t, err)

	t.Run("objects wholly inside one quarter are classified", func(t *testing.T) {
		for _, tc := range []struct {
			obj      *box
			quadrant Quadrant
		}{
			{newBox(60, 10, 5, 5), QuadrantI},
			{newBox(10, 10, 5, 5), QuadrantII},
			{newBox(10, 60, 5, 5), QuadrantIII},
			{newBox(60, 60, 5, 5), QuadrantIV},
		} {
			q, ok := tree.FitQuadrant(tc.obj)
			require.True(t, ok)
			require.Equal(t, tc.quadrant, q)
		}
	})

	t.Run("objects crossing a midline are not classified", func(t *testing.T) {
		_, ok := tree.FitQuadrant(newBox(45, 10, 10, 5))
		require.False(t, ok)

		_, ok = tree.FitQuadrant(newBox(10, 45, 5, 10))
		require.False(t, ok)

		_, ok = tree.FitQuadrant(newBox(45, 45, 10, 10))
		require.False(t, ok)
	})
}

func TestDebugInfo(t *testing.T) {
	t.Run("empty tree is a single leaf", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		info := tree.DebugInfo()
		require.Equal(t, (uint32)(1), info.NodeCount)
		require.Equal(t, (uint32)(1), info.LeafCount)
		require.Equal(t, (uint32)(0), info.MaxDepth)
		require.Equal(t, (uint32)(0), info.ObjectRefs)
	})

	t.Run("split tree reports its shape", func(t *testing.T) {
		tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
		require.NoError(t, err)

		require.NoError(t, tree.Insert(newBox(10, 10, 5, 5)))
		require.NoError(t, tree.Insert(newBox(60, 60, 5, 5)))

		info := tree.DebugInfo()
		require.Equal(t, (uint32)(5), info.NodeCount)
		require.Equal(t, (uint32)(4), info.LeafCount)
		require.Equal(t, (uint32)(1), info.MaxDepth)
		require.Equal(t, (uint32)(2), info.ObjectRefs)
		require.Equal(t, []uint32{0, 2}, info.Occupancy)
	})
}

func TestLen(t *testing.T) {
	tree, err := New[*box](4, 1, NewBounds(Vec2{0, 0}, Vec2{100, 100}))
	require.NoError(t, err)
	require.Equal(t, 0, tree.Len())

	require.NoError(t, tree.Insert(newBox(10, 10, 5, 5)))
	require.NoError(t, tree.Insert(newBox(60, 60, 5, 5)))
	require.Equal(t, 2, tree.Len())

	// A straddling object counts once per referencing leaf.
	require.NoError(t, tree.Insert(newBox(45, 45, 10, 10)))
	require.Equal(t, 6, tree.Len())
}

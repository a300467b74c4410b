// Package quadtree provides a spatial partitioning index for 2D
// collision candidate queries.
//
// A tree recursively divides its rectangle into four quarters whenever a
// node holds more objects than its threshold, up to a maximum depth.
// Queries descend only into the quarters that overlap the query
// rectangle, so clustered scenes avoid the full pairwise scan.
//
//	II  |  I
//	---------
//	III | IV
//
// The tree stores references only. It never copies, owns or mutates the
// indexed objects, and it does not track their movement: hosts with
// moving objects are expected to Clear and re-insert every live object
// each cycle, then Retrieve candidates and run their own exact collision
// test on them.
package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Error types tagged on the errors returned by this package.
const (
	ErrTypeInvalidBounds   = "invalid_bounds"
	ErrTypeInvalidGeometry = "invalid_geometry"
)

// Object is what a tree indexes: an axis-aligned rectangle given by the
// position of its top left corner and its size. Implementations are
// typically pointer types, since the tree keeps the values it is given
// as references shared across nodes.
type Object interface {
	// Returns the top left corner of the object.
	Position() Vec2

	// Returns the width and height of the object.
	Size() Vec2
}

// Tree is a quad-tree node. A node is either a leaf holding objects or
// an internal node holding exactly four children and no objects. The
// root is the only node hosts deal with.
//
// An object overlapping a midline is referenced by every child it
// touches, so retrieval can return the same object more than once.
// Callers needing exact-once semantics deduplicate at the query site.
//
// A Tree is not safe for concurrent use.
type Tree[T Object] struct {
	depth      uint32
	maxDepth   uint32
	maxObjects int
	bounds     Bounds
	children   [4]*Tree[T] // all nil or all set
	objects    []T
}

// New creates an empty tree covering bounds, with the root at depth 0.
// Nodes split once they hold more than maxObjectsPerNode objects, and
// nodes at maxDepth never split, whatever their size. Bounds without a
// positive area are rejected.
func New[T Object](maxDepth uint32, maxObjectsPerNode int, bounds Bounds) (*Tree[T], error) {
	if bounds.Width() <= 0 || bounds.Height() <= 0 {
		return nil, errors.New("bounds have no area").
			WithType(ErrTypeInvalidBounds).
			WithTag("width", bounds.Width()).
			WithTag("height", bounds.Height())
	}

	return newNode[T](0, maxDepth, maxObjectsPerNode, bounds), nil
}

func newNode[T Object](depth, maxDepth uint32, maxObjects int, bounds Bounds) *Tree[T] {
	return &Tree[T]{
		depth:      depth,
		maxDepth:   maxDepth,
		maxObjects: maxObjects,
		bounds:     bounds,
	}
}

// Bounds returns the rectangle this node covers.
func (t *Tree[T]) Bounds() Bounds {
	return t.bounds
}

// Clear removes every stored reference and drops all children, leaving
// the node an empty leaf with its original bounds. Safe to call on a
// tree in any state.
func (t *Tree[T]) Clear() {
	t.clear()
	instrumentCountClear()
}

func (t *Tree[T]) clear() {
	t.objects = nil

	for i, c := range t.children {
		if c != nil {
			c.clear()
			t.children[i] = nil
		}
	}
}

// Insert adds a reference to obj into the node or its descendants so
// that later retrievals overlapping obj find it. On an internal node the
// object is offered to every child whose bounds overlap it; an object
// straddling a midline lands in all the children it touches.
//
// Objects with a negative width or height are rejected.
func (t *Tree[T]) Insert(obj T) error {
	size := obj.Size()
	if size.X < 0 || size.Y < 0 {
		return errors.New("object has a negative size").
			WithType(ErrTypeInvalidGeometry).
			WithTag("width", size.X).
			WithTag("height", size.Y)
	}

	t.insert(obj)
	instrumentCountInsert()
	return nil
}

func (t *Tree[T]) insert(obj T) {
	if t.children[0] != nil {
		rect := objectBounds(obj)
		for _, c := range t.children {
			if c.bounds.Overlaps(rect) {
				c.insert(obj)
			}
		}
		return
	}

	t.objects = append(t.objects, obj)

	if len(t.objects) > t.maxObjects && t.depth < t.maxDepth {
		t.split()

		for _, o := range t.objects {
			rect := objectBounds(o)
			for _, c := range t.children {
				if c.bounds.Overlaps(rect) {
					c.objects = append(c.objects, o)
				}
			}
		}
		t.objects = nil
	}
}

// Retrieve appends to dst every reference held by leaves whose bounds
// overlap obj and returns dst, so results of several queries can be
// accumulated in one slice. The result is a candidate set, not a
// collision result: leaves do not filter their contents against obj, and
// an object indexed under several overlapping leaves appears once per
// leaf. The caller runs its own exact test and deduplicates as needed.
func (t *Tree[T]) Retrieve(dst []T, obj T) []T {
	instrumentCountRetrieve()
	return t.retrieve(dst, obj)
}

func (t *Tree[T]) retrieve(dst []T, obj T) []T {
	if t.children[0] == nil {
		return append(dst, t.objects...)
	}

	rect := objectBounds(obj)
	for _, c := range t.children {
		if c.bounds.Overlaps(rect) {
			dst = c.retrieve(dst, obj)
		}
	}
	return dst
}

// split turns a leaf into an internal node with four children at
// depth+1, one per quadrant. The caller redistributes the leaf's objects
// and clears its list.
func (t *Tree[T]) split() {
	for q := QuadrantI; q <= QuadrantIV; q++ {
		t.children[q] = newNode[T](t.depth+1, t.maxDepth, t.maxObjects, t.bounds.Quadrant(q))
	}
	instrumentCountSplit(t.depth + 1)
}

// FitQuadrant returns the single quadrant obj fits into entirely, going
// by the node's midlines. An object crossing a midline on either axis
// fits nowhere and reports false.
//
// Insert and Retrieve do not use this classifier: they index by the
// inclusive overlap test, which places a straddling object into every
// quadrant it touches. FitQuadrant is the strict alternative for hosts
// that want a non-duplicating single-owner assignment.
func (t *Tree[T]) FitQuadrant(obj T) (Quadrant, bool) {
	midX := t.bounds.TopLeft.X + t.bounds.Width()/2
	midY := t.bounds.TopLeft.Y + t.bounds.Height()/2
	pos := obj.Position()
	size := obj.Size()

	topQuadrant := pos.Y < midY && pos.Y+size.Y < midY
	bottomQuadrant := pos.Y > midY

	if pos.X < midX && pos.X+size.X < midX {
		if topQuadrant {
			return QuadrantII, true
		}
		if bottomQuadrant {
			return QuadrantIII, true
		}
	} else if pos.X > midX {
		if topQuadrant {
			return QuadrantI, true
		}
		if bottomQuadrant {
			return QuadrantIV, true
		}
	}

	return 0, false
}

// Len returns the number of references stored under this node,
// duplicates included.
func (t *Tree[T]) Len() int {
	n := len(t.objects)
	for _, c := range t.children {
		if c != nil {
			n += c.Len()
		}
	}
	return n
}

// DebugInfo walks the tree and returns a snapshot of its shape.
func (t *Tree[T]) DebugInfo() DebugInfo {
	var info DebugInfo
	t.collectDebugInfo(&info)
	return info
}

func (t *Tree[T]) collectDebugInfo(info *DebugInfo) {
	info.NodeCount++
	if t.depth > info.MaxDepth {
		info.MaxDepth = t.depth
	}

	for (uint32)(len(info.Occupancy)) <= t.depth {
		info.Occupancy = append(info.Occupancy, 0)
	}
	info.Occupancy[t.depth] += (uint32)(len(t.objects))
	info.ObjectRefs += (uint32)(len(t.objects))

	if t.children[0] == nil {
		info.LeafCount++
		return
	}
	for _, c := range t.children {
		c.collectDebugInfo(info)
	}
}

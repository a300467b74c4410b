package quadtree

import (
	"math"
)

// Vec2 is a 2D vector. Depending on context it holds a position or a
// size (X as width, Y as height). The y axis grows downwards, matching
// common screen coordinates.
type Vec2 struct {
	X float32
	Y float32
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{x, y}
}

func (v Vec2) Equal(o Vec2) bool {
	return v.X == o.X && v.Y == o.Y
}

func (v Vec2) EqualWithEpsilon(o Vec2, epsilon float64) bool {
	return math.Abs((float64)(v.X-o.X)) <= epsilon &&
		math.Abs((float64)(v.Y-o.Y)) <= epsilon
}

func Add(a Vec2, b Vec2) Vec2 {
	return Vec2{a.X + b.X, a.Y + b.Y}
}

func Sub(a Vec2, b Vec2) Vec2 {
	return Vec2{a.X - b.X, a.Y - b.Y}
}

func Mul(a Vec2, s float32) Vec2 {
	return Vec2{a.X * s, a.Y * s}
}

func Half(a Vec2) Vec2 {
	return Vec2{a.X / 2, a.Y / 2}
}

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

// Quadrant identifies one of the four quarters of a rectangle, numbered
// like the quarters of a coordinate system:
//
//	II  |  I
//	---------
//	III | IV
type Quadrant int

const (
	QuadrantI   Quadrant = iota // top right
	QuadrantII                  // top left
	QuadrantIII                 // bottom left
	QuadrantIV                  // bottom right
)

// Bounds is an axis-aligned rectangle described by its top left and
// bottom right corners.
type Bounds struct {
	TopLeft     Vec2
	BottomRight Vec2
}

func NewBounds(topLeft, bottomRight Vec2) Bounds {
	return Bounds{TopLeft: topLeft, BottomRight: bottomRight}
}

func (b Bounds) Width() float32 {
	return b.BottomRight.X - b.TopLeft.X
}

func (b Bounds) Height() float32 {
	return b.BottomRight.Y - b.TopLeft.Y
}

// Overlaps reports whether o intersects b. All four edge comparisons are
// inclusive: rectangles that merely touch a shared edge overlap.
func (b Bounds) Overlaps(o Bounds) bool {
	return o.BottomRight.X >= b.TopLeft.X &&
		o.TopLeft.X <= b.BottomRight.X &&
		o.BottomRight.Y >= b.TopLeft.Y &&
		o.TopLeft.Y <= b.BottomRight.Y
}

// Quadrant returns the sub-rectangle covering the given quarter of b.
// Neighbouring quarters share their midline coordinates, so the four of
// them partition b with no gap and no overlap beyond the shared lines.
func (b Bounds) Quadrant(q Quadrant) Bounds {
	halfWidth := b.Width() / 2
	halfHeight := b.Height() / 2
	midX := b.TopLeft.X + halfWidth
	midY := b.TopLeft.Y + halfHeight

	switch q {
	case QuadrantI:
		return Bounds{Vec2{midX, b.TopLeft.Y}, Vec2{b.BottomRight.X, midY}}
	case QuadrantII:
		return Bounds{b.TopLeft, Vec2{midX, midY}}
	case QuadrantIII:
		return Bounds{Vec2{b.TopLeft.X, midY}, Vec2{midX, b.BottomRight.Y}}
	default:
		return Bounds{Vec2{midX, midY}, b.BottomRight}
	}
}

func objectBounds(o Object) Bounds {
	pos := o.Position()
	return Bounds{pos, Add(pos, o.Size())}
}

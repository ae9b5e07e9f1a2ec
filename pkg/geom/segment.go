package geom

import (
	"fmt"
	"math"
)

// Segment is a straight line from A to B.
type Segment struct {
	A, B Point
}

// Seg is shorthand for Segment{a, b}.
func Seg(a, b Point) Segment { return Segment{A: a, B: b} }

// Delta returns B - A.
func (s Segment) Delta() Point { return s.B.Sub(s.A) }

// Degenerate reports whether A and B coincide.
func (s Segment) Degenerate() bool { return s.A.Near(s.B) }

// Orthogonal reports whether s is a non-degenerate horizontal or vertical run.
func (s Segment) Orthogonal() bool {
	_, ok := Canonical(s.Delta())
	return ok
}

// Diagonal reports whether s has a significant extent on both axes.
func (s Segment) Diagonal() bool {
	d := s.Delta()
	return !Near(d.X, 0) && !Near(d.Y, 0)
}

// Direction returns the travel direction of an orthogonal segment.
func (s Segment) Direction() (Direction, bool) { return Canonical(s.Delta()) }

// RunAxis returns the axis an orthogonal segment runs along.
func (s Segment) RunAxis() (Axis, bool) {
	d, ok := s.Direction()
	if !ok {
		return X, false
	}
	return d.Axis(), true
}

// SweptArea returns the area of the bounding box of s, which is zero
// exactly when s is orthogonal or degenerate.
func (s Segment) SweptArea() float64 {
	if !s.Diagonal() {
		return 0
	}
	d := s.Delta()
	return math.Abs(d.X * d.Y)
}

// Length returns the Euclidean length.
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// Bounds returns the axis-aligned bounding box of s.
func (s Segment) Bounds() Rect { return RectFromPoints(s.A, s.B) }

// Point returns A for index 0 and B otherwise.
func (s Segment) Point(i int) Point {
	if i == 0 {
		return s.A
	}
	return s.B
}

// WithPoint returns a copy of s with endpoint i replaced.
func (s Segment) WithPoint(i int, p Point) Segment {
	if i == 0 {
		s.A = p
	} else {
		s.B = p
	}
	return s
}

func (s Segment) String() string { return fmt.Sprintf("%s->%s", s.A, s.B) }

// Rect is an axis-aligned rectangle with Min <= Max on both axes.
type Rect struct {
	Min, Max Point
}

// RectFromPoints returns the smallest rectangle containing a and b.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Point{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Inset shrinks r by d on every side. A negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{Min: Point{r.Min.X + d, r.Min.Y + d}, Max: Point{r.Max.X - d, r.Max.Y - d}}
}

// Empty reports whether r has no interior.
func (r Rect) Empty() bool { return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y }

// Overlaps reports whether r and o share interior or boundary points.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Contains reports whether p lies inside r or on its boundary.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

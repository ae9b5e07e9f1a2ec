package geom

import (
	"fmt"
	"math"
)

// Tolerance is the distance below which two coordinates are considered equal.
const Tolerance = 0.1

// Near reports whether a and b differ by less than [Tolerance].
func Near(a, b float64) bool { return math.Abs(a-b) < Tolerance }

// Snap rounds v to the nearest multiple of grid. A non-positive grid
// returns v unchanged.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// Axis selects a coordinate of a [Point].
type Axis int

const (
	X Axis = iota
	Y
)

// Other returns the perpendicular axis.
func (a Axis) Other() Axis {
	if a == X {
		return Y
	}
	return X
}

func (a Axis) String() string {
	if a == X {
		return "x"
	}
	return "y"
}

// Axes lists both axes in canonical order.
var Axes = [2]Axis{X, Y}

// Point is a 2-D position or displacement.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Get returns the coordinate on axis a.
func (p Point) Get(a Axis) float64 {
	if a == X {
		return p.X
	}
	return p.Y
}

// With returns a copy of p with the coordinate on axis a replaced by v.
func (p Point) With(a Axis, v float64) Point {
	if a == X {
		p.X = v
	} else {
		p.Y = v
	}
	return p
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Near reports whether p and q coincide within [Tolerance] on both axes.
func (p Point) Near(q Point) bool { return Near(p.X, q.X) && Near(p.Y, q.Y) }

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

// Along returns a displacement of length d on axis a.
func Along(a Axis, d float64) Point { return Point{}.With(a, d) }

// Direction is a canonical compass direction. The zero value is [None].
type Direction int

const (
	None Direction = iota
	East
	South
	West
	North
)

var directionNames = map[Direction]string{
	None:  "none",
	East:  "east",
	South: "south",
	West:  "west",
	North: "north",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection converts a lowercase compass name to a Direction.
// The empty string parses as [None].
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return None, nil
	}
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return None, fmt.Errorf("unknown direction %q", s)
}

// Vector returns the unit vector of d; [None] yields the zero vector.
func (d Direction) Vector() Point {
	switch d {
	case East:
		return Point{1, 0}
	case South:
		return Point{0, 1}
	case West:
		return Point{-1, 0}
	case North:
		return Point{0, -1}
	}
	return Point{}
}

// Axis returns the axis d travels along. [None] reports X.
func (d Direction) Axis() Axis {
	if d == South || d == North {
		return Y
	}
	return X
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case East:
		return West
	case West:
		return East
	case South:
		return North
	case North:
		return South
	}
	return None
}

// Toward returns the direction that travels along a with the sign of delta,
// or [None] when delta is within tolerance of zero.
func Toward(a Axis, delta float64) Direction {
	switch {
	case delta >= Tolerance && a == X:
		return East
	case delta <= -Tolerance && a == X:
		return West
	case delta >= Tolerance:
		return South
	case delta <= -Tolerance:
		return North
	}
	return None
}

// Canonical classifies v. It reports false when v is (near) zero or has a
// significant component on both axes.
func Canonical(v Point) (Direction, bool) {
	zx, zy := Near(v.X, 0), Near(v.Y, 0)
	switch {
	case zx && zy:
		return None, false
	case zy:
		return Toward(X, v.X), true
	case zx:
		return Toward(Y, v.Y), true
	}
	return None, false
}

package ortho

import (
	"fmt"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// Operation is the rewrite applied by a [LinkSegStrategy]. The concrete
// types are [Keep], [SingleMove], [DoubleMove], [SingleSplit],
// [SplitAndMove] and [DoubleSplit].
type Operation interface {
	isOperation()
	String() string
}

// Keep leaves a segment untouched. It resolves a dependency that is still
// orthogonal after its shared corner moved.
type Keep struct{}

// SingleMove aligns endpoint End with the other endpoint on Axis.
type SingleMove struct {
	End  linktree.Endpoint
	Axis geom.Axis
}

// DoubleMove moves both endpoints on Axis to their grid-snapped midpoint.
type DoubleMove struct {
	Axis geom.Axis
}

// SingleSplit inserts one corner, travelling along First and then along
// the other axis.
type SingleSplit struct {
	First geom.Axis
}

// SplitAndMove inserts one corner at the grid-snapped midpoint of the free
// axis and moves endpoint End so both halves are orthogonal.
type SplitAndMove struct {
	First geom.Axis
	End   linktree.Endpoint
}

// DoubleSplit inserts two corners sharing a floating coordinate on First,
// producing a three-leg path whose outer legs run along First.
type DoubleSplit struct {
	First geom.Axis
}

func (Keep) isOperation()         {}
func (SingleMove) isOperation()   {}
func (DoubleMove) isOperation()   {}
func (SingleSplit) isOperation()  {}
func (SplitAndMove) isOperation() {}
func (DoubleSplit) isOperation()  {}

func (Keep) String() string { return "keep" }
func (o SingleMove) String() string {
	return fmt.Sprintf("move %s.%s", o.End, o.Axis)
}
func (o DoubleMove) String() string { return fmt.Sprintf("move both %s", o.Axis) }
func (o SingleSplit) String() string {
	return fmt.Sprintf("split %s-first", o.First)
}
func (o SplitAndMove) String() string {
	return fmt.Sprintf("split %s-first + move %s.%s", o.First, o.End, o.MoveAxis())
}
func (o DoubleSplit) String() string { return fmt.Sprintf("double split %s-first", o.First) }

// MoveAxis returns the axis of the companion move.
func (o SplitAndMove) MoveAxis() geom.Axis {
	if o.End == linktree.EndPoint {
		return o.First
	}
	return o.First.Other()
}

// LinkSegStrategy is one rewrite of one segment together with the endpoint
// DOFs it was admitted under.
type LinkSegStrategy struct {
	Segment linktree.SegmentID
	Op      Operation
	P0, P1  PointDOF
}

// HasVariations reports whether the strategy has a continuous parameter
// that is discretized into variations.
func (s LinkSegStrategy) HasVariations() bool {
	_, ok := s.Op.(DoubleSplit)
	return ok
}

func (s LinkSegStrategy) String() string {
	return fmt.Sprintf("segment %d: %s", s.Segment, s.Op)
}

// Goals renders the strategy's constraints as symbolic equalities, e.g.
// "P0.x = P1.x" or "Split0.y = P0.y".
func (s LinkSegStrategy) Goals() []string {
	switch op := s.Op.(type) {
	case SingleMove:
		return []string{fmt.Sprintf("%s.%s = %s.%s", op.End, op.Axis, op.End.Other(), op.Axis)}
	case DoubleMove:
		return []string{
			fmt.Sprintf("P0.%s(new) = mid.%s", op.Axis, op.Axis),
			fmt.Sprintf("P1.%s(new) = mid.%s", op.Axis, op.Axis),
		}
	case SingleSplit:
		f, o := op.First, op.First.Other()
		return []string{
			fmt.Sprintf("Split0.%s = P1.%s", f, f),
			fmt.Sprintf("Split0.%s = P0.%s", o, o),
		}
	case SplitAndMove:
		f, o := op.First, op.First.Other()
		if op.End == linktree.EndPoint {
			return []string{
				fmt.Sprintf("Split0.%s = mid.%s", f, f),
				fmt.Sprintf("Split0.%s = P0.%s", o, o),
				fmt.Sprintf("P1.%s(new) = Split0.%s", f, f),
			}
		}
		return []string{
			fmt.Sprintf("Split0.%s = P1.%s", f, f),
			fmt.Sprintf("Split0.%s = mid.%s", o, o),
			fmt.Sprintf("P0.%s(new) = Split0.%s", o, o),
		}
	case DoubleSplit:
		f, o := op.First, op.First.Other()
		return []string{
			fmt.Sprintf("Split0.%s = Split1.%s", f, f),
			fmt.Sprintf("Split0.%s = P0.%s", o, o),
			fmt.Sprintf("Split1.%s = P1.%s", o, o),
		}
	}
	return nil
}

// movedPoint is an endpoint displaced by a strategy.
type movedPoint struct {
	End  linktree.Endpoint
	Axis geom.Axis
	To   geom.Point
}

// shape is the geometry a strategy produces for one segment: the ordered
// legs replacing it and the endpoints it moves.
type shape struct {
	legs  []geom.Segment
	moved []movedPoint
}

// corners returns the inserted corner positions.
func (sh shape) corners() []geom.Point {
	out := make([]geom.Point, 0, len(sh.legs)-1)
	for _, l := range sh.legs[:len(sh.legs)-1] {
		out = append(out, l.B)
	}
	return out
}

// shapeOf evaluates op against seg. float is the shared coordinate of a
// double split and is ignored by every other operation.
func shapeOf(op Operation, seg geom.Segment, grid, float float64) (shape, error) {
	p0, p1 := seg.A, seg.B
	switch op := op.(type) {
	case Keep:
		return shape{legs: []geom.Segment{seg}}, nil

	case SingleMove:
		e := int(op.End)
		q := seg.Point(e).With(op.Axis, seg.Point(1-e).Get(op.Axis))
		return shape{
			legs:  []geom.Segment{seg.WithPoint(e, q)},
			moved: []movedPoint{{op.End, op.Axis, q}},
		}, nil

	case DoubleMove:
		m := geom.Snap((p0.Get(op.Axis)+p1.Get(op.Axis))/2, grid)
		a, b := p0.With(op.Axis, m), p1.With(op.Axis, m)
		return shape{
			legs: []geom.Segment{geom.Seg(a, b)},
			moved: []movedPoint{
				{linktree.StartPoint, op.Axis, a},
				{linktree.EndPoint, op.Axis, b},
			},
		}, nil

	case SingleSplit:
		c := p0.With(op.First, p1.Get(op.First))
		return shape{legs: []geom.Segment{geom.Seg(p0, c), geom.Seg(c, p1)}}, nil

	case SplitAndMove:
		f := op.First
		if op.End == linktree.EndPoint {
			m := geom.Snap((p0.Get(f)+p1.Get(f))/2, grid)
			c, q := p0.With(f, m), p1.With(f, m)
			return shape{
				legs:  []geom.Segment{geom.Seg(p0, c), geom.Seg(c, q)},
				moved: []movedPoint{{linktree.EndPoint, f, q}},
			}, nil
		}
		o := f.Other()
		m := geom.Snap((p0.Get(o)+p1.Get(o))/2, grid)
		c, q := p1.With(o, m), p0.With(o, m)
		return shape{
			legs:  []geom.Segment{geom.Seg(q, c), geom.Seg(c, p1)},
			moved: []movedPoint{{linktree.StartPoint, o, q}},
		}, nil

	case DoubleSplit:
		c0, c1 := p0.With(op.First, float), p1.With(op.First, float)
		return shape{legs: []geom.Segment{geom.Seg(p0, c0), geom.Seg(c0, c1), geom.Seg(c1, p1)}}, nil
	}
	return shape{}, fmt.Errorf("%w: operation %T", ErrCorruptStrategy, op)
}

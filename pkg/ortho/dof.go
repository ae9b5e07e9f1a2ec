package ortho

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// DOFKind classifies how freely one coordinate of an endpoint may move.
type DOFKind int

const (
	// Fixed axes never move.
	Fixed DOFKind = iota
	// Unconditional axes may move anywhere within their range.
	Unconditional
	// Conditional axes may move only if every dependent segment can be
	// re-resolved after the move.
	Conditional
)

func (k DOFKind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Unconditional:
		return "free"
	case Conditional:
		return "conditional"
	}
	return fmt.Sprintf("DOFKind(%d)", int(k))
}

// Interval is a closed coordinate range.
type Interval struct {
	Min, Max float64
}

// FullRange is the unbounded interval.
var FullRange = Interval{Min: math.Inf(-1), Max: math.Inf(1)}

// DegreeOfFreedom describes the mobility of one axis of one endpoint.
type DegreeOfFreedom struct {
	Axis    geom.Axis
	Kind    DOFKind
	Range   Interval             // meaningful for Unconditional
	Depends []linktree.SegmentID // non-empty for Conditional
}

// FixedAxis returns a Fixed DOF.
func FixedAxis(a geom.Axis) DegreeOfFreedom {
	return DegreeOfFreedom{Axis: a, Kind: Fixed}
}

// FreeAxis returns an Unconditional DOF over the full range.
func FreeAxis(a geom.Axis) DegreeOfFreedom {
	return DegreeOfFreedom{Axis: a, Kind: Unconditional, Range: FullRange}
}

// DependentAxis returns a Conditional DOF on the given segments.
func DependentAxis(a geom.Axis, deps ...linktree.SegmentID) DegreeOfFreedom {
	return DegreeOfFreedom{Axis: a, Kind: Conditional, Depends: slices.Clone(deps)}
}

// Movable reports whether the axis may move at all.
func (d DegreeOfFreedom) Movable() bool { return d.Kind != Fixed }

// Validate reports a Conditional DOF without dependencies.
func (d DegreeOfFreedom) Validate() error {
	if d.Kind == Conditional && len(d.Depends) == 0 {
		return fmt.Errorf("%w: conditional %s axis has no dependencies", ErrCorruptConstraint, d.Axis)
	}
	return nil
}

func (d DegreeOfFreedom) String() string {
	if d.Kind != Conditional {
		return fmt.Sprintf("%s:%s", d.Axis, d.Kind)
	}
	ids := make([]string, len(d.Depends))
	for i, id := range d.Depends {
		ids[i] = fmt.Sprint(int(id))
	}
	return fmt.Sprintf("%s:on(%s)", d.Axis, strings.Join(ids, ","))
}

// PointDOF bundles both axis DOFs of one endpoint with the direction a
// segment must travel at that endpoint, if any.
type PointDOF struct {
	X, Y DegreeOfFreedom
	Dir  geom.Direction // geom.None when unconstrained
}

// Axis returns the DOF for axis a.
func (p PointDOF) Axis(a geom.Axis) DegreeOfFreedom {
	if a == geom.X {
		return p.X
	}
	return p.Y
}

func (p *PointDOF) set(d DegreeOfFreedom) {
	if d.Axis == geom.X {
		p.X = d
	} else {
		p.Y = d
	}
}

func pinned(dir geom.Direction) PointDOF {
	return PointDOF{X: FixedAxis(geom.X), Y: FixedAxis(geom.Y), Dir: dir}
}

func free() PointDOF {
	return PointDOF{X: FreeAxis(geom.X), Y: FreeAxis(geom.Y)}
}

func (p PointDOF) String() string {
	s := fmt.Sprintf("[%s %s]", p.X, p.Y)
	if p.Dir != geom.None {
		s += " " + p.Dir.String()
	}
	return s
}

// SegmentDOF holds the DOFs of a segment's start and end points.
type SegmentDOF struct {
	Start PointDOF
	End   PointDOF
}

// Point returns the DOF bundle of endpoint e.
func (s SegmentDOF) Point(e linktree.Endpoint) PointDOF {
	if e == linktree.StartPoint {
		return s.Start
	}
	return s.End
}

// WithPoint returns a copy with endpoint e replaced.
func (s SegmentDOF) WithPoint(e linktree.Endpoint, p PointDOF) SegmentDOF {
	if e == linktree.StartPoint {
		s.Start = p
	} else {
		s.End = p
	}
	return s
}

// Validate checks all four axes.
func (s SegmentDOF) Validate() error {
	for _, p := range [2]PointDOF{s.Start, s.End} {
		for _, a := range geom.Axes {
			if err := p.Axis(a).Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// DOFMap is the analyzer's output: one SegmentDOF per segment id.
type DOFMap map[linktree.SegmentID]SegmentDOF

// Validate checks every entry and that each dependency names a segment of t.
func (m DOFMap) Validate(t *linktree.Tree) error {
	for _, id := range t.IDs() {
		sd, ok := m[id]
		if !ok {
			return fmt.Errorf("%w: segment %d has no entry", ErrCorruptConstraint, id)
		}
		if err := sd.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", id, err)
		}
		for _, p := range [2]PointDOF{sd.Start, sd.End} {
			for _, a := range geom.Axes {
				for _, dep := range p.Axis(a).Depends {
					if _, ok := t.Segment(dep); !ok {
						return fmt.Errorf("%w: segment %d depends on unknown %d", ErrCorruptConstraint, id, dep)
					}
				}
			}
		}
	}
	return nil
}

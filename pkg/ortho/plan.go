package ortho

import (
	"fmt"
	"math"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// MoveTolerance is the smallest displacement a plan bothers to emit.
const MoveTolerance = geom.Tolerance

// OrthoCommand is one edit in a [FixOrthoPlan]: [MovePoint] or [CreateSplit].
type OrthoCommand interface {
	isCommand()
	String() string
}

// MovePoint translates one endpoint of the plan's segment along Axis.
type MovePoint struct {
	End   linktree.Endpoint
	Axis  geom.Axis
	Delta float64
}

// CreateSplit inserts a corner. Slot 0 is the corner nearest the start.
type CreateSplit struct {
	Slot     int
	Position geom.Point
}

func (MovePoint) isCommand()   {}
func (CreateSplit) isCommand() {}

func (c MovePoint) String() string {
	return fmt.Sprintf("move %s.%s by %g", c.End, c.Axis, c.Delta)
}

func (c CreateSplit) String() string {
	return fmt.Sprintf("split%d at %s", c.Slot, c.Position)
}

// FixOrthoPlan is the concrete edit list for one segment.
type FixOrthoPlan struct {
	Segment  linktree.SegmentID
	Commands []OrthoCommand
}

// Empty reports whether the plan makes no edits.
func (p FixOrthoPlan) Empty() bool { return len(p.Commands) == 0 }

// Splits counts the corners the plan inserts.
func (p FixOrthoPlan) Splits() int {
	n := 0
	for _, c := range p.Commands {
		if _, ok := c.(CreateSplit); ok {
			n++
		}
	}
	return n
}

// VariationPositions lists the candidate shared coordinates of a double
// split from a0 to a1 on a segment whose longer side measures span. There
// are floor(span/grid) candidates, at least one: the exact midpoint first,
// then mid-grid and mid+grid, mid-2*grid and mid+2*grid and so on, stepping
// toward a0's side of the axis first. Candidates that fall on an endpoint
// are dropped because they would collapse a leg to zero length.
func VariationPositions(a0, a1, span, grid float64) []float64 {
	mid := (a0 + a1) / 2
	out := []float64{mid}
	if grid <= 0 {
		return out
	}
	n := int(math.Floor((math.Abs(span) + geom.Tolerance) / grid))
	toward := -1.0
	if a1 < a0 {
		toward = 1
	}
	for i := 1; i < n; i++ {
		k := float64((i + 1) / 2)
		v := mid + toward*k*grid
		if i%2 == 0 {
			v = mid - toward*k*grid
		}
		if geom.Near(v, a0) || geom.Near(v, a1) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// VariationCount returns how many variations s has on seg.
func (s LinkSegStrategy) VariationCount(seg geom.Segment, grid float64) int {
	op, ok := s.Op.(DoubleSplit)
	if !ok {
		return 1
	}
	return len(doubleSplitPositions(op, seg, grid))
}

func doubleSplitPositions(op DoubleSplit, seg geom.Segment, grid float64) []float64 {
	span := math.Max(math.Abs(seg.B.X-seg.A.X), math.Abs(seg.B.Y-seg.A.Y))
	return VariationPositions(seg.A.Get(op.First), seg.B.Get(op.First), span, grid)
}

// Materialize evaluates s against the concrete geometry seg and returns the
// edit list. index selects the variation of a double split and must be
// below total; other strategies ignore both. Moves smaller than
// [MoveTolerance] are dropped, so the plan may be empty.
func (s LinkSegStrategy) Materialize(seg geom.Segment, index, total int, grid float64) (FixOrthoPlan, error) {
	var float float64
	if op, ok := s.Op.(DoubleSplit); ok {
		pos := doubleSplitPositions(op, seg, grid)
		if index < 0 || index >= len(pos) || index >= total {
			return FixOrthoPlan{}, fmt.Errorf("%w: %d of %d", ErrVariationOutOfRange, index, min(total, len(pos)))
		}
		float = pos[index]
	}

	sh, err := shapeOf(s.Op, seg, grid, float)
	if err != nil {
		return FixOrthoPlan{}, err
	}

	plan := FixOrthoPlan{Segment: s.Segment}
	for _, m := range sh.moved {
		delta := m.To.Get(m.Axis) - seg.Point(int(m.End)).Get(m.Axis)
		if math.Abs(delta) < MoveTolerance {
			continue
		}
		plan.Commands = append(plan.Commands, MovePoint{End: m.End, Axis: m.Axis, Delta: delta})
	}
	for i, c := range sh.corners() {
		plan.Commands = append(plan.Commands, CreateSplit{Slot: i, Position: c})
	}
	return plan, nil
}

// Apply performs the plan against t, resolving the plan's segment through
// table and recording any split in it. Moves run before splits because
// split positions are final coordinates. It returns the minted segment ids.
func (p FixOrthoPlan) Apply(t *linktree.Tree, table SplitTable) ([]linktree.SegmentID, error) {
	var minted []linktree.SegmentID
	for _, cmd := range p.Commands {
		entry := table.Resolve(p.Segment)
		switch c := cmd.(type) {
		case MovePoint:
			target := entry.Start
			if c.End == linktree.EndPoint {
				target = entry.End
			}
			if err := t.MovePoint(target, c.End, geom.Along(c.Axis, c.Delta)); err != nil {
				return minted, fmt.Errorf("segment %d: %w", p.Segment, err)
			}
		case CreateSplit:
			head, tail, err := t.Split(entry.End, c.Position)
			if err != nil {
				return minted, fmt.Errorf("segment %d: %w", p.Segment, err)
			}
			if entry.End != entry.Start {
				entry.Middle = head
			}
			entry.End = tail
			table[p.Segment] = entry
			minted = append(minted, tail)
		default:
			return minted, fmt.Errorf("%w: command %T", ErrCorruptStrategy, cmd)
		}
	}
	return minted, nil
}

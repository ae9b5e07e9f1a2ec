package ortho

import (
	"fmt"
	"strings"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// Grid answers collision queries for candidate segments. It is read-only
// during a repair and may be shared between goroutines.
type Grid interface {
	// Allowed reports whether seg may be placed. roles names the nodes the
	// segment's endpoints attach to; passThrough lists groups (links or
	// nodes) the segment may overlap.
	Allowed(seg geom.Segment, roles linktree.EndpointRoles, passThrough []string) bool
}

// StrategyVariation is one concrete realization of a [TreeStrategy]: one
// plan per constituent strategy and the split correspondence they produce.
type StrategyVariation struct {
	Plans  []FixOrthoPlan
	Splits SplitTable
}

// TreeStrategy is a set of per-segment strategies that must be applied
// together, in order: the repaired segment first, then its dependencies.
type TreeStrategy struct {
	Strategies []LinkSegStrategy
	Variations []StrategyVariation
}

func (ts *TreeStrategy) String() string {
	parts := make([]string, len(ts.Strategies))
	for i, s := range ts.Strategies {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// GeneratePlans materializes every variation against scratch, which is
// not modified, and returns the variation count. At most one strategy may
// carry variations; its count becomes the tree strategy's count.
func (ts *TreeStrategy) GeneratePlans(scratch *linktree.Tree, grid float64) (int, error) {
	ts.Variations = nil
	first, total, err := ts.materialize(scratch, grid, 0, 0)
	if err != nil {
		return 0, err
	}
	ts.Variations = append(ts.Variations, first)
	for v := 1; v < total; v++ {
		sv, _, err := ts.materialize(scratch, grid, v, total)
		if err != nil {
			return 0, err
		}
		ts.Variations = append(ts.Variations, sv)
	}
	return len(ts.Variations), nil
}

// materialize builds variation v. A zero total means the count is not known
// yet and is taken from the variation-bearing strategy's live geometry.
func (ts *TreeStrategy) materialize(base *linktree.Tree, grid float64, v, total int) (StrategyVariation, int, error) {
	work := base.Clone()
	table := SplitTable{}
	plans := make([]FixOrthoPlan, 0, len(ts.Strategies))
	count := 1
	for _, s := range ts.Strategies {
		seg, err := liveGeometry(work, table, s.Segment)
		if err != nil {
			return StrategyVariation{}, 0, err
		}
		index, n := 0, 1
		if s.HasVariations() {
			if total == 0 {
				total = s.VariationCount(seg, grid)
			}
			index, n, count = v, total, total
		}
		plan, err := s.Materialize(seg, index, n, grid)
		if err != nil {
			return StrategyVariation{}, 0, fmt.Errorf("%s: %w", s, err)
		}
		if _, err := plan.Apply(work, table); err != nil {
			return StrategyVariation{}, 0, err
		}
		plans = append(plans, plan)
	}
	return StrategyVariation{Plans: plans, Splits: table}, count, nil
}

func (ts *TreeStrategy) variation(v int) (StrategyVariation, error) {
	if ts.Variations == nil {
		return StrategyVariation{}, ErrPlansNotGenerated
	}
	if v < 0 || v >= len(ts.Variations) {
		return StrategyVariation{}, fmt.Errorf("%w: %d of %d", ErrVariationOutOfRange, v, len(ts.Variations))
	}
	return ts.Variations[v], nil
}

// replay applies variation v to a clone of scratch.
func (ts *TreeStrategy) replay(v int, scratch *linktree.Tree) (*linktree.Tree, SplitTable, int, error) {
	sv, err := ts.variation(v)
	if err != nil {
		return nil, nil, 0, err
	}
	work := scratch.Clone()
	table := SplitTable{}
	splits := 0
	for _, p := range sv.Plans {
		minted, err := p.Apply(work, table)
		if err != nil {
			return nil, nil, 0, err
		}
		splits += len(minted)
	}
	return work, table, splits, nil
}

// CanApply reports whether variation v introduces no new violation: no
// segment that was orthogonal (or zero-length) may end up diagonal, and
// every orthogonal segment afterwards must pass grid and match the
// direction of any pad it is anchored to. Segments that already violated
// the grid or pad check before the edit are not held against the candidate.
func (ts *TreeStrategy) CanApply(v int, grid Grid, pads PadResolver, scratch *linktree.Tree) (bool, error) {
	pre := violations(scratch, SplitTable{}, grid, pads)
	work, table, _, err := ts.replay(v, scratch)
	if err != nil {
		return false, err
	}
	for _, s := range work.Segments() {
		if s.Diagonal() {
			if before, ok := scratch.Segment(table.Origin(s.ID)); ok && !before.Diagonal() {
				return false, nil
			}
			continue
		}
		if !s.Orthogonal() || pre[table.Origin(s.ID)] {
			continue
		}
		if violates(work, s, grid, pads) {
			return false, nil
		}
	}
	return true, nil
}

// Ranking scores variation v. Residual area counts only segments the
// variation touched: minted fragments and segments whose geometry changed.
// Diagonals elsewhere in the tree do not affect the score.
func (ts *TreeStrategy) Ranking(v int, minCorners bool, scratch *linktree.Tree) (PlanRanking, error) {
	work, table, splits, err := ts.replay(v, scratch)
	if err != nil {
		return PlanRanking{}, err
	}

	r := PlanRanking{SplitCount: splits, MinCornersPreferred: minCorners}
	for _, s := range work.Segments() {
		if s.Kind.IsDrop() {
			continue
		}
		if before, ok := scratch.Segment(s.ID); ok && before.Start.Near(s.Start) && before.End.Near(s.End) {
			continue
		}
		r.NonOrthogonalArea += s.Geometry().SweptArea()
	}
	for _, before := range scratch.Segments() {
		if before.Kind.IsDrop() {
			continue
		}
		e := table.Resolve(before.ID)
		head, ok1 := work.Segment(e.Start)
		tail, ok2 := work.Segment(e.End)
		if !ok1 || !ok2 {
			return PlanRanking{}, fmt.Errorf("%w: %d", ErrUnknownSegment, before.ID)
		}
		direct := before.Start.Dist(head.Start) + before.End.Dist(tail.End)
		swapped := before.Start.Dist(tail.End) + before.End.Dist(head.Start)
		r.Displacement += min(direct, swapped)
	}
	return r, nil
}

// ApplyPlan commits variation v to t in strategy order and returns the
// minted segment ids together with the split correspondence.
func (ts *TreeStrategy) ApplyPlan(v int, t *linktree.Tree) ([]linktree.SegmentID, SplitTable, error) {
	sv, err := ts.variation(v)
	if err != nil {
		return nil, nil, err
	}
	table := SplitTable{}
	var minted []linktree.SegmentID
	for _, p := range sv.Plans {
		ids, err := p.Apply(t, table)
		if err != nil {
			return minted, table, err
		}
		minted = append(minted, ids...)
	}
	return minted, table, nil
}

func liveGeometry(t *linktree.Tree, table SplitTable, id linktree.SegmentID) (geom.Segment, error) {
	e := table.Resolve(id)
	head, ok1 := t.Segment(e.Start)
	tail, ok2 := t.Segment(e.End)
	if !ok1 || !ok2 {
		return geom.Segment{}, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	return geom.Seg(head.Start, tail.End), nil
}

func violations(t *linktree.Tree, table SplitTable, grid Grid, pads PadResolver) map[linktree.SegmentID]bool {
	out := make(map[linktree.SegmentID]bool)
	for _, s := range t.Segments() {
		if s.Orthogonal() && violates(t, s, grid, pads) {
			out[table.Origin(s.ID)] = true
		}
	}
	return out
}

func violates(t *linktree.Tree, s *linktree.Segment, grid Grid, pads PadResolver) bool {
	if grid != nil && !grid.Allowed(s.Geometry(), t.Roles(s.ID), []string{t.Link()}) {
		return true
	}
	dir, _ := s.Geometry().Direction()
	if ref, ok := t.StartPad(s.ID); ok {
		if want := padDirection(pads, ref); want != geom.None && want != dir {
			return true
		}
	}
	if ref, ok := t.EndPad(s.ID); ok {
		if want := padDirection(pads, ref).Opposite(); want != geom.None && want != dir {
			return true
		}
	}
	return false
}

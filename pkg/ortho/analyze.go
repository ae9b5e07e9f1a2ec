package ortho

import (
	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// PadResolver resolves the outward direction of a node pad.
type PadResolver interface {
	PadDirection(ref linktree.PadRef) (geom.Direction, bool)
}

// Analyze derives the DOF bundle of every endpoint in t.
//
// A start point anchored to a pad is fixed and must depart in the pad's
// outward direction. Otherwise its mobility follows from the inbound
// segment N: when N is orthogonal, moving the corner across N's run would
// bend N, so that axis is fixed if N's far end sits on a pad and
// conditional on N otherwise; moving along N's run only disturbs the
// orthogonal siblings sharing the corner. When N is diagonal or missing,
// each orthogonal sibling makes the axis across its run conditional on it
// (fixed if the sibling ends on a pad); with no such sibling both axes are
// free. End points mirror this with the first orthogonal child as
// the outbound segment and the remaining orthogonal children as the
// segments sharing the corner; an end anchored to a pad must arrive
// against the pad's outward direction.
//
// Drops, the root anchor and zero-length segments get a fixed placeholder.
// Analyze never fails; pads that cannot be resolved impose no direction.
func Analyze(t *linktree.Tree, pads PadResolver) DOFMap {
	m := make(DOFMap, t.Len())
	for _, id := range t.IDs() {
		s, _ := t.Segment(id)
		if s.Degenerate() {
			m[id] = SegmentDOF{Start: pinned(geom.None), End: pinned(geom.None)}
			continue
		}
		m[id] = SegmentDOF{
			Start: analyzeStart(t, s, pads),
			End:   analyzeEnd(t, s, pads),
		}
	}
	return m
}

func analyzeStart(t *linktree.Tree, s *linktree.Segment, pads PadResolver) PointDOF {
	if ref, ok := t.StartPad(s.ID); ok {
		return pinned(padDirection(pads, ref))
	}
	var inbound *linktree.Segment
	if p, ok := t.Segment(s.Parent); ok && !p.Degenerate() {
		inbound = p
	}
	return cornerDOF(t, inbound, linktree.StartPoint, orthogonal(t, t.Siblings(s.ID)))
}

func analyzeEnd(t *linktree.Tree, s *linktree.Segment, pads PadResolver) PointDOF {
	if ref, ok := t.EndPad(s.ID); ok {
		return pinned(padDirection(pads, ref).Opposite())
	}
	kids := orthogonal(t, t.Children(s.ID))
	if len(kids) == 0 {
		return free()
	}
	return cornerDOF(t, kids[0], linktree.EndPoint, kids[1:])
}

// cornerDOF classifies a corner shared with primary (whose far end is far)
// and with others, which all start at the corner. Without an orthogonal
// primary each orthogonal other still pins the axis across its run.
func cornerDOF(t *linktree.Tree, primary *linktree.Segment, far linktree.Endpoint, others []*linktree.Segment) PointDOF {
	deps := map[geom.Axis][]linktree.SegmentID{}
	locked := map[geom.Axis]bool{}

	var run, pin geom.Axis
	hasPrimary := primary != nil && primary.Orthogonal()
	if hasPrimary {
		run, _ = primary.Geometry().RunAxis()
		pin = run.Other()
		deps[pin] = []linktree.SegmentID{primary.ID}
		locked[pin] = anchored(t, primary.ID, far)
	}
	for _, o := range others {
		a, _ := o.Geometry().RunAxis()
		pins := a.Other()
		if hasPrimary {
			deps[run] = append(deps[run], o.ID)
			if pins == pin {
				deps[pin] = append(deps[pin], o.ID)
			}
		} else {
			deps[pins] = append(deps[pins], o.ID)
		}
		locked[pins] = locked[pins] || anchored(t, o.ID, linktree.EndPoint)
	}

	var p PointDOF
	for _, a := range geom.Axes {
		switch {
		case locked[a]:
			p.set(FixedAxis(a))
		case len(deps[a]) > 0:
			p.set(DependentAxis(a, deps[a]...))
		default:
			p.set(FreeAxis(a))
		}
	}
	return p
}

func anchored(t *linktree.Tree, id linktree.SegmentID, e linktree.Endpoint) bool {
	_, ok := t.PadAt(id, e)
	return ok
}

func orthogonal(t *linktree.Tree, ids []linktree.SegmentID) []*linktree.Segment {
	var out []*linktree.Segment
	for _, id := range ids {
		if s, ok := t.Segment(id); ok && s.Orthogonal() {
			out = append(out, s)
		}
	}
	return out
}

func padDirection(pads PadResolver, ref linktree.PadRef) geom.Direction {
	if pads == nil {
		return geom.None
	}
	d, _ := pads.PadDirection(ref)
	return d
}

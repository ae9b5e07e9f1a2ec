package ortho

import "github.com/matzehuels/orthofix/pkg/linktree"

// SplitSeg records the fragments an original segment was split into. An
// unsplit segment has Start == End and no Middle; one split yields
// Start and End; two splits add Middle.
type SplitSeg struct {
	Start  linktree.SegmentID
	Middle linktree.SegmentID
	End    linktree.SegmentID
}

// Fragments returns the fragment ids from start to end.
func (s SplitSeg) Fragments() []linktree.SegmentID {
	out := []linktree.SegmentID{s.Start}
	if s.Middle != linktree.NoSegment {
		out = append(out, s.Middle)
	}
	if s.End != s.Start {
		out = append(out, s.End)
	}
	return out
}

// SplitTable maps original segment ids to their fragments.
type SplitTable map[linktree.SegmentID]SplitSeg

// Resolve returns the fragments of id; ids never split map to themselves.
func (t SplitTable) Resolve(id linktree.SegmentID) SplitSeg {
	if e, ok := t[id]; ok {
		return e
	}
	return SplitSeg{Start: id, End: id}
}

// Origin returns the original segment a fragment belongs to.
func (t SplitTable) Origin(frag linktree.SegmentID) linktree.SegmentID {
	for id, e := range t {
		if e.Start == frag || e.Middle == frag || e.End == frag {
			return id
		}
	}
	return frag
}

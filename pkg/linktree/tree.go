package linktree

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidSegmentID is returned by [Tree.Add] when the id is not positive.
	ErrInvalidSegmentID = errors.New("segment ID must be positive")

	// ErrDuplicateSegment is returned by [Tree.Add] when the id is already in use.
	ErrDuplicateSegment = errors.New("duplicate segment ID")

	// ErrUnknownSegment is returned when an operation references a segment
	// that is not in the tree.
	ErrUnknownSegment = errors.New("unknown segment")

	// ErrUnknownParent is returned by [Tree.Add] when the parent has not been
	// added yet. Segments must be added parents first.
	ErrUnknownParent = errors.New("unknown parent segment")

	// ErrMultipleRoots is returned by [Tree.Add] when a second parentless
	// segment is added.
	ErrMultipleRoots = errors.New("tree already has a root")

	// ErrNoRoot is returned by [Tree.Validate] for an empty tree.
	ErrNoRoot = errors.New("tree has no root")

	// ErrDetachedSegment is returned when a child does not start where its
	// parent ends.
	ErrDetachedSegment = errors.New("segment does not start at its parent's end")

	// ErrUnreachableSegment is returned by [Tree.Validate] when a segment
	// cannot be reached from the root.
	ErrUnreachableSegment = errors.New("segment unreachable from root")

	// ErrInvalidDirect is returned by [Tree.Add] when a direct segment has
	// a parent. Direct segments make up a whole link on their own.
	ErrInvalidDirect = errors.New("direct segment cannot have a parent")

	// ErrDropNotDegenerate is returned by [Tree.Add] when a drop has length.
	ErrDropNotDegenerate = errors.New("drop segment must have zero length")

	// ErrSplitDrop is returned by [Tree.Split] for drop segments.
	ErrSplitDrop = errors.New("cannot split a drop segment")
)

// Tree is one link: an arena of segments keyed by id, rooted at the source.
//
// The zero value is not usable; create trees with [New].
// Tree is not safe for concurrent mutation. Concurrent readers are fine.
type Tree struct {
	link     string
	segments map[SegmentID]*Segment
	root     SegmentID
	maxID    SegmentID
}

// New creates an empty tree for the link with the given id.
func New(link string) *Tree {
	return &Tree{link: link, segments: make(map[SegmentID]*Segment)}
}

// Link returns the id of the link this tree describes.
func (t *Tree) Link() string { return t.link }

// Add inserts a segment. The parent must already be present and the
// segment must start at the parent's end. Children are derived from
// parent references, so s.Children is ignored.
func (t *Tree) Add(s Segment) error {
	if s.ID <= NoSegment {
		return ErrInvalidSegmentID
	}
	if _, ok := t.segments[s.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateSegment, s.ID)
	}
	if s.Kind.IsDrop() && !s.Start.Near(s.End) {
		return fmt.Errorf("%w: %d", ErrDropNotDegenerate, s.ID)
	}
	if s.Parent == NoSegment {
		if t.root != NoSegment {
			return fmt.Errorf("%w: %d", ErrMultipleRoots, t.root)
		}
	} else {
		if s.Kind == KindDirect {
			return fmt.Errorf("%w: %d", ErrInvalidDirect, s.ID)
		}
		p, ok := t.segments[s.Parent]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownParent, s.Parent)
		}
		if !p.End.Near(s.Start) {
			return fmt.Errorf("%w: %d", ErrDetachedSegment, s.ID)
		}
	}

	seg := s.clone()
	seg.Children = nil
	t.segments[s.ID] = seg
	if s.Parent == NoSegment {
		t.root = s.ID
	} else {
		p := t.segments[s.Parent]
		p.Children = append(p.Children, s.ID)
	}
	t.maxID = max(t.maxID, s.ID)
	return nil
}

// Segment returns the segment with the given id. The returned pointer
// refers to tree storage; edit through [Tree.MovePoint] and [Tree.Split].
func (t *Tree) Segment(id SegmentID) (*Segment, bool) {
	s, ok := t.segments[id]
	return s, ok
}

// Root returns the root segment id, or [NoSegment] for an empty tree.
func (t *Tree) Root() SegmentID { return t.root }

// Len returns the number of segments.
func (t *Tree) Len() int { return len(t.segments) }

// Parent returns the parent of id, or [NoSegment] for the root or an unknown id.
func (t *Tree) Parent(id SegmentID) SegmentID {
	if s, ok := t.segments[id]; ok {
		return s.Parent
	}
	return NoSegment
}

// Children returns a copy of the ordered children of id.
func (t *Tree) Children(id SegmentID) []SegmentID {
	if s, ok := t.segments[id]; ok {
		return slices.Clone(s.Children)
	}
	return nil
}

// Siblings returns the other children of id's parent, in order.
func (t *Tree) Siblings(id SegmentID) []SegmentID {
	p, ok := t.segments[t.Parent(id)]
	if !ok {
		return nil
	}
	var out []SegmentID
	for _, c := range p.Children {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// IDs returns all segment ids in ascending order.
func (t *Tree) IDs() []SegmentID {
	return slices.Sorted(maps.Keys(t.segments))
}

// Segments returns all segments in depth-first preorder from the root,
// visiting children in insertion order.
func (t *Tree) Segments() []*Segment {
	out := make([]*Segment, 0, len(t.segments))
	t.Walk(func(s *Segment) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Walk visits segments in preorder until fn returns false.
func (t *Tree) Walk(fn func(*Segment) bool) {
	if t.root == NoSegment {
		return
	}
	stack := []SegmentID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s, ok := t.segments[id]
		if !ok {
			continue
		}
		if !fn(s) {
			return
		}
		for i := len(s.Children) - 1; i >= 0; i-- {
			stack = append(stack, s.Children[i])
		}
	}
}

// Diagonal returns the ids of segments that are neither orthogonal nor
// degenerate, in preorder.
func (t *Tree) Diagonal() []SegmentID {
	var out []SegmentID
	t.Walk(func(s *Segment) bool {
		if s.Diagonal() {
			out = append(out, s.ID)
		}
		return true
	})
	return out
}

// Clone returns a deep copy that shares no storage with t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		link:     t.link,
		segments: make(map[SegmentID]*Segment, len(t.segments)),
		root:     t.root,
		maxID:    t.maxID,
	}
	for id, s := range t.segments {
		c.segments[id] = s.clone()
	}
	return c
}

// Validate checks structural integrity: a single root from which every
// segment is reachable, consistent parent/child references and continuous
// geometry at every corner.
func (t *Tree) Validate() error {
	if t.root == NoSegment {
		return ErrNoRoot
	}
	seen := make(map[SegmentID]bool, len(t.segments))
	var err error
	t.Walk(func(s *Segment) bool {
		seen[s.ID] = true
		for _, c := range s.Children {
			child, ok := t.segments[c]
			if !ok {
				err = fmt.Errorf("%w: child %d of %d", ErrUnknownSegment, c, s.ID)
				return false
			}
			if child.Parent != s.ID {
				err = fmt.Errorf("%w: %d lists %d as child", ErrUnknownParent, s.ID, c)
				return false
			}
			if !child.Start.Near(s.End) {
				err = fmt.Errorf("%w: %d", ErrDetachedSegment, c)
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	for _, id := range t.IDs() {
		if !seen[id] {
			return fmt.Errorf("%w: %d", ErrUnreachableSegment, id)
		}
	}
	return nil
}

// StartPad returns the pad the start of id is anchored to: the segment's
// own StartPad, or the pad of a drop parent.
func (t *Tree) StartPad(id SegmentID) (PadRef, bool) {
	s, ok := t.segments[id]
	if !ok {
		return PadRef{}, false
	}
	if s.StartPad != nil {
		return *s.StartPad, true
	}
	if p, ok := t.segments[s.Parent]; ok && p.Kind.IsDrop() {
		return dropPad(p)
	}
	return PadRef{}, false
}

// EndPad returns the pad the end of id is anchored to: the segment's own
// EndPad, or the pad of an end-drop child.
func (t *Tree) EndPad(id SegmentID) (PadRef, bool) {
	s, ok := t.segments[id]
	if !ok {
		return PadRef{}, false
	}
	if s.EndPad != nil {
		return *s.EndPad, true
	}
	for _, c := range s.Children {
		if child, ok := t.segments[c]; ok && child.Kind == KindEndDrop {
			if ref, ok := dropPad(child); ok {
				return ref, true
			}
		}
	}
	return PadRef{}, false
}

// PadAt returns the pad anchoring endpoint e of id.
func (t *Tree) PadAt(id SegmentID, e Endpoint) (PadRef, bool) {
	if e == StartPoint {
		return t.StartPad(id)
	}
	return t.EndPad(id)
}

// Roles reports which nodes the endpoints of id attach to.
func (t *Tree) Roles(id SegmentID) EndpointRoles {
	var r EndpointRoles
	if ref, ok := t.StartPad(id); ok {
		r.Start = ref.Node
	}
	if ref, ok := t.EndPad(id); ok {
		r.End = ref.Node
	}
	return r
}

// EndpointRoles names the nodes a segment's endpoints attach to. Empty
// strings mean the endpoint is a free corner.
type EndpointRoles struct {
	Start string
	End   string
}

func dropPad(d *Segment) (PadRef, bool) {
	if d.StartPad != nil {
		return *d.StartPad, true
	}
	if d.EndPad != nil {
		return *d.EndPad, true
	}
	return PadRef{}, false
}

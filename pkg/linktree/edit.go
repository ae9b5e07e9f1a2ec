package linktree

import (
	"fmt"

	"github.com/matzehuels/orthofix/pkg/geom"
)

// MovePoint translates endpoint e of segment id by delta. The corner is
// shared, so the parent's end and every sibling's start follow a moved
// start point, and every child's start follows a moved end point. Drops
// attached at the corner are translated whole so they stay zero-length.
func (t *Tree) MovePoint(id SegmentID, e Endpoint, delta geom.Point) error {
	s, ok := t.segments[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}

	if e == StartPoint {
		p, ok := t.segments[s.Parent]
		if !ok {
			s.Start = s.Start.Add(delta)
			return nil
		}
		t.moveEnd(p, delta)
		return nil
	}
	t.moveEnd(s, delta)
	return nil
}

// moveEnd moves the end of s together with the start of each child.
func (t *Tree) moveEnd(s *Segment, delta geom.Point) {
	s.End = s.End.Add(delta)
	if s.Kind.IsDrop() {
		s.Start = s.Start.Add(delta)
	}
	for _, c := range s.Children {
		child := t.segments[c]
		child.Start = child.Start.Add(delta)
		if child.Kind.IsDrop() {
			child.End = child.End.Add(delta)
		}
	}
}

// Split inserts a corner at pos. The head half (start to pos) keeps id; the
// tail half (pos to end) gets a fresh id and adopts the original children
// and end pad. A direct segment becomes two ordinary segments.
func (t *Tree) Split(id SegmentID, pos geom.Point) (head, tail SegmentID, err error) {
	s, ok := t.segments[id]
	if !ok {
		return NoSegment, NoSegment, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	if s.Kind.IsDrop() {
		return NoSegment, NoSegment, fmt.Errorf("%w: %d", ErrSplitDrop, id)
	}

	tail = t.mint()
	n := &Segment{
		ID:       tail,
		Kind:     KindOrdinary,
		Parent:   id,
		Children: s.Children,
		Start:    pos,
		End:      s.End,
		EndPad:   s.EndPad,
	}
	for _, c := range n.Children {
		t.segments[c].Parent = tail
	}
	t.segments[tail] = n

	s.Children = []SegmentID{tail}
	s.End = pos
	s.EndPad = nil
	if s.Kind == KindDirect {
		s.Kind = KindOrdinary
	}
	return id, tail, nil
}

func (t *Tree) mint() SegmentID {
	t.maxID++
	return t.maxID
}

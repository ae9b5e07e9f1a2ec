package linktree

import (
	"fmt"

	"github.com/matzehuels/orthofix/pkg/geom"
)

// SegmentID identifies a segment within its tree. Valid ids are positive.
type SegmentID int

// NoSegment is the zero SegmentID, used for "no parent".
const NoSegment SegmentID = 0

// Kind classifies a segment's role in its link.
type Kind int

const (
	KindOrdinary Kind = iota
	KindDirect
	KindStartDrop
	KindEndDrop
)

var kindNames = map[Kind]string{
	KindOrdinary:  "ordinary",
	KindDirect:    "direct",
	KindStartDrop: "start-drop",
	KindEndDrop:   "end-drop",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a kind name back to a Kind. The empty string is
// [KindOrdinary].
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindOrdinary, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindOrdinary, fmt.Errorf("unknown segment kind %q", s)
}

// IsDrop reports whether k is a start or end drop.
func (k Kind) IsDrop() bool { return k == KindStartDrop || k == KindEndDrop }

// Endpoint selects one end of a segment.
type Endpoint int

const (
	StartPoint Endpoint = iota
	EndPoint
)

// Other returns the opposite endpoint.
func (e Endpoint) Other() Endpoint { return 1 - e }

func (e Endpoint) String() string {
	if e == StartPoint {
		return "P0"
	}
	return "P1"
}

// Endpoints lists both endpoints in order.
var Endpoints = [2]Endpoint{StartPoint, EndPoint}

// PadRef names a pad on a node.
type PadRef struct {
	Node string `json:"node"`
	Pad  int    `json:"pad"`
}

func (p PadRef) String() string { return fmt.Sprintf("%s#%d", p.Node, p.Pad) }

// Segment is one straight piece of a link.
type Segment struct {
	ID       SegmentID
	Kind     Kind
	Parent   SegmentID
	Children []SegmentID

	Start geom.Point
	End   geom.Point

	// StartPad and EndPad attach an endpoint directly to a node pad. Drops
	// and direct segments set them; ordinary segments inherit pads from an
	// adjacent drop instead.
	StartPad *PadRef
	EndPad   *PadRef
}

// Geometry returns the segment as a geom.Segment from Start to End.
func (s *Segment) Geometry() geom.Segment { return geom.Seg(s.Start, s.End) }

// Point returns the position of endpoint e.
func (s *Segment) Point(e Endpoint) geom.Point {
	if e == StartPoint {
		return s.Start
	}
	return s.End
}

// Pad returns the pad attached at endpoint e, if any.
func (s *Segment) Pad(e Endpoint) *PadRef {
	if e == StartPoint {
		return s.StartPad
	}
	return s.EndPad
}

// Degenerate reports whether the segment is a drop or has zero length.
func (s *Segment) Degenerate() bool {
	return s.Kind.IsDrop() || s.Geometry().Degenerate()
}

// Orthogonal reports whether the segment is a non-degenerate axis-aligned run.
func (s *Segment) Orthogonal() bool {
	return !s.Degenerate() && s.Geometry().Orthogonal()
}

// Diagonal reports whether the segment needs repair.
func (s *Segment) Diagonal() bool {
	return !s.Kind.IsDrop() && s.Geometry().Diagonal()
}

func (s *Segment) clone() *Segment {
	c := *s
	c.Children = append([]SegmentID(nil), s.Children...)
	if s.StartPad != nil {
		p := *s.StartPad
		c.StartPad = &p
	}
	if s.EndPad != nil {
		p := *s.EndPad
		c.EndPad = &p
	}
	return &c
}

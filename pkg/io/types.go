package io

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
)

// =============================================================================
// Diagram - Wire Format
// =============================================================================

// Diagram is the serialization format for a diagram: its nodes and the
// segment trees of its links.
type Diagram struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is a rectangle with pads. X and Y are the top-left corner.
type Node struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Pads   []Pad   `json:"pads,omitempty"`
}

// Pad is an attachment point relative to its node's top-left corner.
type Pad struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Dir string  `json:"dir"` // "east", "south", "west" or "north"
}

// Link is one link tree, its segments listed in any order.
type Link struct {
	ID       string    `json:"id"`
	Segments []Segment `json:"segments"`
}

// Segment is one straight piece of a link. Pads are written "node#index".
type Segment struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind,omitempty"`
	Parent   int        `json:"parent,omitempty"`
	Start    geom.Point `json:"start"`
	End      geom.Point `json:"end"`
	StartPad string     `json:"start_pad,omitempty"`
	EndPad   string     `json:"end_pad,omitempty"`
}

// =============================================================================
// Conversion
// =============================================================================

// FromDiagram converts a diagram to its wire form.
func FromDiagram(d *linktree.Diagram) Diagram {
	out := Diagram{
		Nodes: make([]Node, 0, len(d.Nodes())),
		Links: make([]Link, 0, len(d.Links())),
	}
	for _, n := range d.Nodes() {
		out.Nodes = append(out.Nodes, fromNode(n))
	}
	for _, t := range d.Links() {
		out.Links = append(out.Links, FromTree(t))
	}
	return out
}

func fromNode(n *linktree.Node) Node {
	nd := Node{
		ID:     n.ID,
		X:      n.Bounds.Min.X,
		Y:      n.Bounds.Min.Y,
		Width:  n.Bounds.Width(),
		Height: n.Bounds.Height(),
	}
	for _, p := range n.Pads {
		nd.Pads = append(nd.Pads, Pad{X: p.Offset.X, Y: p.Offset.Y, Dir: p.Dir.String()})
	}
	return nd
}

// FromTree converts one link tree to its wire form. Segments are listed
// in preorder, so parents always precede their children.
func FromTree(t *linktree.Tree) Link {
	out := Link{ID: t.Link(), Segments: make([]Segment, 0, t.Len())}
	for _, s := range t.Segments() {
		seg := Segment{
			ID:     int(s.ID),
			Parent: int(s.Parent),
			Start:  s.Start,
			End:    s.End,
		}
		if s.Kind != linktree.KindOrdinary {
			seg.Kind = s.Kind.String()
		}
		if s.StartPad != nil {
			seg.StartPad = s.StartPad.String()
		}
		if s.EndPad != nil {
			seg.EndPad = s.EndPad.String()
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}

// ToDiagram converts the wire form back to a validated diagram.
func ToDiagram(data Diagram) (*linktree.Diagram, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	d := linktree.NewDiagram()
	for _, n := range data.Nodes {
		nd, err := toNode(n)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		if err := d.AddNode(nd); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, l := range data.Links {
		t, err := ToTree(l)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", l.ID, err)
		}
		if err := d.AddLink(t); err != nil {
			return nil, fmt.Errorf("link %s: %w", l.ID, err)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func toNode(n Node) (linktree.Node, error) {
	nd := linktree.Node{
		ID: n.ID,
		Bounds: geom.Rect{
			Min: geom.Pt(n.X, n.Y),
			Max: geom.Pt(n.X+n.Width, n.Y+n.Height),
		},
	}
	for i, p := range n.Pads {
		dir, err := geom.ParseDirection(p.Dir)
		if err != nil {
			return nd, fmt.Errorf("pad %d: %w", i, err)
		}
		nd.Pads = append(nd.Pads, linktree.Pad{Offset: geom.Pt(p.X, p.Y), Dir: dir})
	}
	return nd, nil
}

// ToTree builds a link tree from its wire form. Segments may be listed in
// any order; each is added once its parent is present.
func ToTree(l Link) (*linktree.Tree, error) {
	t := linktree.New(l.ID)
	pending := make([]linktree.Segment, 0, len(l.Segments))
	for _, s := range l.Segments {
		seg, err := toSegment(s)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", s.ID, err)
		}
		pending = append(pending, seg)
	}

	for len(pending) > 0 {
		var next []linktree.Segment
		for _, s := range pending {
			if _, ok := t.Segment(s.Parent); s.Parent != linktree.NoSegment && !ok {
				next = append(next, s)
				continue
			}
			if err := t.Add(s); err != nil {
				return nil, err
			}
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("segment %d: %w: %d", next[0].ID, linktree.ErrUnknownParent, next[0].Parent)
		}
		pending = next
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func toSegment(s Segment) (linktree.Segment, error) {
	kind, err := linktree.ParseKind(s.Kind)
	if err != nil {
		return linktree.Segment{}, err
	}
	seg := linktree.Segment{
		ID:     linktree.SegmentID(s.ID),
		Kind:   kind,
		Parent: linktree.SegmentID(s.Parent),
		Start:  s.Start,
		End:    s.End,
	}
	if seg.StartPad, err = parsePad(s.StartPad); err != nil {
		return seg, err
	}
	if seg.EndPad, err = parsePad(s.EndPad); err != nil {
		return seg, err
	}
	return seg, nil
}

// ParsePadRef parses "node#index".
func ParsePadRef(s string) (linktree.PadRef, error) {
	node, idx, ok := strings.Cut(s, "#")
	if !ok || node == "" {
		return linktree.PadRef{}, fmt.Errorf("pad reference %q: want node#index", s)
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return linktree.PadRef{}, fmt.Errorf("pad reference %q: bad index", s)
	}
	return linktree.PadRef{Node: node, Pad: i}, nil
}

func parsePad(s string) (*linktree.PadRef, error) {
	if s == "" {
		return nil, nil
	}
	ref, err := ParsePadRef(s)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
